package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/plans"
)

// UsageInfo is the usage of one resource against the current plan limit.
// Limit is plans.Unlimited when the plan does not cap the resource.
type UsageInfo struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// ConsumeUsage adds n units of res to the account's counters, refusing with
// ErrLimitExceeded when the plan limit would be crossed.
func (s *Service) ConsumeUsage(ctx context.Context, userID string, res plans.Resource, n int64) (UsageInfo, error) {
	if n <= 0 {
		return UsageInfo{}, errors.Join(ErrValidation, errors.New("usage increment must be positive"))
	}

	var info UsageInfo
	_, _, err := s.mutate(ctx, s.byUser(userID), func(_ context.Context, acc *Account, _ time.Time) (bool, error) {
		limit, err := s.limitFor(acc.Subscription, res)
		if err != nil {
			return false, err
		}
		used := acc.Subscription.Usage[res]
		info = UsageInfo{Used: used, Limit: limit}
		if limit != plans.Unlimited && used+n > limit {
			return false, ErrLimitExceeded
		}
		if acc.Subscription.Usage == nil {
			acc.Subscription.Usage = make(map[plans.Resource]int64)
		}
		acc.Subscription.Usage[res] = used + n
		info.Used = used + n
		return true, nil
	})
	if err != nil {
		return info, err
	}
	return info, nil
}

// Usage reports every limited resource of the account's plan.
func (s *Service) Usage(ctx context.Context, userID string) (map[plans.Resource]UsageInfo, error) {
	acc, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	plan, err := s.catalog.Plan(acc.Subscription.Plan)
	if err != nil {
		return nil, err
	}

	out := make(map[plans.Resource]UsageInfo, len(plan.Limits))
	for res := range plan.Limits {
		limit, _ := plan.Limit(res, acc.Subscription.Status == StatusTrialing)
		out[res] = UsageInfo{Used: acc.Subscription.Usage[res], Limit: limit}
	}
	return out, nil
}

func (s *Service) limitFor(sub Subscription, res plans.Resource) (int64, error) {
	plan, err := s.catalog.Plan(sub.Plan)
	if err != nil {
		return 0, err
	}
	limit, ok := plan.Limit(res, sub.Status == StatusTrialing)
	if !ok {
		return 0, errors.Join(ErrValidation, fmt.Errorf("resource %q is not tracked by plan %q", res, sub.Plan))
	}
	return limit, nil
}
