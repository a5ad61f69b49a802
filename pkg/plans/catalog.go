package plans

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Catalog is the process-wide, read-only plan registry.
type Catalog struct {
	plans         map[string]Plan
	order         []string
	defaultPlanID string
	trialDays     int
}

// NewCatalog validates the plans and builds an immutable catalog.
// The default plan must exist and be free; trialDays must be positive.
func NewCatalog(defaultPlanID string, trialDays int, plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidCatalog, errors.New("no plans defined"))
	}
	if trialDays <= 0 {
		return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("trial days must be positive, got %d", trialDays))
	}

	c := &Catalog{
		plans:         make(map[string]Plan, len(plans)),
		order:         make([]string, 0, len(plans)),
		defaultPlanID: defaultPlanID,
		trialDays:     trialDays,
	}

	for _, p := range plans {
		if strings.TrimSpace(p.ID) == "" {
			return nil, errors.Join(ErrInvalidCatalog, errors.New("plan with empty ID"))
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate plan %q", p.ID))
		}
		if err := validatePrices(p); err != nil {
			return nil, errors.Join(ErrInvalidCatalog, err)
		}
		c.plans[p.ID] = p.clone()
		c.order = append(c.order, p.ID)
	}

	def, ok := c.plans[defaultPlanID]
	if !ok {
		return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("default plan %q is not defined", defaultPlanID))
	}
	if !def.Free() {
		return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("default plan %q must be free", defaultPlanID))
	}

	return c, nil
}

// MustNewCatalog is like NewCatalog but panics on invalid input.
func MustNewCatalog(defaultPlanID string, trialDays int, plans ...Plan) *Catalog {
	c, err := NewCatalog(defaultPlanID, trialDays, plans...)
	if err != nil {
		panic(err)
	}
	return c
}

func validatePrices(p Plan) error {
	var currency string
	for cycle, price := range p.Prices {
		if !cycle.Valid() {
			return fmt.Errorf("plan %q: %w: %q", p.ID, ErrInvalidCycle, cycle)
		}
		if price.Amount < 0 {
			return fmt.Errorf("plan %q: negative price for %s", p.ID, cycle)
		}
		if price.Amount > 0 && price.Currency == "" {
			return fmt.Errorf("plan %q: missing currency for %s", p.ID, cycle)
		}
		// Multi-currency settlement is not supported: one currency per plan.
		if price.Currency != "" {
			if currency != "" && currency != price.Currency {
				return fmt.Errorf("plan %q mixes currencies %s and %s", p.ID, currency, price.Currency)
			}
			currency = price.Currency
		}
	}
	return nil
}

// Plan returns a copy of the plan with the given ID.
func (c *Catalog) Plan(id string) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p.clone(), nil
}

// Price returns the price of a plan for a billing cycle.
func (c *Catalog) Price(id string, cycle Cycle) (Money, error) {
	p, ok := c.plans[id]
	if !ok {
		return Money{}, ErrPlanNotFound
	}
	return p.Price(cycle)
}

// IsFree reports whether the plan exists and is free.
func (c *Catalog) IsFree(id string) bool {
	p, ok := c.plans[id]
	return ok && p.Free()
}

// DefaultPlanID returns the free tier plan ID.
func (c *Catalog) DefaultPlanID() string {
	return c.defaultPlanID
}

// TrialDays returns the trial and free tier duration in days.
func (c *Catalog) TrialDays() int {
	return c.trialDays
}

// TrialDuration is TrialDays expressed as a duration.
func (c *Catalog) TrialDuration() time.Duration {
	return time.Duration(c.trialDays) * 24 * time.Hour
}

// Plans returns copies of all plans in declaration order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id].clone())
	}
	return out
}

// IDs returns plan identifiers in declaration order.
func (c *Catalog) IDs() []string {
	return slices.Clone(c.order)
}
