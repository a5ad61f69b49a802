package plans

import "strings"

// Cycle is the billing recurrence unit.
type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleYearly  Cycle = "yearly"
)

// Days returns the number of days a paid cycle extends a subscription.
// Returns 0 for unknown cycles.
func (c Cycle) Days() int {
	switch c {
	case CycleMonthly:
		return 30
	case CycleYearly:
		return 365
	default:
		return 0
	}
}

// Valid reports whether the cycle is one of the supported values.
func (c Cycle) Valid() bool {
	return c.Days() > 0
}

// ParseCycle normalizes user input into a Cycle.
// Accepts "annual" as an alias of yearly.
func ParseCycle(s string) (Cycle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return CycleMonthly, nil
	case "yearly", "year", "annual":
		return CycleYearly, nil
	default:
		return "", ErrInvalidCycle
	}
}

// Money represents an amount in the smallest currency unit.
// For example, 499.00 INR is Amount: 49900, Currency: "INR".
type Money struct {
	Amount   int64  `yaml:"amount" json:"amount"`
	Currency string `yaml:"currency" json:"currency"`
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Resource is a per-period usage counter tracked on every account.
type Resource string

const (
	ResourceDocuments   Resource = "documents"
	ResourceAICredits   Resource = "ai_credits"
	ResourceExports     Resource = "exports"
	ResourceTeamMembers Resource = "team_members"
)

// Unlimited marks a resource without a limit.
const Unlimited int64 = -1

// Feature is a capability toggled per plan.
type Feature string

const (
	FeatureExports         Feature = "exports"
	FeatureAPI             Feature = "api"
	FeatureCustomBranding  Feature = "custom_branding"
	FeaturePrioritySupport Feature = "priority_support"
	FeatureSSO             Feature = "sso"
)
