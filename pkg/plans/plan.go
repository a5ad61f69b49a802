package plans

import (
	"maps"
	"slices"
)

// Plan describes one subscription tier. Plans are values; the catalog hands out
// copies so callers cannot mutate shared state.
type Plan struct {
	ID          string
	Name        string
	Prices      map[Cycle]Money
	Limits      map[Resource]int64 // -1 represents unlimited
	TrialLimits map[Resource]int64 // limits applied while the account is trialing
	Features    []Feature
}

// Free reports whether the plan costs nothing in every cycle.
func (p Plan) Free() bool {
	for _, price := range p.Prices {
		if !price.IsZero() {
			return false
		}
	}
	return true
}

// Price returns the plan price for a billing cycle.
// Free plans report a zero price for every valid cycle.
func (p Plan) Price(c Cycle) (Money, error) {
	if !c.Valid() {
		return Money{}, ErrInvalidCycle
	}
	price, ok := p.Prices[c]
	if !ok {
		if p.Free() {
			return Money{}, nil
		}
		return Money{}, ErrInvalidCycle
	}
	return price, nil
}

// HasFeature reports whether the plan includes the feature.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// Limit returns the plan limit for a resource.
// Trialing accounts use TrialLimits when the plan defines them.
func (p Plan) Limit(res Resource, trialing bool) (int64, bool) {
	if trialing && p.TrialLimits != nil {
		if v, ok := p.TrialLimits[res]; ok {
			return v, true
		}
	}
	v, ok := p.Limits[res]
	return v, ok
}

func (p Plan) clone() Plan {
	p.Prices = maps.Clone(p.Prices)
	p.Limits = maps.Clone(p.Limits)
	p.TrialLimits = maps.Clone(p.TrialLimits)
	p.Features = slices.Clone(p.Features)
	return p
}
