// Package plans provides the immutable plan catalog used by the billing engine.
//
// A Catalog maps plan identifiers to prices per billing cycle, feature flags,
// resource limits and trial limits. It is built once at startup, either from
// DefaultCatalog or from a YAML file, and then shared by reference between
// components. A Catalog is never mutated after construction, so concurrent
// reads need no synchronization.
//
// # Usage
//
//	catalog := plans.DefaultCatalog()
//
//	price, err := catalog.Price("enterprise", plans.CycleYearly)
//	if err != nil {
//		// plans.ErrPlanNotFound or plans.ErrInvalidCycle
//	}
//
// Loading from YAML:
//
//	catalog, err := plans.LoadFile("configs/plans.yaml")
//
// The file format:
//
//	default_plan: starter
//	trial_days: 14
//	plans:
//	  - id: starter
//	    name: Starter
//	    limits: {documents: 20}
//	  - id: professional
//	    name: Professional
//	    prices:
//	      monthly: {amount: 49900, currency: INR}
//	      yearly: {amount: 499000, currency: INR}
//	    features: [exports]
//
// The default plan must be free. It is the plan every new account trials on and
// the plan subscriptions are demoted to when they expire.
package plans
