package plans

const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"

	DefaultTrialDays = 14
)

// DefaultCatalog returns the built-in catalog: a free starter tier and two paid tiers.
func DefaultCatalog() *Catalog {
	return MustNewCatalog(PlanStarter, DefaultTrialDays,
		Plan{
			ID:   PlanStarter,
			Name: "Starter",
			Limits: map[Resource]int64{
				ResourceDocuments:   20,
				ResourceAICredits:   50,
				ResourceExports:     5,
				ResourceTeamMembers: 1,
			},
			TrialLimits: map[Resource]int64{
				ResourceDocuments: 50,
				ResourceAICredits: 200,
				ResourceExports:   20,
			},
		},
		Plan{
			ID:   PlanProfessional,
			Name: "Professional",
			Prices: map[Cycle]Money{
				CycleMonthly: {Amount: 49900, Currency: "INR"},
				CycleYearly:  {Amount: 499000, Currency: "INR"},
			},
			Limits: map[Resource]int64{
				ResourceDocuments:   1000,
				ResourceAICredits:   2000,
				ResourceExports:     Unlimited,
				ResourceTeamMembers: 5,
			},
			Features: []Feature{FeatureExports, FeatureAPI},
		},
		Plan{
			ID:   PlanEnterprise,
			Name: "Enterprise",
			Prices: map[Cycle]Money{
				CycleMonthly: {Amount: 149900, Currency: "INR"},
				CycleYearly:  {Amount: 1499000, Currency: "INR"},
			},
			Limits: map[Resource]int64{
				ResourceDocuments:   Unlimited,
				ResourceAICredits:   20000,
				ResourceExports:     Unlimited,
				ResourceTeamMembers: Unlimited,
			},
			Features: []Feature{
				FeatureExports,
				FeatureAPI,
				FeatureCustomBranding,
				FeaturePrioritySupport,
				FeatureSSO,
			},
		},
	)
}
