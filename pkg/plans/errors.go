package plans

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrInvalidCycle      = errors.New("invalid billing cycle")
	ErrInvalidCatalog    = errors.New("invalid plan catalog")
	ErrFailedToLoadPlans = errors.New("failed to load plan catalog")
)
