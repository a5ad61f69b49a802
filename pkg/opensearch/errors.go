package opensearch

import "errors"

var (
	ErrNoAddresses       = errors.New("opensearch: OPENSEARCH_ADDRESSES is empty")
	ErrConnectionFailed  = errors.New("opensearch: client setup failed")
	ErrHealthcheckFailed = errors.New("opensearch: cluster not healthy")
)
