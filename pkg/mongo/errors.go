package mongo

import "errors"

var (
	ErrEmptyConnectionURL     = errors.New("mongo: MONGODB_URL is empty")
	ErrEmptyDatabase          = errors.New("mongo: MONGODB_DATABASE is empty")
	ErrFailedToConnectToMongo = errors.New("mongo: server not reachable")
	ErrHealthcheckFailed      = errors.New("mongo: primary not available")
)
