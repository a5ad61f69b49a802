package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redis: REDIS_URL is empty")
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection url")
	ErrRedisNotReady                = errors.New("redis: server not ready before retries ran out")
	ErrHealthcheckFailed            = errors.New("redis: healthcheck failed")
	// ErrLockFailed wraps lease errors other than "held by someone else".
	ErrLockFailed = errors.New("redis: job lease failed")
)
