package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrPublishFailed                = errors.New("redis publish failed")
	ErrSubscribeFailed              = errors.New("redis subscribe failed")
	ErrUnsubscribeFailed            = errors.New("redis unsubscribe failed")
	ErrConnClosed                   = errors.New("redis pubsub connection is closed")
)
