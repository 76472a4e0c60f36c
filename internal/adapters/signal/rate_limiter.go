package signal

import "golang.org/x/time/rate"

// messageLimiter caps inbound messages on one connection.
type messageLimiter struct {
	limiter *rate.Limiter
}

func newMessageLimiter(limit rate.Limit, burst int) *messageLimiter {
	return &messageLimiter{limiter: rate.NewLimiter(limit, burst)}
}

func (l *messageLimiter) Allow() bool {
	return l.limiter.Allow()
}
