package main

import (
	"time"

	"github.com/cenkalti/backoff"
)

// reconnectPolicy wraps an exponential backoff with jitter disabled, so the
// delay sequence is exactly base, 2*base, 4*base, ... capped at the
// configured maximum.
type reconnectPolicy struct {
	inner *backoff.ExponentialBackOff
}

func newReconnectPolicy(base, cap time.Duration) *reconnectPolicy {
	inner := backoff.NewExponentialBackOff()
	inner.InitialInterval = base
	inner.RandomizationFactor = 0
	inner.Multiplier = 2
	inner.MaxInterval = cap
	inner.MaxElapsedTime = 0
	inner.Reset()
	return &reconnectPolicy{inner: inner}
}

func (p *reconnectPolicy) Next() time.Duration {
	return p.inner.NextBackOff()
}

func (p *reconnectPolicy) Reset() {
	p.inner.Reset()
}
