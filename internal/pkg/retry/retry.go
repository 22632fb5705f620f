package retry

import (
	"context"
	"math/rand"
	"time"
)

type Strategy int

const (
	// Exponential doubles the delay after every failed attempt.
	Exponential Strategy = iota
	// Linear waits Base*n after the n-th failed attempt.
	Linear
)

type Policy struct {
	Attempts     int
	Base         time.Duration
	Max          time.Duration
	Strategy     Strategy
	JitterFactor float64
}

// Do runs fn up to p.Attempts times, sleeping between attempts according to
// the policy. It returns nil on the first success, ctx.Err() if the context
// ends during a delay, and otherwise the error from the final attempt.
// There is no delay after the last attempt.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		err error
		r   *rand.Rand
	)
	if p.JitterFactor > 0 {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	exp := p.Base
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		var delay time.Duration
		switch p.Strategy {
		case Linear:
			delay = p.Base * time.Duration(i)
		default:
			delay = exp
			exp *= 2
		}
		if r != nil {
			jitter := 1 + p.JitterFactor*(2*r.Float64()-1)
			delay = time.Duration(float64(delay) * jitter)
		}
		if p.Max > 0 && delay > p.Max {
			delay = p.Max
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
