// Package breaker is a minimal circuit breaker guarding calls to the remote
// spreadsheet API. After Threshold consecutive failures the circuit opens;
// after OpenTimeout it lets up to MaxHalfOpen trial calls through, closing
// again on the first success. Outcomes are reported explicitly via
// Success/Failure.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/nlukin/sheet-orders/internal/config"
)

var ErrOpenState = errors.New("circuit breaker is open")

type State uint8

const (
	Closed State = iota
	Open
	HalfOpen
)

type Breaker struct {
	mu sync.Mutex

	cfg         config.Breaker
	state       State
	failCount   uint32
	openedAt    time.Time
	halfOpenReq uint32
}

func New(cfg config.Breaker) *Breaker {
	return &Breaker{
		cfg:   cfg,
		state: Closed,
	}
}

// Allow reports whether a call may proceed, transitioning Open -> HalfOpen
// once the open timeout has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if time.Since(b.openedAt) < b.cfg.OpenTimeout {
			return ErrOpenState
		}
		b.state = HalfOpen
		b.halfOpenReq = 1
		return nil
	default: // HalfOpen
		if b.halfOpenReq >= b.cfg.MaxHalfOpen {
			return ErrOpenState
		}
		b.halfOpenReq++
		return nil
	}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failCount = 0
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failCount++
		if b.failCount >= b.cfg.Threshold {
			b.state = Open
			b.openedAt = time.Now()
		}
	case HalfOpen:
		b.state = Open
		b.openedAt = time.Now()
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
