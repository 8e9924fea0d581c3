package push

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errCircuitOpen = errors.New("push: circuit open, webhook appears to be down")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker trips after failThreshold consecutive failed sends and stays open
// for resetAfter before allowing a single probe call through, so a dead
// webhook fails fast instead of spending the retry budget on every item in
// a large backlog.
type breaker struct {
	mu       sync.Mutex
	state    breakerState
	fails    int
	openedAt time.Time

	failThreshold int
	resetAfter    time.Duration
}

func newBreaker() *breaker {
	return &breaker{failThreshold: 5, resetAfter: 30 * time.Second}
}

func (b *breaker) call(ctx context.Context, f func(context.Context) error) error {
	b.mu.Lock()
	if b.state == breakerOpen {
		if time.Since(b.openedAt) < b.resetAfter {
			b.mu.Unlock()
			return errCircuitOpen
		}
		b.state = breakerHalfOpen
	}
	b.mu.Unlock()

	err := f(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.fails++
		if b.state == breakerHalfOpen || b.fails >= b.failThreshold {
			b.state = breakerOpen
			b.openedAt = time.Now()
			b.fails = 0
		}
		return err
	}
	b.state = breakerClosed
	b.fails = 0
	return nil
}
