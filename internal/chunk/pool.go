package chunk

import (
	"runtime"

	"go.uber.org/zap"
)

// Pool bounds how many work units run concurrently. Units share no mutable
// state; each reads only its own input slice plus run-wide read-only data.
type Pool struct {
	sem    chan struct{}
	logger *zap.Logger
}

// NewPool creates a pool running at most workers units at once. If workers
// is 0, runtime.NumCPU() is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		sem:    make(chan struct{}, workers),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for unit lifecycle messages.
func (p *Pool) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Handle is the promise for one submitted unit's result. It is resolved
// exactly once, by the unit itself.
type Handle[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Await blocks until the unit completes and returns its result.
func (h *Handle[T]) Await() (T, error) {
	<-h.done
	return h.val, h.err
}

// Submit schedules fn as an independent work unit and returns its handle.
// Completion order between sibling units is unspecified; order-sensitive
// consumers must sort on semantic keys after collection.
func Submit[T any](p *Pool, fn func() (T, error)) *Handle[T] {
	h := &Handle[T]{done: make(chan struct{})}
	go func() {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		h.val, h.err = fn()
		if h.err != nil {
			p.logger.Warn("work unit failed", zap.Error(h.err))
		}
		close(h.done)
	}()
	return h
}

// AwaitAll is the fan-in point: it blocks until every handle resolves and
// returns the results in submission order. The first unit error is
// returned after all units have finished, so no unit is abandoned while
// still running.
func AwaitAll[T any](handles []*Handle[T]) ([]T, error) {
	out := make([]T, len(handles))
	var firstErr error
	for i, h := range handles {
		v, err := h.Await()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[i] = v
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
