// Package keyed runs the fetch behind one dependent form field.
//
// A Loader remembers the last key it resolved and returns that result again
// without calling out; concurrent loads of the same key share one call; a load
// for a different key cancels the one in flight, and results for keys that are
// no longer current are discarded.
package keyed

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned to callers whose key was replaced before the load finished.
var ErrSuperseded = errors.New("keyed: load superseded by a newer key")

type Loader[V any] struct {
	mu    sync.Mutex
	group singleflight.Group

	current string
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc

	hasValue bool
	valueKey string
	value    V

	// Calls counts fetches actually started.
	calls int

	onSuperseded func(key string)
}

// OnSuperseded registers a hook called with the key whose load was canceled.
func (l *Loader[V]) OnSuperseded(fn func(key string)) {
	l.mu.Lock()
	l.onSuperseded = fn
	l.mu.Unlock()
}

// Load resolves key, calling fn at most once per distinct consecutive key.
// The context handed to fn keeps ctx's values but is canceled only when a
// newer key supersedes it or the loader is reset.
func (l *Loader[V]) Load(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	var zero V

	l.mu.Lock()
	if l.hasValue && l.valueKey == key && l.current == key {
		v := l.value
		l.mu.Unlock()
		return v, nil
	}

	if l.current != key || l.ctx == nil {
		l.supersedeLocked()
		l.gen++
		l.current = key
		l.ctx, l.cancel = context.WithCancel(context.WithoutCancel(ctx))
		l.hasValue = false
	}
	gen := l.gen
	loadCtx := l.ctx
	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	l.mu.Unlock()

	ch := l.group.DoChan(flightKey, func() (any, error) {
		l.mu.Lock()
		l.calls++
		l.mu.Unlock()
		v, err := fn(loadCtx)
		l.settle(gen, key, v, err)
		return v, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.gen != gen {
		return zero, ErrSuperseded
	}
	if res.Err != nil {
		return zero, res.Err
	}
	v, _ := res.Val.(V)
	return v, nil
}

// settle records the outcome of a load even when every caller stopped waiting,
// so a later Load of the same key finds it. A failure releases the context and
// leaves the key to be fetched again.
func (l *Loader[V]) settle(gen uint64, key string, v V, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return
	}
	if err != nil {
		if l.cancel != nil {
			l.cancel()
		}
		l.ctx, l.cancel = nil, nil
		return
	}
	l.hasValue = true
	l.valueKey = key
	l.value = v
}

// Peek returns the memoized value for key, if any.
func (l *Loader[V]) Peek(key string) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasValue && l.valueKey == key {
		return l.value, true
	}
	var zero V
	return zero, false
}

// Reset cancels any load in flight and forgets the memoized value.
func (l *Loader[V]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.supersedeLocked()
	l.gen++
	l.current = ""
	l.ctx, l.cancel = nil, nil
	l.hasValue = false
	var zero V
	l.value = zero
}

// Calls reports how many fetches were started.
func (l *Loader[V]) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *Loader[V]) supersedeLocked() {
	if l.cancel == nil {
		return
	}
	if !l.hasValue && l.onSuperseded != nil {
		l.onSuperseded(l.current)
	}
	l.cancel()
}
