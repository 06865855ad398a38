package lock

import (
	"context"
	"sync"
	"time"
)

// Keyed is an in-process Locker. Entries are created on demand and dropped
// once no goroutine holds or waits for them.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
	wait  time.Duration
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyed returns a Keyed locker. A non-positive wait blocks until ctx is
// done.
func NewKeyed(wait time.Duration) *Keyed {
	return &Keyed{locks: make(map[string]*keyedEntry), wait: wait}
}

func (k *Keyed) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	e := k.ref(key)

	waitCtx, cancel := waitContext(ctx, k.wait)
	defer cancel()

	select {
	case e.ch <- struct{}{}:
	case <-waitCtx.Done():
		k.unref(key, e)
		return nil, acquireErr(ctx, key)
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-e.ch
			k.unref(key, e)
		})
		return nil
	}, nil
}

func (k *Keyed) ref(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) unref(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// size reports the number of live entries.
func (k *Keyed) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
