package realtime

import (
	"context"
	"sync"
)

// Feed carries insert/update events from the write path to subscribers.
// Delivery is eventually consistent; no ordering guarantee beyond
// per-publisher sequencing.
type Feed interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// LocalFeed is an in-process Feed for single-node deployments and tests.
type LocalFeed struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[chan Event]struct{})}
}

func (f *LocalFeed) Publish(_ context.Context, ev Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the write path.
		}
	}
	return nil
}

func (f *LocalFeed) Subscribe(_ context.Context) (<-chan Event, func(), error) {
	ch := make(chan Event, 64)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
	return ch, cancel, nil
}
