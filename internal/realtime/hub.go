package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// Hub fans change-feed events out to every connected session. Each session
// filters for relevance itself.
type Hub struct {
	feed Feed

	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

func NewHub(feed Feed) *Hub {
	return &Hub{
		feed:     feed,
		sessions: make(map[*Session]struct{}),
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	s.Close()
}

// Run consumes the feed until ctx is done. Feed errors end the loop; the
// caller decides whether to restart.
func (h *Hub) Run(ctx context.Context) error {
	events, cancel, err := h.feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	slog.Info("change feed subscribed")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			h.mu.RLock()
			for s := range h.sessions {
				s.Enqueue(ev)
			}
			h.mu.RUnlock()
		}
	}
}
