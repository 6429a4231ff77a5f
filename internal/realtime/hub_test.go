package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
)

func TestLocalFeedDeliversToAllSubscribers(t *testing.T) {
	feed := NewLocalFeed()

	a, cancelA, err := feed.Subscribe(context.Background())
	require.NoError(t, err)
	defer cancelA()
	b, cancelB, err := feed.Subscribe(context.Background())
	require.NoError(t, err)
	defer cancelB()

	ev := Event{Entity: EntityMessage, Op: OpInsert, Message: &models.Message{ID: uuid.New()}}
	require.NoError(t, feed.Publish(context.Background(), ev))

	for _, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			assert.Equal(t, ev.Message.ID, got.Message.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestLocalFeedCancelStopsDelivery(t *testing.T) {
	feed := NewLocalFeed()

	ch, cancel, err := feed.Subscribe(context.Background())
	require.NoError(t, err)
	cancel()

	require.NoError(t, feed.Publish(context.Background(), Event{Entity: EntityMessage, Op: OpInsert}))

	select {
	case ev := <-ch:
		t.Fatalf("received event after cancel: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubFansOutToSessions(t *testing.T) {
	feed := NewLocalFeed()
	hub := NewHub(feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	me := uuid.New()
	views := &fakeViews{}
	s := startSession(t, me, views)
	hub.Register(s)
	defer hub.Unregister(s)

	// Give the hub a beat to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	msg := models.Message{ID: uuid.New(), SenderID: uuid.New(), ReceiverID: me, Body: "ping"}
	require.NoError(t, feed.Publish(context.Background(), Event{
		Entity:  EntityMessage,
		Op:      OpInsert,
		Message: &msg,
	}))

	f := nextFrame(t, s)
	assert.Equal(t, FrameInbox, f.Type)
	f = nextFrame(t, s)
	assert.Equal(t, FrameNotify, f.Type)
}
