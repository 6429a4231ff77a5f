package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/realtime"
	"gorm.io/gorm"
)

func newMessageFixture(t *testing.T, friendGate bool) (*gorm.DB, *MessageService, *FriendshipService, *captureFeed) {
	t.Helper()

	db := newTestDB(t)
	feed := &captureFeed{}
	profiles := NewProfileService(db)
	friends := NewFriendshipService(db, profiles, feed)
	messages := NewMessageService(db, friends, feed, friendGate)
	return db, messages, friends, feed
}

func makeFriends(t *testing.T, svc *FriendshipService, a, b uuid.UUID) {
	t.Helper()

	request, err := svc.SendRequest(a, b)
	require.NoError(t, err)
	_, err = svc.Respond(request.ID, b, true)
	require.NoError(t, err)
}

func TestSendRequiresFriendship(t *testing.T) {
	db, messages, friends, _ := newMessageFixture(t, true)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	_, err := messages.Send(alice, bob, "drink water!")
	assert.ErrorIs(t, err, ErrNotFriends)

	makeFriends(t, friends, alice, bob)

	msg, err := messages.Send(alice, bob, "drink water!")
	require.NoError(t, err)
	assert.False(t, msg.IsRead)
	assert.Equal(t, "drink water!", msg.Body)
}

func TestSendWithGateDisabledAllowsNonFriends(t *testing.T) {
	db, messages, _, _ := newMessageFixture(t, false)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	_, err := messages.Send(alice, bob, "hello stranger")
	require.NoError(t, err)
}

func TestSendValidatesBody(t *testing.T) {
	db, messages, friends, feed := newMessageFixture(t, true)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	makeFriends(t, friends, alice, bob)

	before := len(feed.all())

	_, err := messages.Send(alice, bob, "   ")
	assert.ErrorIs(t, err, ErrEmptyBody)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	_, err = messages.Send(alice, bob, string(long))
	assert.ErrorIs(t, err, ErrBodyTooLong)

	// Validation failures never reach the store or the feed.
	assert.Len(t, feed.all(), before)
}

func TestInboxAndOutboxAreBoundedNewestFirst(t *testing.T) {
	db, messages, _, _ := newMessageFixture(t, false)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		require.NoError(t, db.Create(&models.Message{
			ID:         uuid.New(),
			SenderID:   alice,
			ReceiverID: bob,
			Body:       "nudge",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	inbox, err := messages.Inbox(bob, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 5)
	for i := 1; i < len(inbox); i++ {
		assert.True(t, inbox[i].CreatedAt.Before(inbox[i-1].CreatedAt))
	}

	outbox, err := messages.Outbox(alice, 0)
	require.NoError(t, err)
	assert.Len(t, outbox, 5)

	// An explicit limit above the cap is clamped.
	all, err := messages.Inbox(bob, 500)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	db, messages, friends, feed := newMessageFixture(t, true)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	makeFriends(t, friends, alice, bob)

	msg, err := messages.Send(alice, bob, "drink water!")
	require.NoError(t, err)

	updated, err := messages.MarkRead(msg.ID, bob)
	require.NoError(t, err)
	assert.True(t, updated.IsRead)

	eventsAfterFirst := len(feed.all())

	again, err := messages.MarkRead(msg.ID, bob)
	require.NoError(t, err)
	assert.True(t, again.IsRead)

	// The no-op second call publishes nothing.
	assert.Len(t, feed.all(), eventsAfterFirst)
}

func TestMarkReadGuards(t *testing.T) {
	db, messages, friends, _ := newMessageFixture(t, true)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	makeFriends(t, friends, alice, bob)

	msg, err := messages.Send(alice, bob, "drink water!")
	require.NoError(t, err)

	_, err = messages.MarkRead(uuid.New(), bob)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	// The sender cannot flip the receiver's read flag.
	_, err = messages.MarkRead(msg.ID, alice)
	assert.ErrorIs(t, err, ErrNotMessageReceiver)
}

func TestMessageEventsArePublished(t *testing.T) {
	db, messages, friends, feed := newMessageFixture(t, true)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	makeFriends(t, friends, alice, bob)

	start := len(feed.all())

	msg, err := messages.Send(alice, bob, "drink water!")
	require.NoError(t, err)
	_, err = messages.MarkRead(msg.ID, bob)
	require.NoError(t, err)

	events := feed.all()[start:]
	require.Len(t, events, 2)
	assert.Equal(t, realtime.EntityMessage, events[0].Entity)
	assert.Equal(t, realtime.OpInsert, events[0].Op)
	assert.Equal(t, realtime.OpUpdate, events[1].Op)
	assert.True(t, events[1].Message.IsRead)
}
