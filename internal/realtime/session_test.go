package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/dto"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
)

// fakeViews serves canned windows and counts refresh calls so tests can
// tell a refresh from a discard.
type fakeViews struct {
	mu      sync.Mutex
	inbox   []models.Message
	outbox  []models.Message
	friends []dto.FriendResponse
	pending []dto.PendingRequestResponse

	inboxCalls   int
	outboxCalls  int
	friendCalls  int
	pendingCalls int
}

func (f *fakeViews) Inbox(_ uuid.UUID, _ int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inboxCalls++
	return f.inbox, nil
}

func (f *fakeViews) Outbox(_ uuid.UUID, _ int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outboxCalls++
	return f.outbox, nil
}

func (f *fakeViews) ListFriends(_ uuid.UUID) ([]dto.FriendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friendCalls++
	return f.friends, nil
}

func (f *fakeViews) ListPending(_ uuid.UUID) ([]dto.PendingRequestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingCalls++
	return f.pending, nil
}

func (f *fakeViews) calls() (inbox, outbox, friends, pending int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inboxCalls, f.outboxCalls, f.friendCalls, f.pendingCalls
}

func startSession(t *testing.T, userID uuid.UUID, views *fakeViews) *Session {
	t.Helper()

	s := NewSession(userID, views, views)
	go s.Run()
	t.Cleanup(s.Close)

	// First frame is always the snapshot.
	f := nextFrame(t, s)
	require.Equal(t, FrameSnapshot, f.Type)
	return s
}

func nextFrame(t *testing.T, s *Session) Frame {
	t.Helper()

	select {
	case f, ok := <-s.Frames():
		require.True(t, ok, "frame channel closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func assertNoFrame(t *testing.T, s *Session) {
	t.Helper()

	select {
	case f := <-s.Frames():
		t.Fatalf("unexpected frame %q", f.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionDiscardsUnrelatedEvents(t *testing.T) {
	me := uuid.New()
	views := &fakeViews{}
	s := startSession(t, me, views)

	snapInbox, snapOutbox, snapFriends, snapPending := views.calls()

	// A message between two strangers must not touch this session.
	s.Enqueue(Event{Entity: EntityMessage, Op: OpInsert, Message: &models.Message{
		ID:         uuid.New(),
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Body:       "drink water",
	}})
	s.Enqueue(Event{Entity: EntityFriendRequest, Op: OpInsert, FriendRequest: &models.FriendRequest{
		ID:         uuid.New(),
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Status:     models.FriendRequestPending,
	}})

	assertNoFrame(t, s)
	inbox, outbox, friends, pending := views.calls()
	assert.Equal(t, snapInbox, inbox)
	assert.Equal(t, snapOutbox, outbox)
	assert.Equal(t, snapFriends, friends)
	assert.Equal(t, snapPending, pending)
}

func TestSessionMessageInsertForReceiver(t *testing.T) {
	me := uuid.New()
	sender := uuid.New()
	msg := models.Message{ID: uuid.New(), SenderID: sender, ReceiverID: me, Body: "hydrate!"}
	views := &fakeViews{inbox: []models.Message{msg}}
	s := startSession(t, me, views)

	s.Enqueue(Event{Entity: EntityMessage, Op: OpInsert, Message: &msg})

	f := nextFrame(t, s)
	require.Equal(t, FrameInbox, f.Type)
	window, ok := f.Data.([]models.Message)
	require.True(t, ok)
	require.Len(t, window, 1)
	assert.Equal(t, msg.ID, window[0].ID)

	f = nextFrame(t, s)
	require.Equal(t, FrameNotify, f.Type)
	n, ok := f.Data.(notifyData)
	require.True(t, ok)
	assert.True(t, n.Sound)
	assert.Equal(t, "hydrate!", n.Body)
}

func TestSessionMessageInsertForSenderRefreshesOutbox(t *testing.T) {
	me := uuid.New()
	msg := models.Message{ID: uuid.New(), SenderID: me, ReceiverID: uuid.New(), Body: "sent elsewhere"}
	views := &fakeViews{outbox: []models.Message{msg}}
	s := startSession(t, me, views)

	s.Enqueue(Event{Entity: EntityMessage, Op: OpInsert, Message: &msg})

	f := nextFrame(t, s)
	assert.Equal(t, FrameOutbox, f.Type)
	// No notification for our own sends.
	assertNoFrame(t, s)
}

func TestSessionMessageUpdatePatchesInPlace(t *testing.T) {
	me := uuid.New()
	msg := models.Message{ID: uuid.New(), SenderID: uuid.New(), ReceiverID: me, Body: "hi"}
	views := &fakeViews{inbox: []models.Message{msg}}
	s := startSession(t, me, views)

	read := msg
	read.IsRead = true
	s.Enqueue(Event{Entity: EntityMessage, Op: OpUpdate, Message: &read})

	f := nextFrame(t, s)
	require.Equal(t, FramePatch, f.Type)
	p, ok := f.Data.(patchData)
	require.True(t, ok)
	assert.Equal(t, msg.ID, p.MessageID)
	assert.True(t, p.IsRead)

	// An update for a row outside the window is a no-op.
	s.Enqueue(Event{Entity: EntityMessage, Op: OpUpdate, Message: &models.Message{
		ID:         uuid.New(),
		ReceiverID: me,
		IsRead:     true,
	}})
	assertNoFrame(t, s)
}

func TestSessionFriendRequestInsertForReceiver(t *testing.T) {
	me := uuid.New()
	sender := uuid.New()
	views := &fakeViews{pending: []dto.PendingRequestResponse{{
		RequestID:      uuid.New(),
		SenderID:       sender,
		SenderNickname: "alice",
	}}}
	s := startSession(t, me, views)

	s.Enqueue(Event{Entity: EntityFriendRequest, Op: OpInsert, FriendRequest: &models.FriendRequest{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: me,
		Status:     models.FriendRequestPending,
	}})

	f := nextFrame(t, s)
	assert.Equal(t, FramePending, f.Type)
	f = nextFrame(t, s)
	require.Equal(t, FrameNotify, f.Type)
	n, ok := f.Data.(notifyData)
	require.True(t, ok)
	assert.False(t, n.Sound)
}

func TestSessionAcceptRefreshesSenderFriendList(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	views := &fakeViews{}
	s := startSession(t, me, views)

	views.mu.Lock()
	views.friends = []dto.FriendResponse{{UserID: other, Nickname: "bob"}}
	views.mu.Unlock()

	accept := models.FriendRequest{
		ID:         uuid.New(),
		SenderID:   me,
		ReceiverID: other,
		Status:     models.FriendRequestAccepted,
	}
	s.Enqueue(Event{Entity: EntityFriendRequest, Op: OpUpdate, FriendRequest: &accept})

	f := nextFrame(t, s)
	require.Equal(t, FrameFriends, f.Type)
	friends, ok := f.Data.([]dto.FriendResponse)
	require.True(t, ok)
	require.Len(t, friends, 1)
	assert.Equal(t, other, friends[0].UserID)

	// A duplicate accept for someone already in the friend set is skipped.
	s.Enqueue(Event{Entity: EntityFriendRequest, Op: OpUpdate, FriendRequest: &accept})
	assertNoFrame(t, s)
}

func TestSessionRejectForReceiverRefreshesPendingOnly(t *testing.T) {
	me := uuid.New()
	views := &fakeViews{}
	s := startSession(t, me, views)

	_, _, friendsBefore, _ := views.calls()

	s.Enqueue(Event{Entity: EntityFriendRequest, Op: OpUpdate, FriendRequest: &models.FriendRequest{
		ID:         uuid.New(),
		SenderID:   uuid.New(),
		ReceiverID: me,
		Status:     models.FriendRequestRejected,
	}})

	f := nextFrame(t, s)
	assert.Equal(t, FramePending, f.Type)
	assertNoFrame(t, s)

	_, _, friendsAfter, _ := views.calls()
	assert.Equal(t, friendsBefore, friendsAfter)
}

func TestSessionCloseStopsEventHandling(t *testing.T) {
	me := uuid.New()
	views := &fakeViews{}
	s := startSession(t, me, views)

	s.Close()
	s.Enqueue(Event{Entity: EntityMessage, Op: OpInsert, Message: &models.Message{
		ID:         uuid.New(),
		ReceiverID: me,
	}})

	for {
		select {
		case _, ok := <-s.Frames():
			if !ok {
				assert.Equal(t, StateDisconnected, s.State())
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("frame channel never closed after Close")
		}
	}
}
