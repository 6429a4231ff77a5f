package realtime

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/dto"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
)

// MessageViews supplies the bounded inbox/outbox windows a session keeps live.
type MessageViews interface {
	Inbox(userID uuid.UUID, limit int) ([]models.Message, error)
	Outbox(userID uuid.UUID, limit int) ([]models.Message, error)
}

// FriendViews supplies the friend set and pending request list.
type FriendViews interface {
	ListFriends(userID uuid.UUID) ([]dto.FriendResponse, error)
	ListPending(userID uuid.UUID) ([]dto.PendingRequestResponse, error)
}

type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateSubscribing
	StateActive
)

// Frame is a single push to the connected client.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const (
	FrameSnapshot = "snapshot"
	FrameInbox    = "inbox"
	FrameOutbox   = "outbox"
	FramePatch    = "message_patch"
	FramePending  = "pending_requests"
	FrameFriends  = "friends"
	FrameNotify   = "notify"
)

type notifyData struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
	Sound bool   `json:"sound"`
}

type patchData struct {
	MessageID uuid.UUID `json:"message_id"`
	IsRead    bool      `json:"is_read"`
}

type snapshotData struct {
	Inbox   []models.Message             `json:"inbox"`
	Outbox  []models.Message             `json:"outbox"`
	Friends []dto.FriendResponse         `json:"friends"`
	Pending []dto.PendingRequestResponse `json:"pending_requests"`
}

// Session owns the per-connection view state: inbox window, outbox window,
// friend set, pending requests. It consumes change-feed events one at a
// time so a view is never patched halfway when the next event lands.
type Session struct {
	UserID uuid.UUID

	state    atomic.Int32
	events   chan Event
	out      chan Frame
	stop     chan struct{}
	stopped  atomic.Bool
	messages MessageViews
	friends  FriendViews

	inbox     []models.Message
	outbox    []models.Message
	friendSet map[uuid.UUID]struct{}
}

const inboxWindow = 5

func NewSession(userID uuid.UUID, messages MessageViews, friends FriendViews) *Session {
	return &Session{
		UserID:   userID,
		events:   make(chan Event, 64),
		out:      make(chan Frame, 64),
		stop:     make(chan struct{}),
		messages: messages,
		friends:  friends,
	}
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Frames returns the channel of outbound pushes for the transport to drain.
func (s *Session) Frames() <-chan Frame {
	return s.out
}

// Enqueue hands an event to the session. Events arriving after Close are
// dropped; a full queue drops the event rather than blocking the hub.
func (s *Session) Enqueue(ev Event) {
	if s.stopped.Load() {
		return
	}
	select {
	case s.events <- ev:
	default:
		slog.Warn("session event queue full, dropping", "user_id", s.UserID)
	}
}

// Close tears the session down; no further frames or event handling occur
// once it returns.
func (s *Session) Close() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stop)
	}
}

// Run loads the initial snapshots and then applies feed events until Close.
// It is the session's single thread of control.
func (s *Session) Run() {
	s.state.Store(int32(StateSubscribing))
	if err := s.loadSnapshot(); err != nil {
		slog.Error("session snapshot failed", "user_id", s.UserID, "error", err)
		// Empty-but-consistent views; events will refresh them.
	}
	s.state.Store(int32(StateActive))

	for {
		select {
		case <-s.stop:
			s.state.Store(int32(StateDisconnected))
			close(s.out)
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) loadSnapshot() error {
	inbox, err := s.messages.Inbox(s.UserID, inboxWindow)
	if err != nil {
		return err
	}
	outbox, err := s.messages.Outbox(s.UserID, inboxWindow)
	if err != nil {
		return err
	}
	friends, err := s.friends.ListFriends(s.UserID)
	if err != nil {
		return err
	}
	pending, err := s.friends.ListPending(s.UserID)
	if err != nil {
		return err
	}

	s.inbox = inbox
	s.outbox = outbox
	s.setFriends(friends)
	s.send(Frame{Type: FrameSnapshot, Data: snapshotData{
		Inbox:   inbox,
		Outbox:  outbox,
		Friends: friends,
		Pending: pending,
	}})
	return nil
}

func (s *Session) handle(ev Event) {
	switch {
	case ev.Entity == EntityMessage && ev.Op == OpInsert:
		s.handleMessageInsert(ev.Message)
	case ev.Entity == EntityMessage && ev.Op == OpUpdate:
		s.handleMessageUpdate(ev.Message)
	case ev.Entity == EntityFriendRequest && ev.Op == OpInsert:
		s.handleRequestInsert(ev.FriendRequest)
	case ev.Entity == EntityFriendRequest && ev.Op == OpUpdate:
		s.handleRequestUpdate(ev.FriendRequest)
	}
}

func (s *Session) handleMessageInsert(msg *models.Message) {
	if msg == nil {
		return
	}
	switch {
	case msg.ReceiverID == s.UserID:
		s.refreshInbox()
		s.send(Frame{Type: FrameNotify, Data: notifyData{
			Title: "Time to drink water",
			Body:  msg.Body,
			Tag:   "message-" + msg.ID.String(),
			Sound: true,
		}})
	case msg.SenderID == s.UserID:
		// Another active session of the same identity sent it.
		s.refreshOutbox()
	}
	// Unrelated pairs are discarded.
}

// handleMessageUpdate patches the matching row in place by identifier.
// A row outside the bounded window is a harmless no-op.
func (s *Session) handleMessageUpdate(msg *models.Message) {
	if msg == nil {
		return
	}
	for i := range s.inbox {
		if s.inbox[i].ID == msg.ID {
			s.inbox[i].IsRead = msg.IsRead
			s.send(Frame{Type: FramePatch, Data: patchData{MessageID: msg.ID, IsRead: msg.IsRead}})
			return
		}
	}
	for i := range s.outbox {
		if s.outbox[i].ID == msg.ID {
			s.outbox[i].IsRead = msg.IsRead
			s.send(Frame{Type: FramePatch, Data: patchData{MessageID: msg.ID, IsRead: msg.IsRead}})
			return
		}
	}
}

func (s *Session) handleRequestInsert(fr *models.FriendRequest) {
	if fr == nil || fr.ReceiverID != s.UserID {
		return
	}
	s.refreshPending()
	s.send(Frame{Type: FrameNotify, Data: notifyData{
		Title: "New friend request",
		Tag:   "request-" + fr.ID.String(),
		Sound: false,
	}})
}

func (s *Session) handleRequestUpdate(fr *models.FriendRequest) {
	if fr == nil {
		return
	}
	if fr.Status == models.FriendRequestAccepted && fr.SenderID == s.UserID {
		if _, ok := s.friendSet[fr.ReceiverID]; ok {
			// Duplicate accept (benign duplicate row); friend set already has them.
			return
		}
		s.refreshFriends()
		return
	}
	if fr.ReceiverID == s.UserID {
		// Accept or reject issued from another session of this identity.
		s.refreshPending()
		if fr.Status == models.FriendRequestAccepted {
			s.refreshFriends()
		}
	}
}

func (s *Session) refreshInbox() {
	inbox, err := s.messages.Inbox(s.UserID, inboxWindow)
	if err != nil {
		slog.Error("inbox refresh failed", "user_id", s.UserID, "error", err)
		return // previous window stays intact
	}
	s.inbox = inbox
	s.send(Frame{Type: FrameInbox, Data: inbox})
}

func (s *Session) refreshOutbox() {
	outbox, err := s.messages.Outbox(s.UserID, inboxWindow)
	if err != nil {
		slog.Error("outbox refresh failed", "user_id", s.UserID, "error", err)
		return
	}
	s.outbox = outbox
	s.send(Frame{Type: FrameOutbox, Data: outbox})
}

func (s *Session) refreshFriends() {
	friends, err := s.friends.ListFriends(s.UserID)
	if err != nil {
		slog.Error("friend list refresh failed", "user_id", s.UserID, "error", err)
		return
	}
	s.setFriends(friends)
	s.send(Frame{Type: FrameFriends, Data: friends})
}

func (s *Session) refreshPending() {
	pending, err := s.friends.ListPending(s.UserID)
	if err != nil {
		slog.Error("pending list refresh failed", "user_id", s.UserID, "error", err)
		return
	}
	s.send(Frame{Type: FramePending, Data: pending})
}

func (s *Session) setFriends(friends []dto.FriendResponse) {
	set := make(map[uuid.UUID]struct{}, len(friends))
	for _, f := range friends {
		set[f.UserID] = struct{}{}
	}
	s.friendSet = set
}

func (s *Session) send(f Frame) {
	select {
	case s.out <- f:
	case <-s.stop:
	}
}
