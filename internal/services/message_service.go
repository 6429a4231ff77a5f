package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/realtime"
	"gorm.io/gorm"
)

var (
	ErrEmptyBody          = errors.New("message body must not be empty")
	ErrBodyTooLong        = errors.New("message body exceeds 500 characters")
	ErrNotFriends         = errors.New("receiver is not in your friend list")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotMessageReceiver = errors.New("only the receiver can mark a message read")
)

const (
	defaultWindow = 5
	maxWindow     = 50
	maxBodyLength = 500
)

// MessageService appends directed messages and serves the bounded
// newest-first windows the clients keep live.
type MessageService struct {
	db         *gorm.DB
	friends    *FriendshipService
	feed       realtime.Feed
	friendGate bool
}

func NewMessageService(db *gorm.DB, friends *FriendshipService, feed realtime.Feed, friendGate bool) *MessageService {
	return &MessageService{db: db, friends: friends, feed: feed, friendGate: friendGate}
}

// Send validates locally, gates on the friend set when the policy is on,
// then inserts with is_read=false. A store failure leaves no local state
// behind; the caller surfaces it as a retryable send failure.
func (s *MessageService) Send(senderID, receiverID uuid.UUID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if len(body) > maxBodyLength {
		return nil, ErrBodyTooLong
	}

	if s.friendGate {
		ok, err := s.friends.IsFriend(senderID, receiverID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFriends
		}
	}

	msg := models.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		IsRead:     false,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.publish(realtime.OpInsert, &msg)
	return &msg, nil
}

// Inbox returns the newest messages addressed to userID, capped at limit.
func (s *MessageService) Inbox(userID uuid.UUID, limit int) ([]models.Message, error) {
	return s.window("receiver_id", userID, limit)
}

// Outbox returns the newest messages sent by userID, capped at limit.
func (s *MessageService) Outbox(userID uuid.UUID, limit int) ([]models.Message, error) {
	return s.window("sender_id", userID, limit)
}

func (s *MessageService) window(column string, userID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultWindow
	}
	if limit > maxWindow {
		limit = maxWindow
	}

	var msgs []models.Message
	err := s.db.Where(column+" = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flips is_read to true. Receiver-only, and idempotent: marking
// an already-read message is a no-op, not an error.
func (s *MessageService) MarkRead(messageID, userID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := s.db.First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}

	if msg.ReceiverID != userID {
		return nil, ErrNotMessageReceiver
	}
	if msg.IsRead {
		return &msg, nil
	}

	if err := s.db.Model(&msg).Update("is_read", true).Error; err != nil {
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	msg.IsRead = true

	s.publish(realtime.OpUpdate, &msg)
	return &msg, nil
}

func (s *MessageService) publish(op realtime.Op, msg *models.Message) {
	if s.feed == nil {
		return
	}
	ev := realtime.Event{Entity: realtime.EntityMessage, Op: op, Message: msg}
	if err := s.feed.Publish(context.Background(), ev); err != nil {
		slog.Error("message event publish failed", "message_id", msg.ID, "error", err)
	}
}
