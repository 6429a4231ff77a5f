package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/dto"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/realtime"
	"gorm.io/gorm"
)

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyRequested = errors.New("friend request already pending")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotReceiver      = errors.New("only the receiver can respond to a request")
	ErrNotPending       = errors.New("request is not pending")
)

// FriendshipService manages the request lifecycle
// (none -> pending -> accepted|rejected, rejected -> pending on re-send)
// and derives the symmetric friend set from the directional rows.
type FriendshipService struct {
	db       *gorm.DB
	profiles *ProfileService
	feed     realtime.Feed
}

func NewFriendshipService(db *gorm.DB, profiles *ProfileService, feed realtime.Feed) *FriendshipService {
	return &FriendshipService{db: db, profiles: profiles, feed: feed}
}

// SendRequest looks up the existing row for the exact (sender, receiver)
// order before acting. The check-then-act is not atomic against a
// concurrent identical request; a benign duplicate row is tolerated and
// deduplicated at derivation time.
func (s *FriendshipService) SendRequest(senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	var receiver models.User
	if err := s.db.First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up receiver: %w", err)
	}

	// An accepted request in the reverse direction is the same friendship.
	var reverse models.FriendRequest
	err := s.db.Where("sender_id = ? AND receiver_id = ? AND status = ?",
		receiverID, senderID, models.FriendRequestAccepted).First(&reverse).Error
	if err == nil {
		return nil, ErrAlreadyFriends
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check reverse request: %w", err)
	}

	var existing models.FriendRequest
	err = s.db.Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Order("created_at DESC").First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		request := models.FriendRequest{
			ID:         uuid.New(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Status:     models.FriendRequestPending,
		}
		if err := s.db.Create(&request).Error; err != nil {
			return nil, fmt.Errorf("failed to create friend request: %w", err)
		}
		s.publish(realtime.OpInsert, &request)
		return &request, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up friend request: %w", err)
	}

	switch existing.Status {
	case models.FriendRequestPending:
		return nil, ErrAlreadyRequested
	case models.FriendRequestAccepted:
		return nil, ErrAlreadyFriends
	case models.FriendRequestRejected:
		// Re-send: the only transition out of a terminal state.
		if err := s.db.Model(&existing).Update("status", models.FriendRequestPending).Error; err != nil {
			return nil, fmt.Errorf("failed to re-send friend request: %w", err)
		}
		existing.Status = models.FriendRequestPending
		// The receiver sees a re-sent request as a fresh pending entry.
		s.publish(realtime.OpInsert, &existing)
		return &existing, nil
	}
	return nil, fmt.Errorf("unexpected request status %q", existing.Status)
}

// Respond transitions a pending request to accepted or rejected. Only the
// receiver may respond, and only while the request is pending.
func (s *FriendshipService) Respond(requestID, receiverID uuid.UUID, accept bool) (*models.FriendRequest, error) {
	var request models.FriendRequest
	if err := s.db.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load friend request: %w", err)
	}

	if request.ReceiverID != receiverID {
		return nil, ErrNotReceiver
	}
	if request.Status != models.FriendRequestPending {
		return nil, ErrNotPending
	}

	status := models.FriendRequestRejected
	if accept {
		status = models.FriendRequestAccepted
	}

	if err := s.db.Model(&request).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update friend request: %w", err)
	}
	request.Status = status

	s.publish(realtime.OpUpdate, &request)
	return &request, nil
}

// ListPending returns the pending requests addressed to receiverID, newest
// first, each joined to a display nickname.
func (s *FriendshipService) ListPending(receiverID uuid.UUID) ([]dto.PendingRequestResponse, error) {
	var requests []models.FriendRequest
	err := s.db.Where("receiver_id = ? AND status = ?", receiverID, models.FriendRequestPending).
		Order("created_at DESC").Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	results := make([]dto.PendingRequestResponse, 0, len(requests))
	for _, r := range requests {
		nickname, err := s.profiles.Nickname(r.SenderID)
		if err != nil {
			slog.Error("nickname lookup failed", "user_id", r.SenderID, "error", err)
			nickname = ""
		}
		results = append(results, dto.PendingRequestResponse{
			RequestID:      r.ID,
			SenderID:       r.SenderID,
			SenderNickname: nickname,
			CreatedAt:      r.CreatedAt,
		})
	}
	return results, nil
}

// ListFriends derives the symmetric friend set: receivers of accepted
// requests this user sent, plus senders of accepted requests this user
// received, deduplicated by counterpart and sorted by nickname.
func (s *FriendshipService) ListFriends(userID uuid.UUID) ([]dto.FriendResponse, error) {
	ids, err := s.FriendIDs(userID)
	if err != nil {
		return nil, err
	}

	results := make([]dto.FriendResponse, 0, len(ids))
	for _, id := range ids {
		nickname, err := s.profiles.Nickname(id)
		if err != nil {
			slog.Error("nickname lookup failed", "user_id", id, "error", err)
			nickname = ""
		}
		results = append(results, dto.FriendResponse{UserID: id, Nickname: nickname})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Nickname < results[j].Nickname
	})
	return results, nil
}

// FriendIDs returns the deduplicated counterpart ids of all accepted
// requests touching userID, in either direction.
func (s *FriendshipService) FriendIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var rows []models.FriendRequest
	err := s.db.Where("status = ? AND (sender_id = ? OR receiver_id = ?)",
		models.FriendRequestAccepted, userID, userID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to derive friend set: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		other := r.SenderID
		if r.SenderID == userID {
			other = r.ReceiverID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}

// IsFriend reports whether an accepted request exists between the two
// users in either direction.
func (s *FriendshipService) IsFriend(a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.FriendRequest{}).
		Where("status = ?", models.FriendRequestAccepted).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return count > 0, nil
}

func (s *FriendshipService) publish(op realtime.Op, request *models.FriendRequest) {
	if s.feed == nil {
		return
	}
	ev := realtime.Event{Entity: realtime.EntityFriendRequest, Op: op, FriendRequest: request}
	if err := s.feed.Publish(context.Background(), ev); err != nil {
		slog.Error("friend request event publish failed", "request_id", request.ID, "error", err)
	}
}
