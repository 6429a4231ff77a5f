package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is the directional half of a friendship. One logical row
// per ordered (sender, receiver) pair; the symmetric friend set is derived
// from accepted rows in either direction, never stored.
type FriendRequest struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID   uuid.UUID           `gorm:"type:uuid;not null;index:idx_friend_requests_pair" json:"sender_id"`
	ReceiverID uuid.UUID           `gorm:"type:uuid;not null;index:idx_friend_requests_pair" json:"receiver_id"`
	Status     FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}
