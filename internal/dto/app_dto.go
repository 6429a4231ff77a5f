package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Profiles ---

type ProfileResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Nickname string    `json:"nickname"`
}

type UpdateNicknameRequest struct {
	Nickname string `json:"nickname" validate:"required"`
}

// --- Friendship ---

type SendFriendRequestRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
}

type RespondFriendRequestRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

type PendingRequestResponse struct {
	RequestID      uuid.UUID `json:"request_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderNickname string    `json:"sender_nickname"`
	CreatedAt      time.Time `json:"created_at"`
}

type FriendResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Nickname string    `json:"nickname"`
}

// --- Messages ---

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Body       string    `json:"body" validate:"required,max=500"`
}

// --- Intake ---

type RecordDrinkRequest struct {
	AmountML int `json:"amount_ml" validate:"required,gt=0"`
}

type IntakeResponse struct {
	TodayTotalML int             `json:"today_total_ml"`
	History      []DrinkResponse `json:"history"`
}

type DrinkResponse struct {
	ID        uuid.UUID `json:"id"`
	AmountML  int       `json:"amount_ml"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateSettingsRequest struct {
	CupSizeML int `json:"cup_size_ml" validate:"required,gt=0,lte=1000"`
}

type SettingsResponse struct {
	CupSizeML int `json:"cup_size_ml"`
}
