package realtime

import "github.com/waterbuddy-app/waterbuddy-backend/internal/models"

type Entity string

const (
	EntityMessage       Entity = "message"
	EntityFriendRequest Entity = "friend_request"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// Event is a change-feed record for a single row. Events are delivered
// system-wide, not pre-filtered by recipient; each session decides
// relevance itself.
type Event struct {
	Entity        Entity                `json:"entity"`
	Op            Op                    `json:"op"`
	Message       *models.Message       `json:"message,omitempty"`
	FriendRequest *models.FriendRequest `json:"friend_request,omitempty"`
}
