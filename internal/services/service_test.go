package services

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/realtime"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.FriendRequest{},
		&models.Message{},
		&models.DrinkLog{},
		&models.UserSetting{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) uuid.UUID {
	t.Helper()

	user := models.User{ID: uuid.New(), Email: email, Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

// captureFeed records published events instead of delivering them.
type captureFeed struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (f *captureFeed) Publish(_ context.Context, ev realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *captureFeed) Subscribe(_ context.Context) (<-chan realtime.Event, func(), error) {
	ch := make(chan realtime.Event)
	return ch, func() {}, nil
}

func (f *captureFeed) all() []realtime.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]realtime.Event, len(f.events))
	copy(out, f.events)
	return out
}

func newFriendshipFixture(t *testing.T) (*gorm.DB, *FriendshipService, *captureFeed) {
	t.Helper()

	db := newTestDB(t)
	feed := &captureFeed{}
	profiles := NewProfileService(db)
	friends := NewFriendshipService(db, profiles, feed)
	return db, friends, feed
}
