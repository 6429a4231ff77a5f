package realtime

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/auth"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/config"
)

const writeWait = 10 * time.Second

// Upgrade gates the websocket route to actual upgrade requests.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler authenticates the connection, registers a session with the hub
// and shuttles frames until either side closes. The token travels as a
// query parameter because browsers cannot set headers on websocket dials.
func Handler(cfg *config.Config, hub *Hub, messages MessageViews, friends FriendViews) fiber.Handler {
	return websocket.New(func(ws *websocket.Conn) {
		defer ws.Close()

		userID, _, err := auth.ParseToken(ws.Query("token"), cfg.JWTSecret)
		if err != nil {
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"),
				time.Now().Add(writeWait))
			return
		}

		session := NewSession(userID, messages, friends)
		hub.Register(session)
		defer hub.Unregister(session)

		go session.Run()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for frame := range session.Frames() {
				b, err := jsoniter.Marshal(frame)
				if err != nil {
					slog.Error("frame marshal failed", "user_id", userID, "error", err)
					continue
				}
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		// Inbound reads only keep the connection alive; the client has no
		// commands, it refreshes through the HTTP API.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		session.Close()
		<-done
	})
}
