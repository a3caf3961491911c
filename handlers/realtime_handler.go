package handlers

import (
	"github.com/anjiri1684/career_mentor/auth"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

type ConnectionServer interface {
	Serve(conn *websocket.Conn, email string)
}

type RealtimeHandler struct {
	tokens TokenParser
	hub    ConnectionServer
}

func NewRealtimeHandler(tokens TokenParser, hub ConnectionServer) *RealtimeHandler {
	return &RealtimeHandler{tokens: tokens, hub: hub}
}

// Upgrade authenticates the ?token= query parameter before the websocket
// handshake. Browsers cannot set an Authorization header on upgrades.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	id, err := h.tokens.Parse(c.Query("token"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	c.Locals("ws_email", id.Email)
	return c.Next()
}

func (h *RealtimeHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		email, _ := conn.Locals("ws_email").(string)
		h.hub.Serve(conn, email)
	})
}
