package websocket

import (
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/kataclub/kataclub_server/internal/user"
)

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		// Origin policy is enforced by the CORS layer for the REST surface;
		// the feed carries no payloads beyond entity ids.
		return true
	},
}

type Handler struct {
	hub         *Hub
	userService *user.UserService
}

func NewHandler(hub *Hub, userService *user.UserService) *Handler {
	return &Handler{
		hub:         hub,
		userService: userService,
	}
}

// HandleFastHTTP upgrades the connection and runs the client pumps.
// Browsers cannot set headers on WebSocket requests, so the token is also
// accepted as a query parameter.
func (h *Handler) HandleFastHTTP(ctx *fasthttp.RequestCtx) {
	token := string(ctx.QueryArgs().Peek("token"))
	if token == "" {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		log.Debug().Msg("[WS] Connection rejected: missing token")
		ctx.Error("Unauthorized: missing token", fasthttp.StatusUnauthorized)
		return
	}

	authenticatedUser, err := h.userService.ValidateJWT(token)
	if err != nil {
		log.Debug().Err(err).Msg("[WS] Connection rejected: invalid token")
		ctx.Error("Unauthorized: invalid token", fasthttp.StatusUnauthorized)
		return
	}

	err = upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := NewClient(h.hub, conn, authenticatedUser)
		h.hub.Register(client)

		client.send <- &OutgoingMessage{
			Type:   MessageTypeConnected,
			UserID: authenticatedUser.ID,
		}

		log.Info().
			Str("userId", authenticatedUser.ID).
			Str("username", authenticatedUser.Username).
			Msg("[WS] Client connected")

		go client.WritePump()
		client.ReadPump() // Blocks until disconnect
	})

	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to upgrade connection")
		return
	}
}
