package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ordersync/go-order-backend/internal/services"
)

// IdentityVerifier resolves a bearer credential to an identity. Implemented
// by services.AuthService.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (services.Identity, error)
}

// Options tunes the websocket endpoint.
type Options struct {
	// AllowedOrigins whitelists handshake origins. Empty allows any origin
	// (the bearer token is the actual authentication).
	AllowedOrigins []string
	// PingPeriod sets the keepalive interval; must be under the pong wait.
	PingPeriod time.Duration
	// SendBuffer sizes each connection's outbound queue.
	SendBuffer int
	// ReadLimit caps inbound frame size in bytes.
	ReadLimit int64
	// WriteTimeout bounds each socket write.
	WriteTimeout time.Duration
	// PongTimeout is how long a connection may go without a pong before the
	// read deadline trips.
	PongTimeout time.Duration
}

// Handler upgrades HTTP requests to websocket connections, authenticates
// the handshake, and starts the connection pumps.
//
// Credential sources are checked in order: the "token" query parameter
// (auth payload field), then an Authorization bearer header. Every failure
// mode closes the connection with a policy-violation close frame carrying
// the one opaque reason "Authentication failed".
func Handler(hub *Hub, session *Session, verifier IdentityVerifier, opts Options) gin.HandlerFunc {
	pongWait := opts.PongTimeout
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	pingPeriod := opts.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}

	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4 << 10,
		WriteBufferSize: 4 << 10,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			log.Debug().Err(err).Msg("ws upgrade failed")
			return
		}

		id, err := verifier.VerifyToken(c.Request.Context(), bearerToken(c.Request))
		if err != nil {
			closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Authentication failed")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(defaultWriteWait))
			_ = conn.Close()
			return
		}

		client := newClient(hub, session, conn, id, opts)
		hub.Register(client)

		go client.writePump(pingPeriod)
		// The read pump gets a background context: store work triggered by
		// this connection must survive the HTTP request context ending.
		go client.readPump(context.Background())
	}
}

// bearerToken extracts the handshake credential: the auth query field first,
// then a bearer-style Authorization header.
func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return ""
}
