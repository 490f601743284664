package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Authenticator verifies a raw access token.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*auth.Claims, error)
}

// FeedHandler upgrades authenticated requests to a feed subscription.
type FeedHandler struct {
	topic    *Topic
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewFeedHandler serves topic over websockets. Browser origins must be in
// allowedOrigins; requests without an Origin header are accepted.
func NewFeedHandler(topic *Topic, authenticator Authenticator, allowedOrigins []string) *FeedHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &FeedHandler{
		topic: topic,
		auth:  authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[strings.TrimRight(origin, "/")]
			},
		},
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return r.URL.Query().Get("token")
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sub, err := h.topic.Subscribe(claims.ClearanceLevel, claims.Agency)
	if err != nil {
		http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		logrus.Debugf("Websocket upgrade failed: %v", err)
		return
	}

	logrus.Infof("Feed subscriber connected: %s (%s, %s)", claims.Username, claims.Agency, claims.ClearanceLevel)
	go h.serve(conn, sub, claims)
}

func (h *FeedHandler) serve(conn *websocket.Conn, sub *Subscription, claims *auth.Claims) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		sub.Close()
		conn.Close()
		logrus.Infof("Feed subscriber disconnected: %s (%s)", claims.Username, claims.Agency)
	}()

	go readLoop(conn, cancel)

	for {
		evt, err := nextWithin(ctx, sub, pingPeriod)
		switch {
		case err == nil:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				logrus.Debugf("Feed write to %s failed: %v", claims.Username, err)
				return
			}
		case errors.Is(err, context.DeadlineExceeded):
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case errors.Is(err, ErrLagged):
			logrus.Warnf("Feed subscriber %s fell behind, disconnecting", claims.Username)
			closeWith(conn, websocket.ClosePolicyViolation, "subscriber lagged")
			return
		case errors.Is(err, ErrClosed):
			closeWith(conn, websocket.CloseGoingAway, "server shutting down")
			return
		default:
			return
		}
	}
}

// nextWithin waits up to d for the next event, so the writer can send pings
// while the feed is idle.
func nextWithin(ctx context.Context, sub *Subscription, d time.Duration) (Event, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	evt, err := sub.Next(waitCtx)
	if err != nil && ctx.Err() != nil {
		return Event{}, ctx.Err()
	}
	return evt, err
}

// readLoop discards client messages and cancels the writer when the peer goes away.
func readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
