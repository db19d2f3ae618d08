package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/routing"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	maxMessageSize = 512
)

// sessionView is the wire form of a session state
type sessionView struct {
	Status string      `json:"status"`
	Table  string      `json:"table"`
	Role   models.Role `json:"role,omitempty"`
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
}

func newSessionView(s session.State) sessionView {
	return sessionView{
		Status: s.Status.String(),
		Table:  routing.Select(s).String(),
		Role:   s.Role,
		UserID: s.UserID,
		Email:  s.Email,
	}
}

// EventsHandler streams the tab's session state over a websocket. Each
// connection owns one Resolver, closed when the socket goes away.
type EventsHandler struct {
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewEventsHandler creates a new events handler. An empty origins list or
// a "*" entry accepts any origin.
func NewEventsHandler(allowedOrigins []string, m *metrics.Metrics, log *slog.Logger) *EventsHandler {
	return &EventsHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		metrics: m,
		log:     log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeHTTP handles GET /auth/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client, err := clientOf(r)
	if err != nil {
		h.log.Error("event stream without identity client", "error", err)
		WriteError(w, http.StatusInternalServerError, "events", "Internal server error", h.log)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	defer h.metrics.StreamOpened()()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Wakes the writer; states published while it is busy collapse into one
	changed := make(chan struct{}, 1)
	resolver := session.NewResolver(client, h.log, func(s session.State) {
		h.metrics.ResolverState(s.Status.String())
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer resolver.Close()

	go h.readPump(conn, cancel)

	last := resolver.State()
	if err := h.write(conn, last); err != nil {
		return
	}
	resolver.Start(ctx)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			next := resolver.State()
			if next == last {
				continue
			}
			last = next
			if err := h.write(conn, next); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and cancels the stream once the
// connection is gone
func (h *EventsHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("event stream closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, s session.State) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(newSessionView(s))
}
