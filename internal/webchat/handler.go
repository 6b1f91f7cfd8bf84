package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/internal/intake"
	"github.com/arogya-ai/clinic-intake/internal/speech"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

// Authenticator resolves the token passed in the connection URL. Browsers
// cannot set an Authorization header on a WebSocket handshake.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Principal, error)
}

// Handler serves the real-time chat channel over the intake conversation.
// Every operation available over the REST surface is mirrored here so a voice
// session never has to fall back to polling.
type Handler struct {
	controller *intake.Controller
	auth       Authenticator
	logger     *logging.Logger
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*websocket.Conn // userID -> active connection
}

// NewHandler creates a webchat handler.
func NewHandler(controller *intake.Controller, auth Authenticator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		controller: controller,
		auth:       auth,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin is enforced by the CORS layer on the handshake request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*websocket.Conn),
	}
}

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type     string `json:"type"` // "start", "message", "reset", "speech_error", "ping"
	Language string `json:"language,omitempty"`
	Text     string `json:"text,omitempty"`
	Code     string `json:"code,omitempty"`
}

// OutboundMessage is what we send to the browser.
type OutboundMessage struct {
	Type     string           `json:"type"` // "session", "error", "pong"
	Text     string           `json:"text,omitempty"`
	Snapshot *intake.Snapshot `json:"session,omitempty"`
}

// HandleWebSocket upgrades to WebSocket and serves the conversation channel.
// The session token rides in the "token" query parameter.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	p, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("webchat: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// One live connection per user; a newer tab wins.
	h.mu.Lock()
	if prev, ok := h.conns[p.UserID]; ok {
		prev.Close()
	}
	h.conns[p.UserID] = conn
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.conns[p.UserID] == conn {
			delete(h.conns, p.UserID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "user_id", p.UserID)

	snap := h.controller.Snapshot(p.UserID)
	_ = conn.WriteJSON(OutboundMessage{Type: "session", Snapshot: &snap})

	for {
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.logger.Debug("webchat: connection closed", "user_id", p.UserID, "error", err)
			return
		}
		h.handleInbound(r.Context(), conn, p.UserID, msg)
	}
}

func (h *Handler) handleInbound(ctx context.Context, conn *websocket.Conn, userID string, msg InboundMessage) {
	switch msg.Type {
	case "ping":
		_ = conn.WriteJSON(OutboundMessage{Type: "pong"})
		return

	case "start":
		lang, err := intake.ParseLanguage(msg.Language)
		if err != nil {
			_ = conn.WriteJSON(OutboundMessage{Type: "error", Text: "unsupported language"})
			return
		}
		snap, err := h.controller.SelectLanguage(ctx, userID, lang)
		h.sendResult(conn, userID, snap, err)

	case "message":
		if strings.TrimSpace(msg.Text) == "" {
			return
		}
		snap, err := h.controller.SubmitMessage(ctx, userID, msg.Text)
		h.sendResult(conn, userID, snap, err)

	case "reset":
		snap := h.controller.Reset(userID)
		_ = conn.WriteJSON(OutboundMessage{Type: "session", Snapshot: &snap})

	case "speech_error":
		if msg.Code == "" {
			return
		}
		h.logger.Warn("speech engine error reported", "user_id", userID, "code", msg.Code)
		snap := h.controller.AppendSystemNotice(userID, speech.Notice(speech.ErrorCode(msg.Code)))
		_ = conn.WriteJSON(OutboundMessage{Type: "session", Snapshot: &snap})
	}
}

func (h *Handler) sendResult(conn *websocket.Conn, userID string, snap intake.Snapshot, err error) {
	switch {
	case errors.Is(err, intake.ErrConversationBusy):
		_ = conn.WriteJSON(OutboundMessage{Type: "error", Text: "a previous message is still processing"})
		return
	case errors.Is(err, intake.ErrAgentUnavailable):
		_ = conn.WriteJSON(OutboundMessage{Type: "error", Text: "the assistant is unavailable, please try again later"})
	case errors.Is(err, intake.ErrTicketCreate):
		_ = conn.WriteJSON(OutboundMessage{Type: "error", Text: "failed to book appointment, please try again"})
	case err != nil && !errors.Is(err, intake.ErrSessionInvalid):
		h.logger.Error("webchat: turn failed", "user_id", userID, "error", err)
		_ = conn.WriteJSON(OutboundMessage{Type: "error", Text: "something went wrong"})
		return
	}
	_ = conn.WriteJSON(OutboundMessage{Type: "session", Snapshot: &snap})
}
