package intake

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/internal/speech"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

// Handler handles HTTP requests for the intake conversation
type Handler struct {
	controller *Controller
	logger     *logging.Logger
}

// NewHandler creates a new intake handler
func NewHandler(controller *Controller, logger *logging.Logger) *Handler {
	return &Handler{controller: controller, logger: logger}
}

// StartRequest is the payload for POST /intake/start
type StartRequest struct {
	Language string `json:"language"`
}

// Start handles POST /intake/start requests: it selects the conversation
// language and returns the opening greeting.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	lang, err := ParseLanguage(req.Language)
	if err != nil {
		http.Error(w, "unsupported language", http.StatusBadRequest)
		return
	}

	snap, err := h.controller.SelectLanguage(r.Context(), p.UserID, lang)
	if err != nil {
		if errors.Is(err, ErrAgentUnavailable) {
			http.Error(w, agentUnavailableMessage, http.StatusBadGateway)
			return
		}
		h.logger.Error("failed to start intake", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to start conversation", http.StatusInternalServerError)
		return
	}

	writeSnapshot(w, snap)
}

// MessageRequest is the payload for POST /intake/message
type MessageRequest struct {
	Text string `json:"text"`
}

// Message handles POST /intake/message requests.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.controller.SubmitMessage(r.Context(), p.UserID, req.Text)
	switch {
	case errors.Is(err, ErrConversationBusy):
		http.Error(w, "a previous message is still processing", http.StatusConflict)
		return
	case errors.Is(err, ErrSessionInvalid):
		// Session was torn down; the snapshot shows language selection.
	case errors.Is(err, ErrTicketCreate):
		http.Error(w, "failed to book appointment, please try again", http.StatusBadGateway)
		return
	case err != nil:
		h.logger.Error("failed to process message", "user_id", p.UserID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	writeSnapshot(w, snap)
}

// Reset handles POST /intake/reset requests.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeSnapshot(w, h.controller.Reset(p.UserID))
}

// Session handles GET /intake/session requests.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeSnapshot(w, h.controller.Snapshot(p.UserID))
}

// SpeechErrorRequest is the payload for POST /intake/speech-error
type SpeechErrorRequest struct {
	Code string `json:"code"`
}

// SpeechError handles POST /intake/speech-error requests. The browser reports
// the engine error code; the mapped guidance message is appended to the
// conversation as a system notice and the flow state is untouched.
func (h *Handler) SpeechError(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req SpeechErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "missing error code", http.StatusBadRequest)
		return
	}

	h.logger.Warn("speech engine error reported", "user_id", p.UserID, "code", req.Code)
	writeSnapshot(w, h.controller.AppendSystemNotice(p.UserID, speech.Notice(speech.ErrorCode(req.Code))))
}

func writeSnapshot(w http.ResponseWriter, snap Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
