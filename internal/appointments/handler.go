package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

// DecisionNotifier is told about approved or rejected tickets. A notifier
// failure never rolls back the status change.
type DecisionNotifier interface {
	NotifyStatusDecision(ctx context.Context, ticket *Ticket) error
}

// Handler handles HTTP requests for appointment tickets
type Handler struct {
	repo     Repository
	notifier DecisionNotifier
	logger   *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(repo Repository, notifier DecisionNotifier, logger *logging.Logger) *Handler {
	return &Handler{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// ListTicketsResponse is the response for listing tickets
type ListTicketsResponse struct {
	Tickets []*Ticket `json:"tickets"`
	Count   int       `json:"count"`
}

// ListMine handles GET /appointments/mine requests: the caller's own tickets
// ordered by booking time.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tickets, err := h.repo.ListByUser(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("failed to list tickets", "error", err, "user_id", p.UserID)
		http.Error(w, "failed to list tickets", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ListTicketsResponse{Tickets: tickets, Count: len(tickets)})
}

// ListAll handles GET /appointments requests. Admin only; the router enforces
// the role.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list tickets", "error", err)
		http.Error(w, "failed to list tickets", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ListTicketsResponse{Tickets: tickets, Count: len(tickets)})
}

// Get handles GET /appointments/{ticketID} requests. Patients can only read
// their own tickets.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ticket, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			http.Error(w, "ticket not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get ticket", "error", err)
		http.Error(w, "failed to get ticket", http.StatusInternalServerError)
		return
	}

	if p.Role != identity.RoleAdmin && ticket.UserID != p.UserID {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

// UpdateStatusRequest is the payload for PATCH /appointments/{ticketID}/status
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /appointments/{ticketID}/status requests. Admin
// only; applies an APPROVED or REJECTED decision to a PENDING ticket.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ticketID := chi.URLParam(r, "ticketID")
	ticket, err := h.repo.UpdateStatus(r.Context(), ticketID, Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrTicketNotFound):
			http.Error(w, "ticket not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidStatus):
			http.Error(w, "status must be APPROVED or REJECTED", http.StatusBadRequest)
		case errors.Is(err, ErrIllegalTransition):
			http.Error(w, "ticket already decided", http.StatusConflict)
		default:
			h.logger.Error("failed to update ticket status", "error", err, "ticket_id", ticketID)
			http.Error(w, "failed to update ticket", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("ticket status updated", "ticket_id", ticket.ID, "status", ticket.Status)

	if h.notifier != nil {
		if err := h.notifier.NotifyStatusDecision(r.Context(), ticket); err != nil {
			h.logger.Warn("decision notification failed", "ticket_id", ticket.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, ticket)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
