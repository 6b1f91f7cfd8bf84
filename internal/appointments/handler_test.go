package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

type recordingNotifier struct {
	decided []*Ticket
}

func (n *recordingNotifier) NotifyStatusDecision(ctx context.Context, ticket *Ticket) error {
	n.decided = append(n.decided, ticket)
	return nil
}

func principalRequest(method, target string, body []byte, p identity.Principal) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(identity.WithPrincipal(req.Context(), p))
}

func withTicketID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("ticketID", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestListMine_OnlyOwnTickets(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, logging.Default())
	ctx := context.Background()

	mine, _ := repo.Create(ctx, createRequest("user-1"))
	if _, err := repo.Create(ctx, createRequest("user-2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ListMine(w, principalRequest(http.MethodGet, "/appointments/mine", nil,
		identity.Principal{UserID: "user-1", Role: identity.RolePatient}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp ListTicketsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || resp.Tickets[0].ID != mine.ID {
		t.Errorf("expected only user-1's ticket, got %+v", resp)
	}
}

func TestListMine_Unauthenticated(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/appointments/mine", nil)
	w := httptest.NewRecorder()
	handler.ListMine(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestListAll_ReturnsEveryTicket(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, logging.Default())
	ctx := context.Background()

	repo.Create(ctx, createRequest("user-1"))
	repo.Create(ctx, createRequest("user-2"))

	w := httptest.NewRecorder()
	handler.ListAll(w, principalRequest(http.MethodGet, "/appointments", nil,
		identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp ListTicketsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 tickets, got %d", resp.Count)
	}
}

func TestGet_PatientCannotReadOthersTicket(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, logging.Default())

	ticket, _ := repo.Create(context.Background(), createRequest("user-1"))

	req := principalRequest(http.MethodGet, "/appointments/"+ticket.ID, nil,
		identity.Principal{UserID: "user-2", Role: identity.RolePatient})
	w := httptest.NewRecorder()
	handler.Get(w, withTicketID(req, ticket.ID))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestGet_AdminReadsAnyTicket(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, logging.Default())

	ticket, _ := repo.Create(context.Background(), createRequest("user-1"))

	req := principalRequest(http.MethodGet, "/appointments/"+ticket.ID, nil,
		identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin})
	w := httptest.NewRecorder()
	handler.Get(w, withTicketID(req, ticket.ID))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestUpdateStatus_ApprovesAndNotifies(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &recordingNotifier{}
	handler := NewHandler(repo, notifier, logging.Default())

	ticket, _ := repo.Create(context.Background(), createRequest("user-1"))

	body, _ := json.Marshal(UpdateStatusRequest{Status: "APPROVED"})
	req := principalRequest(http.MethodPatch, "/appointments/"+ticket.ID+"/status", body,
		identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin})
	w := httptest.NewRecorder()
	handler.UpdateStatus(w, withTicketID(req, ticket.ID))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var updated Ticket
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", updated.Status)
	}
	if len(notifier.decided) != 1 || notifier.decided[0].ID != ticket.ID {
		t.Errorf("expected one decision notification, got %+v", notifier.decided)
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, logging.Default())

	ticket, _ := repo.Create(context.Background(), createRequest("user-1"))

	body, _ := json.Marshal(UpdateStatusRequest{Status: "CANCELLED"})
	req := principalRequest(http.MethodPatch, "/appointments/"+ticket.ID+"/status", body,
		identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin})
	w := httptest.NewRecorder()
	handler.UpdateStatus(w, withTicketID(req, ticket.ID))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestUpdateStatus_DecidedTicketConflicts(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, logging.Default())
	ctx := context.Background()

	ticket, _ := repo.Create(ctx, createRequest("user-1"))
	if _, err := repo.UpdateStatus(ctx, ticket.ID, StatusRejected); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, _ := json.Marshal(UpdateStatusRequest{Status: "APPROVED"})
	req := principalRequest(http.MethodPatch, "/appointments/"+ticket.ID+"/status", body,
		identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin})
	w := httptest.NewRecorder()
	handler.UpdateStatus(w, withTicketID(req, ticket.ID))

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, logging.Default())

	body, _ := json.Marshal(UpdateStatusRequest{Status: "APPROVED"})
	req := principalRequest(http.MethodPatch, "/appointments/missing/status", body,
		identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin})
	w := httptest.NewRecorder()
	handler.UpdateStatus(w, withTicketID(req, "missing"))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
