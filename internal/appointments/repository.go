package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for ticket storage. Every call round-trips
// to the store; there is no client-side caching.
type Repository interface {
	Create(ctx context.Context, req *CreateTicketRequest) (*Ticket, error)
	GetByID(ctx context.Context, id string) (*Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]*Ticket, error)
	ListAll(ctx context.Context) ([]*Ticket, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Ticket, error)
}

// InMemoryRepository is a Repository backed by process memory, used in tests
// and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tickets: make(map[string]*Ticket),
	}
}

// Create assigns an id and stores a PENDING ticket.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateTicketRequest) (*Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ticket := &Ticket{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		PatientData:     req.PatientData,
		AppointmentTime: req.AppointmentTime,
		Language:        req.Language,
		Status:          StatusPending,
		BookedAt:        time.Now().UTC(),
	}

	r.mu.Lock()
	r.tickets[ticket.ID] = ticket
	r.mu.Unlock()

	out := *ticket
	return &out, nil
}

// GetByID retrieves a ticket by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	out := *ticket
	return &out, nil
}

// ListByUser returns the user's tickets ordered by booking time ascending.
func (r *InMemoryRepository) ListByUser(ctx context.Context, userID string) ([]*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Ticket
	for _, t := range r.tickets {
		if t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.Before(out[j].BookedAt) })
	return out, nil
}

// ListAll returns every ticket, newest first for the admin view.
func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out, nil
}

// UpdateStatus applies an administrator decision.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Ticket, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if !canTransition(ticket.Status, status) {
		return nil, ErrIllegalTransition
	}
	if ticket.Status != status {
		now := time.Now().UTC()
		ticket.Status = status
		ticket.UpdatedAt = &now
	}
	out := *ticket
	return &out, nil
}
