package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; tests inject a
// pgxmock pool through it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores tickets in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new PENDING ticket and returns it with its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateTicketRequest) (*Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	patient, err := json.Marshal(req.PatientData)
	if err != nil {
		return nil, fmt.Errorf("appointments: marshal patient data: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO appointments (id, user_id, patient, appointment_time, language, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING booked_at
	`
	var bookedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.UserID,
		patient,
		req.AppointmentTime,
		req.Language,
		string(StatusPending),
	).Scan(&bookedAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	return &Ticket{
		ID:              id.String(),
		UserID:          req.UserID,
		PatientData:     req.PatientData,
		AppointmentTime: req.AppointmentTime,
		Language:        req.Language,
		Status:          StatusPending,
		BookedAt:        bookedAt.UTC(),
	}, nil
}

// GetByID fetches a single ticket.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Ticket, error) {
	query := `
		SELECT id, user_id, patient, appointment_time, language, status, booked_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return ticket, nil
}

// ListByUser returns the user's tickets ordered by booking time ascending.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Ticket, error) {
	query := `
		SELECT id, user_id, patient, appointment_time, language, status, booked_at, updated_at
		FROM appointments
		WHERE user_id = $1
		ORDER BY booked_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("appointments: query failed: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

// ListAll returns every ticket, newest first for the admin view.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Ticket, error) {
	query := `
		SELECT id, user_id, patient, appointment_time, language, status, booked_at, updated_at
		FROM appointments
		ORDER BY booked_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appointments: query failed: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

// UpdateStatus applies an administrator decision. The legality check runs on
// the freshly read row, so a repeated identical decision is a no-op rather
// than an error.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Ticket, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, ErrInvalidStatus
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(current.Status, status) {
		return nil, ErrIllegalTransition
	}
	if current.Status == status {
		return current, nil
	}

	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING id, user_id, patient, appointment_time, language, status, booked_at, updated_at
	`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id, string(status), string(StatusPending)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race with another decision; report the conflict.
			return nil, ErrIllegalTransition
		}
		return nil, fmt.Errorf("appointments: update failed: %w", err)
	}
	return ticket, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var (
		t         Ticket
		patient   []byte
		status    string
		bookedAt  time.Time
		updatedAt *time.Time
	)
	if err := row.Scan(&t.ID, &t.UserID, &patient, &t.AppointmentTime, &t.Language, &status, &bookedAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patient, &t.PatientData); err != nil {
		return nil, fmt.Errorf("appointments: decode patient data: %w", err)
	}
	t.Status = Status(status)
	t.BookedAt = bookedAt.UTC()
	if updatedAt != nil {
		u := updatedAt.UTC()
		t.UpdatedAt = &u
	}
	return &t, nil
}

func collectTickets(rows pgx.Rows) ([]*Ticket, error) {
	var out []*Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}
