package notify

import (
	"context"
	"fmt"

	"github.com/arogya-ai/clinic-intake/internal/appointments"
	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

// AccountLookup resolves the ticket owner's contact details.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*identity.User, error)
}

// Service emails patients when an administrator decides on their ticket.
type Service struct {
	email    EmailSender
	accounts AccountLookup
	logger   *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, accounts AccountLookup, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, accounts: accounts, logger: logger}
}

// NotifyStatusDecision sends the decision email for an approved or rejected
// ticket. Failures are logged and returned but must never roll back the
// status change itself.
func (s *Service) NotifyStatusDecision(ctx context.Context, ticket *appointments.Ticket) error {
	if s.email == nil || s.accounts == nil {
		return nil
	}
	if ticket.Status != appointments.StatusApproved && ticket.Status != appointments.StatusRejected {
		return nil
	}

	user, err := s.accounts.GetByID(ctx, ticket.UserID)
	if err != nil {
		s.logger.Warn("notify: ticket owner lookup failed", "ticket_id", ticket.ID, "user_id", ticket.UserID, "error", err)
		return fmt.Errorf("notify: lookup ticket owner: %w", err)
	}

	msg := EmailMessage{
		To:      user.Email,
		ToName:  user.Name,
		Subject: decisionSubject(ticket.Status),
		Body:    decisionBody(ticket, user.Name),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return err
	}

	s.logger.Info("notify: decision email sent", "ticket_id", ticket.ID, "status", ticket.Status)
	return nil
}

func decisionSubject(status appointments.Status) string {
	if status == appointments.StatusApproved {
		return "Your appointment has been approved"
	}
	return "Update on your appointment request"
}

func decisionBody(ticket *appointments.Ticket, name string) string {
	if ticket.Status == appointments.StatusApproved {
		return fmt.Sprintf(`Hello %s,

Your appointment request for %s has been approved.

Patient: %s
Requested time: %s

Please arrive a few minutes early and bring any relevant medical records.`,
			name, ticket.AppointmentTime, ticket.PatientData.Name, ticket.AppointmentTime)
	}
	return fmt.Sprintf(`Hello %s,

Unfortunately we could not accommodate your appointment request for %s.

Please start a new booking to choose a different time, or contact the clinic directly.`,
		name, ticket.AppointmentTime)
}
