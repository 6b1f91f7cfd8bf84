package intake

import "errors"

var (
	// ErrConversationBusy is returned when a submission arrives while a prior
	// one is still in flight for the same session
	ErrConversationBusy = errors.New("a message is already being processed")

	// ErrAgentUnavailable is the generic connectivity failure surfaced for any
	// agent error during session setup
	ErrAgentUnavailable = errors.New("the assistant is unavailable right now")

	// ErrSessionInvalid is returned when the appointment-time step finds its
	// preconditions gone; the session has been reset
	ErrSessionInvalid = errors.New("the conversation is no longer valid")

	// ErrTicketCreate is returned when persisting the ticket fails; the session
	// stays in its current state so the patient can retry
	ErrTicketCreate = errors.New("failed to book appointment")
)
