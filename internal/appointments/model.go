package appointments

import (
	"strings"
	"time"
	"unicode"
)

// Status is the lifecycle state of an appointment ticket.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// MaxPatientAge bounds the age a ticket will accept. The intake flow applies
// the same bound when it extracts patient details.
const MaxPatientAge = 120

// PatientData is the intake snapshot embedded in a ticket. All five fields
// must be populated before a ticket may be created.
type PatientData struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Symptoms string `json:"symptoms"`
	Phone    string `json:"phone"`
}

// Validate enforces the ticket-creation precondition: every field populated,
// age in range, and a phone of exactly 10 digits.
func (p PatientData) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrIncompletePatientData
	}
	if p.Age < 0 || p.Age > MaxPatientAge {
		return ErrIncompletePatientData
	}
	if strings.TrimSpace(p.Gender) == "" || strings.TrimSpace(p.Symptoms) == "" {
		return ErrIncompletePatientData
	}
	if len(p.Phone) != 10 {
		return ErrInvalidPhone
	}
	for _, r := range p.Phone {
		if !unicode.IsDigit(r) {
			return ErrInvalidPhone
		}
	}
	return nil
}

// Ticket is a persisted appointment request.
type Ticket struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	PatientData     PatientData `json:"patientData"`
	AppointmentTime string      `json:"appointmentTime"`
	Language        string      `json:"language"`
	Status          Status      `json:"status"`
	BookedAt        time.Time   `json:"bookedAt"`
	UpdatedAt       *time.Time  `json:"updatedAt,omitempty"`
}

// CreateTicketRequest carries the fields of a ticket before the repository
// assigns its id.
type CreateTicketRequest struct {
	UserID          string
	PatientData     PatientData
	AppointmentTime string
	Language        string
}

// Validate checks the request against the creation invariants.
func (r *CreateTicketRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrMissingUserID
	}
	if strings.TrimSpace(r.AppointmentTime) == "" {
		return ErrMissingAppointmentTime
	}
	if strings.TrimSpace(r.Language) == "" {
		return ErrMissingLanguage
	}
	return r.PatientData.Validate()
}

// canTransition reports whether a status update from current to next is legal.
// Only PENDING tickets move; repeating the current status is an idempotent
// no-op so a double-click on approve never errors.
func canTransition(current, next Status) bool {
	if current == next {
		return true
	}
	return current == StatusPending && (next == StatusApproved || next == StatusRejected)
}
