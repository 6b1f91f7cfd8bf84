package appointments

import "errors"

var (
	// ErrTicketNotFound is returned when no ticket exists for the given id
	ErrTicketNotFound = errors.New("appointment not found")

	// ErrIncompletePatientData is returned when any of the five intake fields is missing
	ErrIncompletePatientData = errors.New("patient data is incomplete")

	// ErrInvalidPhone is returned when the phone is not exactly 10 digits
	ErrInvalidPhone = errors.New("phone must be exactly 10 digits")

	// ErrMissingUserID is returned when the owning user id is absent
	ErrMissingUserID = errors.New("user id is required")

	// ErrMissingAppointmentTime is returned when the requested time text is empty
	ErrMissingAppointmentTime = errors.New("appointment time is required")

	// ErrMissingLanguage is returned when no conversation language is recorded
	ErrMissingLanguage = errors.New("language is required")

	// ErrInvalidStatus is returned for an unknown target status
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrIllegalTransition is returned when a non-PENDING ticket is moved to a
	// different status
	ErrIllegalTransition = errors.New("appointment status can no longer change")
)
