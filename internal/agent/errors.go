package agent

import "errors"

var (
	// ErrUnavailable is returned for any transport or model failure. Callers
	// surface it as a single generic "AI unavailable" condition and never
	// branch on the underlying cause.
	ErrUnavailable = errors.New("agent: model unavailable")

	// ErrExtraction is returned when the extraction response cannot be parsed
	// into a complete PatientDetails payload. Extraction is all-or-nothing.
	ErrExtraction = errors.New("agent: extraction failed")
)
