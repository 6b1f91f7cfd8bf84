package intake

import (
	"fmt"
	"strings"

	"github.com/arogya-ai/clinic-intake/internal/agent"
	"github.com/arogya-ai/clinic-intake/internal/appointments"
)

// PatientDraft accumulates intake fields during a conversation. Fields are
// pointers because any of them can be unset; the draft lives only for the
// session and is discarded on reset.
type PatientDraft struct {
	Name     *string `json:"name"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`
	Symptoms *string `json:"symptoms"`
	Phone    *string `json:"phone"`
}

// draftFromExtraction validates an extraction result against the intake
// invariants. The phone is reduced to its digits; acceptance requires all
// five fields present, an age in the range the ticket accepts, and exactly
// 10 digits of phone.
func draftFromExtraction(details *agent.PatientDetails) (PatientDraft, bool) {
	if details == nil {
		return PatientDraft{}, false
	}

	var phone *string
	if details.Phone != nil {
		digits := digitsOnly(*details.Phone)
		if len(digits) == 10 {
			phone = &digits
		}
	}

	// An out-of-range age would pass every confirmation step and then be
	// rejected at ticket creation, so it fails extraction here instead.
	var age *int
	if details.Age != nil && *details.Age >= 0 && *details.Age <= appointments.MaxPatientAge {
		age = details.Age
	}

	draft := PatientDraft{
		Name:     details.Name,
		Age:      age,
		Gender:   details.Gender,
		Symptoms: details.Symptoms,
		Phone:    phone,
	}
	if draft.Name == nil || draft.Age == nil || draft.Gender == nil || draft.Symptoms == nil || draft.Phone == nil {
		return draft, false
	}
	return draft, true
}

// Complete reports whether every field is populated.
func (d PatientDraft) Complete() bool {
	return d.Name != nil && d.Age != nil && d.Gender != nil && d.Symptoms != nil && d.Phone != nil
}

// Snapshot converts a complete draft into the persisted patient record.
func (d PatientDraft) Snapshot() (appointments.PatientData, bool) {
	if !d.Complete() {
		return appointments.PatientData{}, false
	}
	return appointments.PatientData{
		Name:     *d.Name,
		Age:      *d.Age,
		Gender:   *d.Gender,
		Symptoms: *d.Symptoms,
		Phone:    *d.Phone,
	}, true
}

// Summary renders the draft for the details-confirmation prompt.
func (d PatientDraft) Summary() string {
	return fmt.Sprintf("Name: %s, Age: %s, Gender: %s, Phone: %s, Symptoms: %s",
		strOrEmpty(d.Name), intOrEmpty(d.Age), strOrEmpty(d.Gender), strOrEmpty(d.Phone), strOrEmpty(d.Symptoms))
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *n)
}

// digitsOnly strips every non-digit rune.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
