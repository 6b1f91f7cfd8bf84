package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const extractionPrompt = `Based on the following conversation, extract the patient's name, age, gender, symptoms, and phone number.
Respond ONLY with a JSON object in the format: {"name": "...", "age": ..., "gender": "...", "symptoms": "...", "phone": "..."}.
The age should be a number. Gender should be "male", "female", or "other". Phone should be a string of exactly 10 digits (e.g., "1234567890"). If a phone number is provided, DO NOT use null for its value. If any other information is missing or unclear from the conversation, use null for its value in the JSON.
Ensure the JSON is valid.

Conversation:
---
{{CHAT_HISTORY}}
---
JSON Response:`

var codeFenceRE = regexp.MustCompile("(?s)^```(?:\\w+)?\\s*\\n?(.*?)\\n?\\s*```$")

// stripCodeFence removes an optional markdown code fence wrapping the payload.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ParsePatientDetails defensively decodes a model extraction reply. The payload
// is untrusted: every one of the five keys must be present (null is allowed),
// and wrong-shaped values are treated as null. A parse failure or a missing
// key fails the whole extraction, never a partial result.
func ParsePatientDetails(raw string) (*PatientDetails, error) {
	payload := stripCodeFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrExtraction, err)
	}

	for _, key := range []string{"name", "age", "gender", "symptoms", "phone"} {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrExtraction, key)
		}
	}

	details := &PatientDetails{
		Name:     decodeString(fields["name"]),
		Age:      decodeAge(fields["age"]),
		Gender:   decodeString(fields["gender"]),
		Symptoms: decodeString(fields["symptoms"]),
		Phone:    decodePhone(fields["phone"]),
	}
	return details, nil
}

func decodeString(raw json.RawMessage) *string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// decodeAge accepts a JSON number or a numeric string; anything else is null.
func decodeAge(raw json.RawMessage) *int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	age := int(f)
	return &age
}

// decodePhone accepts a string or a bare number; the digits-only validation
// is the caller's concern.
func decodePhone(raw json.RawMessage) *string {
	if s := decodeString(raw); s != nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	s := n.String()
	if s == "" {
		return nil
	}
	return &s
}
