package agent

import "context"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is one prior exchange turn used to seed a chat session.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatSession is a stateful conversation bound to one system instruction.
// Implementations keep the turn history on their side.
type ChatSession interface {
	Send(ctx context.Context, text string) (string, error)
}

// PatientDetails is the structured record extracted from a transcript.
// Fields are pointers because the model may legitimately return null for
// anything it could not find.
type PatientDetails struct {
	Name     *string `json:"name"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`
	Symptoms *string `json:"symptoms"`
	Phone    *string `json:"phone"`
}

// Client opens chat sessions and runs one-shot structured extraction.
type Client interface {
	StartChat(ctx context.Context, systemInstruction string, history []ChatTurn) (ChatSession, error)
	ExtractPatientDetails(ctx context.Context, transcript string) (*PatientDetails, error)
}
