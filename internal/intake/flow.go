package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/arogya-ai/clinic-intake/internal/agent"
	"github.com/arogya-ai/clinic-intake/internal/appointments"
	"github.com/arogya-ai/clinic-intake/internal/observability/metrics"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

// State identifies where an intake session is in the conversation flow.
type State string

const (
	StateLanguageSelection           State = "LANGUAGE_SELECTION"
	StateConversationInProgress      State = "CONVERSATION_IN_PROGRESS"
	StateAwaitingPhoneConfirmation   State = "AWAITING_PHONE_CONFIRMATION"
	StateAwaitingDetailsConfirmation State = "AWAITING_DETAILS_CONFIRMATION"
	StateAwaitingAppointmentTime     State = "AWAITING_APPOINTMENT_TIME"
	StateTicketDisplay               State = "TICKET_DISPLAY"
)

// errResetSession signals that the session's preconditions are gone and the
// whole conversation must be torn down.
var errResetSession = errors.New("intake: session preconditions lost")

// session is one user's conversation. The epoch counter increments on every
// reset; a remote call that completes under an older epoch is stale and its
// result is discarded.
type session struct {
	mu       sync.Mutex
	userID   string
	epoch    uint64
	busy     bool
	state    State
	language Language
	chat     agent.ChatSession
	draft    PatientDraft
	messages []ChatMessage
	ticket   *appointments.Ticket
}

func newSession(userID string) *session {
	return &session{userID: userID, state: StateLanguageSelection}
}

func (s *session) resetLocked() {
	s.epoch++
	s.busy = false
	s.state = StateLanguageSelection
	s.language = ""
	s.chat = nil
	s.draft = PatientDraft{}
	s.messages = nil
	s.ticket = nil
}

func (s *session) appendLocked(msg ChatMessage) {
	s.messages = append(s.messages, msg)
}

func (s *session) snapshotLocked() Snapshot {
	msgs := make([]ChatMessage, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		State:    s.state,
		Language: s.language,
		Messages: msgs,
		Ticket:   s.ticket,
		Busy:     s.busy,
	}
}

// Snapshot is the externally visible view of a session.
type Snapshot struct {
	State    State               `json:"state"`
	Language Language            `json:"language,omitempty"`
	Messages []ChatMessage       `json:"messages"`
	Ticket   *appointments.Ticket `json:"ticket,omitempty"`
	Busy     bool                `json:"busy"`
}

// Controller drives the intake conversation state machine. One session per
// authenticated user; sessions live in memory only.
type Controller struct {
	agent   agent.Client
	tickets appointments.Repository
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewController creates the intake flow controller.
func NewController(agentClient agent.Client, tickets appointments.Repository, m *metrics.IntakeMetrics, logger *logging.Logger) *Controller {
	if agentClient == nil {
		panic("intake: agent client required")
	}
	if tickets == nil {
		panic("intake: ticket repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		agent:    agentClient,
		tickets:  tickets,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func (c *Controller) session(userID string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		s = newSession(userID)
		c.sessions[userID] = s
	}
	return s
}

// Snapshot returns the current view of the user's session.
func (c *Controller) Snapshot(userID string) Snapshot {
	s := c.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SelectLanguage resets the session, opens a fresh agent chat bound to the
// language's system instruction, and requests the opening greeting. Any agent
// failure tears the session back down to language selection.
func (c *Controller) SelectLanguage(ctx context.Context, userID string, lang Language) (Snapshot, error) {
	s := c.session(userID)

	s.mu.Lock()
	s.resetLocked()
	epoch := s.epoch
	s.language = lang
	s.busy = true
	s.mu.Unlock()

	started := time.Now()
	chat, err := c.agent.StartChat(ctx, systemPrompt(lang), nil)
	var greeting string
	if err == nil {
		greeting, err = chat.Send(ctx, kickoffPrompt)
	}
	c.metrics.ObserveAgentLatency(time.Since(started).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return s.snapshotLocked(), nil
	}
	s.busy = false
	if err != nil {
		c.logger.Error("failed to open intake conversation", "user_id", userID, "language", lang, "error", err)
		s.resetLocked()
		return s.snapshotLocked(), ErrAgentUnavailable
	}

	s.chat = chat
	s.state = StateConversationInProgress
	s.appendLocked(newChatMessage(SenderAgent, greeting, lang))
	c.metrics.ObserveConversationStarted(string(lang))
	return s.snapshotLocked(), nil
}

// Reset returns the session to language selection, discarding all
// session-scoped data. Idempotent; an in-flight remote call observes the
// epoch bump and drops its result. The session entry itself is evicted so
// the map does not grow with every user who ever talked to the assistant.
func (c *Controller) Reset(userID string) Snapshot {
	c.mu.Lock()
	s, ok := c.sessions[userID]
	delete(c.sessions, userID)
	c.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.resetLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	return newSession(userID).snapshotLocked()
}

// AppendSystemNotice adds a system message to the conversation without
// touching flow state. Used for speech-adapter error notices so the
// conversation continues in text mode.
func (c *Controller) AppendSystemNotice(userID, text string) Snapshot {
	s := c.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(text) != "" {
		s.appendLocked(newChatMessage(SenderSystem, text, s.language))
	}
	return s.snapshotLocked()
}

// turnContext carries the immutable inputs a state handler needs, captured
// under the session lock before any remote call is made.
type turnContext struct {
	userID     string
	language   Language
	chat       agent.ChatSession
	draft      PatientDraft
	transcript string
}

// turnResult is what a state handler produces: messages to append, an
// optional draft replacement, an optional ticket, and the next state. The
// session itself is only mutated after the epoch check passes.
type turnResult struct {
	say    []pendingMessage
	draft  *PatientDraft
	ticket *appointments.Ticket
	next   State
}

type pendingMessage struct {
	sender Sender
	text   string
}

func (r *turnResult) reply(sender Sender, text string) {
	r.say = append(r.say, pendingMessage{sender: sender, text: text})
}

// SubmitMessage routes one user turn through the state machine. Empty input,
// a missing chat session, or a terminal/initial state make it a no-op. While
// a prior turn is in flight the session is busy and new turns are rejected.
func (c *Controller) SubmitMessage(ctx context.Context, userID, text string) (Snapshot, error) {
	trimmed := strings.TrimSpace(text)
	s := c.session(userID)

	s.mu.Lock()
	if trimmed == "" || s.chat == nil || s.language == "" ||
		s.state == StateLanguageSelection || s.state == StateTicketDisplay {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	if s.busy {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrConversationBusy
	}
	s.busy = true
	epoch := s.epoch
	state := s.state
	s.appendLocked(newChatMessage(SenderUser, trimmed, s.language))
	tc := turnContext{
		userID:     userID,
		language:   s.language,
		chat:       s.chat,
		draft:      s.draft,
		transcript: transcript(s.messages),
	}
	s.mu.Unlock()

	c.metrics.ObserveMessage(string(state))
	result, err := c.dispatch(ctx, state, tc, trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// The session was reset while this turn was in flight; the response
		// is stale and must not be applied.
		return s.snapshotLocked(), nil
	}
	s.busy = false

	switch {
	case errors.Is(err, errResetSession):
		s.resetLocked()
		return s.snapshotLocked(), ErrSessionInvalid
	case errors.Is(err, ErrTicketCreate):
		return s.snapshotLocked(), err
	case err != nil:
		c.logger.Error("intake turn failed", "user_id", userID, "state", state, "error", err)
		s.appendLocked(newChatMessage(SenderAgent, agentUnavailableMessage, s.language))
		return s.snapshotLocked(), nil
	}

	if result.draft != nil {
		s.draft = *result.draft
	}
	for _, m := range result.say {
		s.appendLocked(newChatMessage(m.sender, m.text, s.language))
	}
	if result.ticket != nil {
		s.ticket = result.ticket
	}
	if result.next != "" {
		s.state = result.next
	}
	return s.snapshotLocked(), nil
}

// dispatch runs exactly one handler for the captured state.
func (c *Controller) dispatch(ctx context.Context, state State, tc turnContext, text string) (turnResult, error) {
	switch state {
	case StateConversationInProgress:
		return c.handleConversation(ctx, tc, text)
	case StateAwaitingPhoneConfirmation:
		return c.handlePhoneConfirmation(tc, text)
	case StateAwaitingDetailsConfirmation:
		return c.handleDetailsConfirmation(tc, text)
	case StateAwaitingAppointmentTime:
		return c.handleAppointmentTime(ctx, tc, text)
	}
	return turnResult{}, nil
}

// handleConversation forwards the turn to the agent. When the sentinel phrase
// appears in the reply it runs structured extraction over the transcript;
// extraction failures of any kind are recovered locally with a re-prompt.
func (c *Controller) handleConversation(ctx context.Context, tc turnContext, text string) (turnResult, error) {
	var result turnResult

	started := time.Now()
	reply, err := tc.chat.Send(ctx, text)
	c.metrics.ObserveAgentLatency(time.Since(started).Seconds())
	if err != nil {
		return result, err
	}
	result.reply(SenderAgent, reply)

	if !strings.Contains(strings.ToUpper(strings.TrimSpace(reply)), allInfoCollectedSentinel) {
		return result, nil
	}

	details, err := c.agent.ExtractPatientDetails(ctx, tc.transcript)
	if err != nil {
		c.logger.Warn("patient data extraction failed", "user_id", tc.userID, "error", err)
		c.metrics.ObserveExtraction("failure")
		result.reply(SenderAgent, extractionRetryPrompt)
		return result, nil
	}

	draft, ok := draftFromExtraction(details)
	if !ok {
		c.metrics.ObserveExtraction("incomplete")
		result.reply(SenderAgent, extractionRetryPrompt)
		return result, nil
	}

	c.metrics.ObserveExtraction("success")
	result.draft = &draft
	result.reply(SenderAgent, phoneConfirmationPrompt(tc.language, *draft.Phone))
	result.next = StateAwaitingPhoneConfirmation
	return result, nil
}

// handlePhoneConfirmation is a pure keyword classification step.
func (c *Controller) handlePhoneConfirmation(tc turnContext, text string) (turnResult, error) {
	var result turnResult

	switch ClassifyConfirmation(tc.language, text) {
	case VerdictYes:
		result.reply(SenderAgent, detailsConfirmationPrompt(tc.language, tc.draft.Summary()))
		result.next = StateAwaitingDetailsConfirmation
	case VerdictNo:
		draft := tc.draft
		draft.Phone = nil
		result.draft = &draft
		result.reply(SenderAgent, phoneRetryPrompt(tc.language))
		result.next = StateConversationInProgress
	default:
		result.reply(SenderAgent, yesNoRetryPrompt(tc.language))
	}
	return result, nil
}

// handleDetailsConfirmation mirrors the phone step but clears the whole
// draft on rejection. The English negative set additionally includes
// "change"; the Hindi set is unchanged.
func (c *Controller) handleDetailsConfirmation(tc turnContext, text string) (turnResult, error) {
	var result turnResult

	var extra []string
	if tc.language == LanguageEnglish {
		extra = append(extra, "change")
	}
	switch ClassifyConfirmation(tc.language, text, extra...) {
	case VerdictYes:
		result.reply(SenderAgent, appointmentTimePrompt(tc.language))
		result.next = StateAwaitingAppointmentTime
	case VerdictNo:
		result.draft = &PatientDraft{}
		result.reply(SenderAgent, correctionPrompt(tc.language))
		result.next = StateConversationInProgress
	default:
		result.reply(SenderAgent, yesNoRetryPrompt(tc.language))
	}
	return result, nil
}

// handleAppointmentTime treats the raw text as the requested time and creates
// the PENDING ticket. Missing preconditions tear the session down; a
// repository failure leaves the state untouched so the patient can retry.
func (c *Controller) handleAppointmentTime(ctx context.Context, tc turnContext, text string) (turnResult, error) {
	var result turnResult

	patient, ok := tc.draft.Snapshot()
	if !ok || tc.language == "" || tc.userID == "" {
		return result, errResetSession
	}

	ticket, err := c.tickets.Create(ctx, &appointments.CreateTicketRequest{
		UserID:          tc.userID,
		PatientData:     patient,
		AppointmentTime: text,
		Language:        string(tc.language),
	})
	if err != nil {
		c.logger.Error("ticket creation failed", "user_id", tc.userID, "error", err)
		return result, ErrTicketCreate
	}

	c.metrics.ObserveTicketCreated()
	result.ticket = ticket
	result.reply(SenderSystem, bookedConfirmationMessage(text))
	result.next = StateTicketDisplay
	return result, nil
}

// transcript renders the user/agent turns for the extraction prompt. System
// notices are not part of the conversation the model saw.
func transcript(messages []ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Sender {
		case SenderUser:
			b.WriteString("User: ")
		case SenderAgent:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
