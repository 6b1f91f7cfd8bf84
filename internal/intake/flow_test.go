package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/arogya-ai/clinic-intake/internal/agent"
	"github.com/arogya-ai/clinic-intake/internal/appointments"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

// stubChat replays canned replies in order.
type stubChat struct {
	replies []string
	sent    []string
	err     error
}

func (s *stubChat) Send(ctx context.Context, text string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, text)
	if len(s.replies) == 0 {
		return "Tell me more.", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type stubAgent struct {
	chat        agent.ChatSession
	startErr    error
	extraction  *agent.PatientDetails
	extractErr  error
	transcripts []string
}

func (s *stubAgent) StartChat(ctx context.Context, systemInstruction string, history []agent.ChatTurn) (agent.ChatSession, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.chat, nil
}

func (s *stubAgent) ExtractPatientDetails(ctx context.Context, transcript string) (*agent.PatientDetails, error) {
	s.transcripts = append(s.transcripts, transcript)
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	return s.extraction, nil
}

func completeDetails(phone string) *agent.PatientDetails {
	return &agent.PatientDetails{
		Name:     strptr("Asha Rao"),
		Age:      intptr(34),
		Gender:   strptr("female"),
		Symptoms: strptr("fever and cough"),
		Phone:    strptr(phone),
	}
}

func newTestController(a agent.Client) (*Controller, *appointments.InMemoryRepository) {
	repo := appointments.NewInMemoryRepository()
	return NewController(a, repo, nil, logging.Default()), repo
}

func TestSelectLanguage_StartsConversation(t *testing.T) {
	stub := &stubAgent{chat: &stubChat{replies: []string{"Hello! What is your name?"}}}
	c, _ := newTestController(stub)

	snap, err := c.SelectLanguage(context.Background(), "user-1", LanguageEnglish)
	if err != nil {
		t.Fatalf("SelectLanguage returned error: %v", err)
	}
	if snap.State != StateConversationInProgress {
		t.Fatalf("expected CONVERSATION_IN_PROGRESS, got %s", snap.State)
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Sender != SenderAgent {
		t.Fatalf("expected exactly one agent greeting, got %+v", snap.Messages)
	}
}

func TestSelectLanguage_AgentFailureResets(t *testing.T) {
	stub := &stubAgent{startErr: agent.ErrUnavailable}
	c, _ := newTestController(stub)

	snap, err := c.SelectLanguage(context.Background(), "user-1", LanguageHindi)
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}
	if snap.State != StateLanguageSelection {
		t.Errorf("expected reset to LANGUAGE_SELECTION, got %s", snap.State)
	}
	if len(snap.Messages) != 0 {
		t.Errorf("expected empty message list after failed start, got %d", len(snap.Messages))
	}
}

func TestSubmitMessage_EmptyIsNoOp(t *testing.T) {
	stub := &stubAgent{chat: &stubChat{replies: []string{"Hi! Name please?"}}}
	c, _ := newTestController(stub)

	if _, err := c.SelectLanguage(context.Background(), "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}

	snap, err := c.SubmitMessage(context.Background(), "user-1", "   \t ")
	if err != nil {
		t.Fatalf("SubmitMessage returned error: %v", err)
	}
	if len(snap.Messages) != 1 {
		t.Errorf("expected whitespace submission to append nothing, got %d messages", len(snap.Messages))
	}
	if snap.State != StateConversationInProgress {
		t.Errorf("expected no state change, got %s", snap.State)
	}
}

func TestSubmitMessage_BeforeLanguageIsNoOp(t *testing.T) {
	stub := &stubAgent{chat: &stubChat{}}
	c, _ := newTestController(stub)

	snap, err := c.SubmitMessage(context.Background(), "user-1", "hello")
	if err != nil {
		t.Fatalf("SubmitMessage returned error: %v", err)
	}
	if snap.State != StateLanguageSelection || len(snap.Messages) != 0 {
		t.Errorf("expected untouched session, got %+v", snap)
	}
}

func TestIntakeFlow_EndToEnd(t *testing.T) {
	stub := &stubAgent{
		chat: &stubChat{replies: []string{
			"Hello! What is your name?",
			"Got it, Asha. How old are you?",
			"Thanks. What is your gender?",
			"Understood. What symptoms are you having?",
			"I see. What is your phone number?",
			"ALL_INFO_COLLECTED",
		}},
		extraction: completeDetails("987-654-3210"),
	}
	c, repo := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}

	answers := []string{"Asha Rao", "34", "female", "fever and cough", "9876543210"}
	var snap Snapshot
	var err error
	for _, answer := range answers {
		if snap, err = c.SubmitMessage(ctx, "user-1", answer); err != nil {
			t.Fatalf("submit %q: %v", answer, err)
		}
	}

	if snap.State != StateAwaitingPhoneConfirmation {
		t.Fatalf("expected AWAITING_PHONE_CONFIRMATION after sentinel, got %s", snap.State)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Sender != SenderAgent || last.Text != phoneConfirmationPrompt(LanguageEnglish, "9876543210") {
		t.Fatalf("expected phone confirmation prompt with normalized number, got %q", last.Text)
	}

	// Phone confirmation → details confirmation.
	if snap, err = c.SubmitMessage(ctx, "user-1", "yes"); err != nil {
		t.Fatalf("confirm phone: %v", err)
	}
	if snap.State != StateAwaitingDetailsConfirmation {
		t.Fatalf("expected AWAITING_DETAILS_CONFIRMATION, got %s", snap.State)
	}

	// Details confirmation → appointment time.
	if snap, err = c.SubmitMessage(ctx, "user-1", "yes"); err != nil {
		t.Fatalf("confirm details: %v", err)
	}
	if snap.State != StateAwaitingAppointmentTime {
		t.Fatalf("expected AWAITING_APPOINTMENT_TIME, got %s", snap.State)
	}

	// Appointment time → ticket.
	if snap, err = c.SubmitMessage(ctx, "user-1", "Tomorrow 10am"); err != nil {
		t.Fatalf("submit time: %v", err)
	}
	if snap.State != StateTicketDisplay {
		t.Fatalf("expected TICKET_DISPLAY, got %s", snap.State)
	}
	if snap.Ticket == nil || snap.Ticket.Status != appointments.StatusPending {
		t.Fatalf("expected PENDING ticket, got %+v", snap.Ticket)
	}
	if snap.Ticket.PatientData.Phone != "9876543210" {
		t.Errorf("expected normalized phone on ticket, got %s", snap.Ticket.PatientData.Phone)
	}

	stored, err := repo.ListByUser(ctx, "user-1")
	if err != nil || len(stored) != 1 {
		t.Fatalf("expected exactly one persisted ticket, got %d err=%v", len(stored), err)
	}
}

func TestExtractionFailureReprompts(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED"}},
		extractErr: agent.ErrExtraction,
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	snap, err := c.SubmitMessage(ctx, "user-1", "all my details at once")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if snap.State != StateConversationInProgress {
		t.Fatalf("expected to remain in CONVERSATION_IN_PROGRESS, got %s", snap.State)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Text != extractionRetryPrompt {
		t.Errorf("expected extraction re-prompt, got %q", last.Text)
	}
}

func TestExtractionRejectsIncompletePhone(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED"}},
		extraction: completeDetails("12345"),
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	snap, err := c.SubmitMessage(ctx, "user-1", "everything")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if snap.State != StateConversationInProgress {
		t.Errorf("expected no transition on short phone, got %s", snap.State)
	}
}

func TestPhoneConfirmation_NegativeClearsPhone(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED"}},
		extraction: completeDetails("9876543210"),
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "everything"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap, err := c.SubmitMessage(ctx, "user-1", "no, that's wrong")
	if err != nil {
		t.Fatalf("reject phone: %v", err)
	}
	if snap.State != StateConversationInProgress {
		t.Fatalf("expected fallback to CONVERSATION_IN_PROGRESS, got %s", snap.State)
	}

	s := c.session("user-1")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.Phone != nil {
		t.Errorf("expected phone cleared, got %v", *s.draft.Phone)
	}
	if s.draft.Name == nil {
		t.Errorf("expected other fields kept")
	}
}

func TestDetailsConfirmation_ChangeClearsEverything(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED"}},
		extraction: completeDetails("9876543210"),
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "everything"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "yes"); err != nil {
		t.Fatalf("confirm phone: %v", err)
	}

	snap, err := c.SubmitMessage(ctx, "user-1", "no, change my symptoms")
	if err != nil {
		t.Fatalf("reject details: %v", err)
	}
	if snap.State != StateConversationInProgress {
		t.Fatalf("expected fallback to CONVERSATION_IN_PROGRESS, got %s", snap.State)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Text != correctionPrompt(LanguageEnglish) {
		t.Errorf("expected correction prompt, got %q", last.Text)
	}

	s := c.session("user-1")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.Name != nil || s.draft.Phone != nil || s.draft.Symptoms != nil {
		t.Errorf("expected draft fully cleared, got %+v", s.draft)
	}
}

func TestConfirmation_AmbiguousReprompts(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED"}},
		extraction: completeDetails("9876543210"),
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "everything"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap, err := c.SubmitMessage(ctx, "user-1", "maybe later")
	if err != nil {
		t.Fatalf("ambiguous reply: %v", err)
	}
	if snap.State != StateAwaitingPhoneConfirmation {
		t.Fatalf("expected no state change on ambiguous reply, got %s", snap.State)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Text != yesNoRetryPrompt(LanguageEnglish) {
		t.Errorf("expected yes/no re-ask, got %q", last.Text)
	}
}

func TestResetThenSelectLanguage(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED", "Hello again!"}},
		extraction: completeDetails("9876543210"),
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "everything"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := c.Reset("user-1")
	if snap.State != StateLanguageSelection || len(snap.Messages) != 0 {
		t.Fatalf("expected clean session after reset, got %+v", snap)
	}

	// Reset is idempotent.
	snap = c.Reset("user-1")
	if snap.State != StateLanguageSelection {
		t.Fatalf("expected reset idempotence, got %s", snap.State)
	}

	snap, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish)
	if err != nil {
		t.Fatalf("re-select language: %v", err)
	}
	if snap.State != StateConversationInProgress || len(snap.Messages) != 1 {
		t.Fatalf("expected one greeting in a fresh conversation, got %+v", snap)
	}
}

func TestAgentErrorAppendsGenericFailure(t *testing.T) {
	chat := &stubChat{replies: []string{"Hi! Name?"}}
	stub := &stubAgent{chat: chat}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}

	chat.err = agent.ErrUnavailable
	snap, err := c.SubmitMessage(ctx, "user-1", "hello?")
	if err != nil {
		t.Fatalf("expected failure to be absorbed, got %v", err)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Sender != SenderAgent || last.Text != agentUnavailableMessage {
		t.Errorf("expected generic failure message, got %+v", last)
	}
	if snap.Busy {
		t.Errorf("expected busy flag cleared after error")
	}
}

func TestAppointmentTime_RepositoryFailureKeepsState(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED"}},
		extraction: completeDetails("9876543210"),
	}
	repo := &failingRepo{}
	c := NewController(stub, repo, nil, logging.Default())
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "everything"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "yes"); err != nil {
		t.Fatalf("confirm phone: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "yes"); err != nil {
		t.Fatalf("confirm details: %v", err)
	}

	snap, err := c.SubmitMessage(ctx, "user-1", "Tomorrow 10am")
	if !errors.Is(err, ErrTicketCreate) {
		t.Fatalf("expected ErrTicketCreate, got %v", err)
	}
	if snap.State != StateAwaitingAppointmentTime {
		t.Errorf("expected state kept for retry, got %s", snap.State)
	}
}

func TestExtractionRejectsOutOfRangeAge(t *testing.T) {
	details := completeDetails("9876543210")
	details.Age = intptr(200)
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"Hi! Name?", "ALL_INFO_COLLECTED"}},
		extraction: details,
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}
	snap, err := c.SubmitMessage(ctx, "user-1", "everything")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if snap.State != StateConversationInProgress {
		t.Fatalf("expected no transition on impossible age, got %s", snap.State)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Text != extractionRetryPrompt {
		t.Errorf("expected extraction re-prompt, got %q", last.Text)
	}
}

func TestDetailsConfirmation_ChangeIsEnglishOnly(t *testing.T) {
	stub := &stubAgent{
		chat:       &stubChat{replies: []string{"नमस्ते! आपका नाम?", "ALL_INFO_COLLECTED"}},
		extraction: completeDetails("9876543210"),
	}
	c, _ := newTestController(stub)
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageHindi); err != nil {
		t.Fatalf("select language: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "सब कुछ"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.SubmitMessage(ctx, "user-1", "हाँ"); err != nil {
		t.Fatalf("confirm phone: %v", err)
	}

	// "change" is an English negative; in a Hindi conversation it is just an
	// unrecognized reply and the question is asked again.
	snap, err := c.SubmitMessage(ctx, "user-1", "change")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if snap.State != StateAwaitingDetailsConfirmation {
		t.Fatalf("expected no state change, got %s", snap.State)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Text != yesNoRetryPrompt(LanguageHindi) {
		t.Errorf("expected yes/no re-ask, got %q", last.Text)
	}
}

// blockingChat answers the kickoff immediately and then parks every Send
// until released, so a test can overlap a turn with other calls.
type blockingChat struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingChat() *blockingChat {
	return &blockingChat{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingChat) Send(ctx context.Context, text string) (string, error) {
	if text == kickoffPrompt {
		return "Hi! Name?", nil
	}
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return "Tell me more.", nil
}

func TestResetDiscardsInFlightTurn(t *testing.T) {
	chat := newBlockingChat()
	c, _ := newTestController(&stubAgent{chat: chat})
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}

	done := make(chan Snapshot, 1)
	go func() {
		snap, err := c.SubmitMessage(ctx, "user-1", "hello")
		if err != nil {
			t.Errorf("in-flight turn returned error: %v", err)
		}
		done <- snap
	}()

	<-chat.entered
	c.Reset("user-1")
	close(chat.release)

	snap := <-done
	if snap.State != StateLanguageSelection || len(snap.Messages) != 0 {
		t.Fatalf("expected late result to be discarded, got %+v", snap)
	}
	after := c.Snapshot("user-1")
	if after.State != StateLanguageSelection || len(after.Messages) != 0 {
		t.Fatalf("expected clean session after reset, got %+v", after)
	}
}

func TestSubmitMessageWhileBusyIsRejected(t *testing.T) {
	chat := newBlockingChat()
	c, _ := newTestController(&stubAgent{chat: chat})
	ctx := context.Background()

	if _, err := c.SelectLanguage(ctx, "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}

	done := make(chan Snapshot, 1)
	go func() {
		snap, err := c.SubmitMessage(ctx, "user-1", "first")
		if err != nil {
			t.Errorf("first turn returned error: %v", err)
		}
		done <- snap
	}()

	<-chat.entered
	snap, err := c.SubmitMessage(ctx, "user-1", "second")
	if !errors.Is(err, ErrConversationBusy) {
		t.Fatalf("expected ErrConversationBusy, got %v", err)
	}
	if !snap.Busy {
		t.Errorf("expected busy snapshot while a turn is in flight")
	}
	close(chat.release)

	final := <-done
	// Only the first turn and its reply landed; the rejected one left no trace.
	if len(final.Messages) != 3 {
		t.Errorf("expected greeting, first turn and reply, got %d messages", len(final.Messages))
	}
}

func TestResetEvictsSession(t *testing.T) {
	stub := &stubAgent{chat: &stubChat{replies: []string{"Hi! Name?"}}}
	c, _ := newTestController(stub)

	if _, err := c.SelectLanguage(context.Background(), "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}

	c.Reset("user-1")
	c.mu.Lock()
	_, ok := c.sessions["user-1"]
	c.mu.Unlock()
	if ok {
		t.Fatalf("expected session entry removed on reset")
	}
}

func TestSpeechNoticeKeepsState(t *testing.T) {
	stub := &stubAgent{chat: &stubChat{replies: []string{"Hi! Name?"}}}
	c, _ := newTestController(stub)

	if _, err := c.SelectLanguage(context.Background(), "user-1", LanguageEnglish); err != nil {
		t.Fatalf("select language: %v", err)
	}

	snap := c.AppendSystemNotice("user-1", "Microphone access was denied.")
	if snap.State != StateConversationInProgress {
		t.Errorf("expected state unchanged, got %s", snap.State)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Sender != SenderSystem {
		t.Errorf("expected system notice, got %+v", last)
	}
}

type failingRepo struct {
	appointments.InMemoryRepository
}

func (f *failingRepo) Create(ctx context.Context, req *appointments.CreateTicketRequest) (*appointments.Ticket, error) {
	return nil, errors.New("appointments: insert failed")
}
