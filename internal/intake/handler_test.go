package intake

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

func newTestHandler(a *stubAgent) *Handler {
	c, _ := newTestController(a)
	return NewHandler(c, logging.Default())
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := identity.WithPrincipal(req.Context(), identity.Principal{UserID: "user-1", Role: identity.RolePatient})
	return req.WithContext(ctx)
}

func TestStart_Success(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{replies: []string{"Hello! What is your name?"}}})

	body, _ := json.Marshal(StartRequest{Language: "english"})
	w := httptest.NewRecorder()

	h.Start(w, authedRequest(http.MethodPost, "/intake/start", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var snap Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.State != StateConversationInProgress {
		t.Errorf("expected CONVERSATION_IN_PROGRESS, got %s", snap.State)
	}
	if len(snap.Messages) != 1 {
		t.Errorf("expected one greeting message, got %d", len(snap.Messages))
	}
}

func TestStart_UnsupportedLanguage(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{}})

	body, _ := json.Marshal(StartRequest{Language: "french"})
	w := httptest.NewRecorder()

	h.Start(w, authedRequest(http.MethodPost, "/intake/start", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestStart_AgentDown(t *testing.T) {
	h := newTestHandler(&stubAgent{startErr: ErrAgentUnavailable})

	body, _ := json.Marshal(StartRequest{Language: "HINDI"})
	w := httptest.NewRecorder()

	h.Start(w, authedRequest(http.MethodPost, "/intake/start", body))

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, w.Code)
	}
}

func TestStart_Unauthenticated(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{}})

	body, _ := json.Marshal(StartRequest{Language: "ENGLISH"})
	req := httptest.NewRequest(http.MethodPost, "/intake/start", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestMessage_InvalidJSON(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{}})

	req := authedRequest(http.MethodPost, "/intake/message", []byte("{"))
	w := httptest.NewRecorder()

	h.Message(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{replies: []string{"Hello! Name?", "How old are you?"}}})

	body, _ := json.Marshal(StartRequest{Language: "ENGLISH"})
	w := httptest.NewRecorder()
	h.Start(w, authedRequest(http.MethodPost, "/intake/start", body))
	if w.Code != http.StatusOK {
		t.Fatalf("start failed: %d", w.Code)
	}

	body, _ = json.Marshal(MessageRequest{Text: "Asha Rao"})
	w = httptest.NewRecorder()
	h.Message(w, authedRequest(http.MethodPost, "/intake/message", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var snap Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(snap.Messages) != 3 {
		t.Errorf("expected greeting + user turn + reply, got %d messages", len(snap.Messages))
	}
}

func TestSession_ReturnsCurrentState(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{}})

	w := httptest.NewRecorder()
	h.Session(w, authedRequest(http.MethodGet, "/intake/session", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var snap Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.State != StateLanguageSelection {
		t.Errorf("expected LANGUAGE_SELECTION for a fresh session, got %s", snap.State)
	}
}

func TestReset_ReturnsCleanSession(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{replies: []string{"Hello!"}}})

	body, _ := json.Marshal(StartRequest{Language: "ENGLISH"})
	w := httptest.NewRecorder()
	h.Start(w, authedRequest(http.MethodPost, "/intake/start", body))

	w = httptest.NewRecorder()
	h.Reset(w, authedRequest(http.MethodPost, "/intake/reset", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var snap Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.State != StateLanguageSelection || len(snap.Messages) != 0 {
		t.Errorf("expected clean session, got %+v", snap)
	}
}

func TestSpeechError_AppendsNotice(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{replies: []string{"Hello!"}}})

	body, _ := json.Marshal(StartRequest{Language: "ENGLISH"})
	w := httptest.NewRecorder()
	h.Start(w, authedRequest(http.MethodPost, "/intake/start", body))

	body, _ = json.Marshal(SpeechErrorRequest{Code: "not-allowed"})
	w = httptest.NewRecorder()
	h.SpeechError(w, authedRequest(http.MethodPost, "/intake/speech-error", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var snap Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Sender != SenderSystem || !strings.Contains(last.Text, "Microphone access was denied") {
		t.Errorf("expected microphone notice, got %+v", last)
	}
	if snap.State != StateConversationInProgress {
		t.Errorf("expected state untouched, got %s", snap.State)
	}
}

func TestSpeechError_MissingCode(t *testing.T) {
	h := newTestHandler(&stubAgent{chat: &stubChat{}})

	body, _ := json.Marshal(SpeechErrorRequest{})
	w := httptest.NewRecorder()
	h.SpeechError(w, authedRequest(http.MethodPost, "/intake/speech-error", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
