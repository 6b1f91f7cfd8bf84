package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

const (
	chatTemperature       = 0.7
	extractionTemperature = 0.2
)

// GeminiClient implements Client using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
	logger  *logging.Logger
}

// NewGeminiClient creates a new Gemini agent client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string, logger *logging.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("agent: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		modelID: modelID,
		logger:  logger,
	}, nil
}

// StartChat opens a chat session bound to the given system instruction,
// optionally seeded with prior turns.
func (c *GeminiClient) StartChat(ctx context.Context, systemInstruction string, history []ChatTurn) (ChatSession, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(chatTemperature)
	if strings.TrimSpace(systemInstruction) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))
	}

	cs := model.StartChat()
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		role := RoleUser
		if turn.Role == RoleModel {
			role = RoleModel
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	return &geminiChat{session: cs}, nil
}

type geminiChat struct {
	session *genai.ChatSession
}

// Send forwards one user turn and returns the model reply as plain text.
func (g *geminiChat) Send(ctx context.Context, text string) (string, error) {
	resp, err := g.session.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	reply, err := candidateText(resp)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// ExtractPatientDetails runs a one-shot structured extraction over the
// transcript and defensively parses the JSON reply.
func (c *GeminiClient) ExtractPatientDetails(ctx context.Context, transcript string) (*PatientDetails, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(extractionTemperature)
	model.ResponseMIMEType = "application/json"

	prompt := strings.Replace(extractionPrompt, "{{CHAT_HISTORY}}", transcript, 1)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("extraction request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw, err := candidateText(resp)
	if err != nil {
		return nil, err
	}

	details, err := ParsePatientDetails(raw)
	if err != nil {
		c.logger.Warn("extraction response rejected", "error", err)
		return nil, err
	}
	return details, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrUnavailable)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content", ErrUnavailable)
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}
