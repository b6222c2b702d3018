package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrAINotConfigured is returned when no summary endpoint is configured.
var ErrAINotConfigured = errors.New("ai summary endpoint is not configured")

// CheckInSummaryInput carries the context for one check-in summary.
type CheckInSummaryInput struct {
	ExperimentTitle string
	Date            string
	Notes           string
	ResponseLines   []string
}

// SummaryGenerator produces the optional aiSummary for a check-in. The
// interface exists so handlers can take a fake in tests.
type SummaryGenerator interface {
	GenerateCheckInSummary(ctx context.Context, input CheckInSummaryInput) (string, error)
}

const (
	defaultSummaryModel       = "gpt-4o-mini"
	defaultSummaryMaxTokens   = 160
	defaultSummaryTemperature = 0.2
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// AISummaryService generates check-in summaries through a chat-completions
// endpoint configured in system settings. Generation is best effort; check-in
// writes never depend on it succeeding.
type AISummaryService struct {
	settings *SystemSettingService
	http     httpDoer
}

// NewAISummaryService constructs the default AISummaryService.
func NewAISummaryService(settings *SystemSettingService) *AISummaryService {
	return &AISummaryService{
		settings: settings,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient overrides the HTTP client, mainly for tests.
func (s *AISummaryService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	s.http = client
}

// GenerateCheckInSummary asks the configured model for a one-paragraph
// summary of the day's notes and responses.
func (s *AISummaryService) GenerateCheckInSummary(ctx context.Context, input CheckInSummaryInput) (string, error) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		return "", err
	}

	base := strings.TrimRight(strings.TrimSpace(settings.AIBaseURL), "/")
	apiKey := strings.TrimSpace(settings.AIAPIKey)
	if base == "" || apiKey == "" {
		return "", ErrAINotConfigured
	}

	model := strings.TrimSpace(settings.AIModel)
	if model == "" {
		model = defaultSummaryModel
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Experiment: %s\nDate: %s\n", input.ExperimentTitle, input.Date)
	if strings.TrimSpace(input.Notes) != "" {
		fmt.Fprintf(&sb, "Notes: %s\n", strings.TrimSpace(input.Notes))
	}
	for _, line := range input.ResponseLines {
		fmt.Fprintf(&sb, "- %s\n", line)
	}

	payload := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: "Summarize the user's daily self-experiment check-in in one short sentence. Reply with the summary only."},
			{Role: "user", Content: sb.String()},
		},
		MaxTokens:   defaultSummaryMaxTokens,
		Temperature: defaultSummaryTemperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call summary endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read summary response: %w", err)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode summary response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(parsed.Error.Message)
		if message == "" {
			message = resp.Status
		}
		return "", fmt.Errorf("summary endpoint: %s", message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("summary endpoint returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
