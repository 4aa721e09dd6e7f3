package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analysis-tool/internal/config"
	"alfredoptarigan/cv-analysis-tool/internal/logger"
)

const (
	conversationFlow = "hr_insights"
	analysisFallback = "Analysis failed"
	maxLoggedBody    = 300
)

// AnalysisClient talks to the remote CV analysis API. Every call is a
// single attempt.
type AnalysisClient interface {
	CreateChat(ctx context.Context, cvText, threadID, identifier string) (*ChatResponse, error)
	SubmitFeedback(ctx context.Context, messageID, threadID string, positive bool) (map[string]any, error)
}

type ChatRequest struct {
	ThreadID         string `json:"thread_id"`
	ConversationFlow string `json:"conversation_flow"`
	UserPrompt       string `json:"user_prompt"`
}

// UserPrompt is sent JSON-encoded inside ChatRequest.UserPrompt.
type UserPrompt struct {
	RevisionID string `json:"revision_id"`
	Identifier string `json:"identifier"`
	Page1      string `json:"Page_1"`
}

type ChatResponse struct {
	AgentResponse json.RawMessage `json:"agent_response"`
	ThreadID      string          `json:"thread_id"`
	MessageID     string          `json:"message_id"`
}

// AnalysisText returns agent_response as stored in session state. The
// API usually sends a JSON string holding a JSON array; anything else is
// kept verbatim.
func (r *ChatResponse) AnalysisText() string {
	raw := bytes.TrimSpace(r.AgentResponse)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return analysisFallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type FeedbackPayload struct {
	ThreadID         string `json:"thread_id"`
	MessageID        string `json:"message_id"`
	UserID           string `json:"user_id"`
	PositiveFeedback bool   `json:"positive_feedback"`
}

// ErrEmptyResponse is returned when a 2xx response carries no body.
var ErrEmptyResponse = errors.New("analysis API returned an empty response")

// APIStatusError is returned for any non-2xx response.
type APIStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analysis API returned %s", e.Status)
	}
	return fmt.Sprintf("analysis API returned %s: %s", e.Status, e.Body)
}

type analysisClient struct {
	baseURL        string
	username       string
	password       string
	revisionID     string
	feedbackUserID string
	httpClient     *http.Client
	logger         *zap.Logger
}

func NewAnalysisClient(cfg config.AnalysisAPIConfig, httpClient *http.Client, log *zap.Logger) AnalysisClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &analysisClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		username:       cfg.Username,
		password:       cfg.Password,
		revisionID:     cfg.RevisionID,
		feedbackUserID: cfg.FeedbackUserID,
		httpClient:     httpClient,
		logger:         log,
	}
}

// CreateChat implements AnalysisClient.
func (a *analysisClient) CreateChat(ctx context.Context, cvText, threadID, identifier string) (*ChatResponse, error) {
	if threadID == "" {
		threadID = uuid.New().String()
	}
	if identifier == "" {
		identifier = uuid.New().String()[:8]
	}

	prompt, err := json.Marshal(UserPrompt{
		RevisionID: a.revisionID,
		Identifier: identifier,
		Page1:      cvText,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode user prompt: %w", err)
	}

	payload := ChatRequest{
		ThreadID:         threadID,
		ConversationFlow: conversationFlow,
		UserPrompt:       string(prompt),
	}

	var out ChatResponse
	if err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/chat", payload, &out); err != nil {
		return nil, err
	}

	a.logger.Debug("analysis received",
		zap.String("identifier", identifier),
		zap.String("thread_id", out.ThreadID),
		zap.String("message_id", out.MessageID),
		zap.String("agent_response", logger.TruncateForLog(string(out.AgentResponse), maxLoggedBody)),
	)

	return &out, nil
}

// SubmitFeedback implements AnalysisClient.
func (a *analysisClient) SubmitFeedback(ctx context.Context, messageID, threadID string, positive bool) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/messages/%s/feedback", a.baseURL, url.PathEscape(messageID))

	payload := FeedbackPayload{
		ThreadID:         threadID,
		MessageID:        messageID,
		UserID:           a.feedbackUserID,
		PositiveFeedback: positive,
	}

	// The feedback endpoint may acknowledge with an empty body.
	out := map[string]any{}
	if err := a.doJSON(ctx, http.MethodPut, endpoint, payload, &out); err != nil && !errors.Is(err, ErrEmptyResponse) {
		return nil, err
	}

	return out, nil
}

func (a *analysisClient) doJSON(ctx context.Context, method, endpoint string, body, target any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(a.username, a.password)

	a.logger.Debug("make request", zap.String("method", method), zap.String("url", endpoint))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call analysis API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read analysis API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       logger.TruncateForLog(string(data), maxLoggedBody),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode analysis API response: %w", err)
	}

	return nil
}
