package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	anthropicAPIVersion     = "2023-06-01"
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1/messages"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`

	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	StopSeqs    []string `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicBackend talks to the Anthropic messages API. The API is
// stateless on the wire, so sessions replay the adapter-held history
// with the seed carried as the top-level system prompt.
type AnthropicBackend struct {
	name       string
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	params     GenerationParams
	sessions   *sessionLog
}

func NewAnthropicBackend(cfg Config) (*AnthropicBackend, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "ANTHROPIC_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic backend %q: %s is not set", cfg.Name, keyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
		slog.Info("anthropic model not configured, defaulting", "model", model)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}

	return &AnthropicBackend{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.timeout()},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		params:     cfg.Params,
		sessions:   newSessionLog(),
	}, nil
}

func (a *AnthropicBackend) Name() string { return a.name }

func (a *AnthropicBackend) CreateSession(ctx context.Context, seed string) (string, error) {
	ack := Message{Role: "user", Content: "Acknowledge that you have read the document. Reply with OK."}
	reply, err := a.send(ctx, seed, []Message{ack})
	if err != nil {
		return "", fmt.Errorf("anthropic session creation: %w", err)
	}
	id := a.sessions.create(
		Message{Role: "system", Content: seed},
		ack,
		Message{Role: "assistant", Content: reply},
	)
	slog.Debug("Anthropic session created", "model", a.name, "session_id", id)
	return id, nil
}

func (a *AnthropicBackend) Query(ctx context.Context, sessionID, prompt string) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "AnthropicBackend.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", a.model),
		attribute.Bool("llm.session", sessionID != ""),
	)

	system := ""
	var msgs []Message
	if sessionID == "" {
		msgs = []Message{{Role: "user", Content: prompt}}
	} else {
		hist, err := a.sessions.history(sessionID)
		if err != nil {
			return nil, err
		}
		for _, m := range hist {
			if strings.EqualFold(m.Role, "system") {
				system = m.Content
				continue
			}
			msgs = append(msgs, m)
		}
		msgs = append(msgs, Message{Role: "user", Content: prompt})
	}

	start := time.Now()
	reply, err := a.send(ctx, system, msgs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	latency := time.Since(start)

	if sessionID != "" {
		if err := a.sessions.append(sessionID,
			Message{Role: "user", Content: prompt},
			Message{Role: "assistant", Content: reply}); err != nil {
			return nil, err
		}
	}

	return &QueryResult{
		Text:        reply,
		Assumptions: ParseInterpretation(reply).Assumptions,
		Latency:     latency,
	}, nil
}

func (a *AnthropicBackend) CloseSession(_ context.Context, sessionID string) error {
	a.sessions.drop(sessionID)
	return nil
}

func (a *AnthropicBackend) send(ctx context.Context, system string, messages []Message) (string, error) {
	apiMessages := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		apiMessages = append(apiMessages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := 4096
	if a.params.MaxTokens != nil {
		maxTokens = *a.params.MaxTokens
	}

	reqPayload := anthropicRequest{
		Model:       a.model,
		Messages:    apiMessages,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: a.params.Temperature,
		TopP:        a.params.TopP,
		TopK:        a.params.TopK,
		StopSeqs:    a.params.Stop,
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("received empty content from Anthropic")
	}

	var finalText strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			finalText.WriteString(block.Text)
		}
	}
	if finalText.Len() == 0 {
		return "", fmt.Errorf("received content but no text block found")
	}
	return finalText.String(), nil
}
