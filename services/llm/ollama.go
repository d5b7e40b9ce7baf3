package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("speclens.llm")

// OllamaBackend talks to a local Ollama server over its chat API.
//
// Ollama has no server-side session concept, so sessions are emulated:
// the adapter keeps the message history per handle and replays it on
// every session-bound query.
type OllamaBackend struct {
	name       string
	httpClient *http.Client
	baseURL    string
	model      string
	params     GenerationParams
	sessions   *sessionLog
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message   Message `json:"message"`
	CreatedAt string  `json:"created_at"`
	Done      bool    `json:"done"`
}

func NewOllamaBackend(cfg Config) (*OllamaBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama backend %q: base_url is required", cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama backend %q: model is required", cfg.Name)
	}
	return &OllamaBackend{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.timeout()},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		params:     cfg.Params,
		sessions:   newSessionLog(),
	}, nil
}

func (o *OllamaBackend) Name() string { return o.name }

// CreateSession seeds a conversation with the document context and sends
// one acknowledgment turn so the model's first real answer already has
// the context in its window.
func (o *OllamaBackend) CreateSession(ctx context.Context, seed string) (string, error) {
	msgs := []Message{
		{Role: "system", Content: seed},
		{Role: "user", Content: "Acknowledge that you have read the document. Reply with OK."},
	}
	reply, err := o.chat(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("ollama session creation: %w", err)
	}
	id := o.sessions.create(append(msgs, Message{Role: "assistant", Content: reply})...)
	slog.Debug("Ollama session created", "model", o.name, "session_id", id)
	return id, nil
}

func (o *OllamaBackend) Query(ctx context.Context, sessionID, prompt string) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "OllamaBackend.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Bool("llm.session", sessionID != ""),
	)

	var msgs []Message
	if sessionID == "" {
		msgs = []Message{{Role: "user", Content: prompt}}
	} else {
		hist, err := o.sessions.history(sessionID)
		if err != nil {
			return nil, err
		}
		msgs = append(hist, Message{Role: "user", Content: prompt})
	}

	start := time.Now()
	reply, err := o.chat(ctx, msgs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	latency := time.Since(start)

	if sessionID != "" {
		if err := o.sessions.append(sessionID,
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

func (o *OllamaBackend) CloseSession(_ context.Context, sessionID string) error {
	o.sessions.drop(sessionID)
	return nil
}

func (o *OllamaBackend) chat(ctx context.Context, messages []Message) (string, error) {
	payload := ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
		Options:  o.buildOptions(),
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	chatURL := o.baseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", chatURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(respBody, &errResp); err == nil &&
				strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				return "", fmt.Errorf("model '%s' not found. Please run: 'ollama pull %s'", o.model, o.model)
			}
		}
		return "", fmt.Errorf("ollama chat failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("parsing ollama response: %w", err)
	}
	if chatResp.Message.Role != "assistant" {
		slog.Warn("Ollama chat response role was not 'assistant'", "role", chatResp.Message.Role)
	}
	return chatResp.Message.Content, nil
}

func (o *OllamaBackend) buildOptions() map[string]any {
	options := make(map[string]any)
	if o.params.Temperature != nil {
		options["temperature"] = *o.params.Temperature
	} else {
		options["temperature"] = float32(0.2)
	}
	if o.params.TopK != nil {
		options["top_k"] = *o.params.TopK
	} else {
		options["top_k"] = 20
	}
	if o.params.TopP != nil {
		options["top_p"] = *o.params.TopP
	} else {
		options["top_p"] = float32(0.9)
	}
	if o.params.MaxTokens != nil {
		options["num_predict"] = *o.params.MaxTokens
	}
	if len(o.params.Stop) > 0 {
		options["stop"] = o.params.Stop
	}
	return options
}
