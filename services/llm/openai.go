package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OpenAIBackend talks to the OpenAI chat completions API (or any
// compatible endpoint via BaseURL). Sessions are emulated the same way
// as the other HTTP adapters.
type OpenAIBackend struct {
	name     string
	client   *openai.Client
	model    string
	params   GenerationParams
	sessions *sessionLog
}

func NewOpenAIBackend(cfg Config) (*OpenAIBackend, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("openai backend %q: %s is not set", cfg.Name, keyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
		slog.Info("openai model not configured, defaulting", "model", model)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.timeout()}

	return &OpenAIBackend{
		name:     cfg.Name,
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		params:   cfg.Params,
		sessions: newSessionLog(),
	}, nil
}

func (o *OpenAIBackend) Name() string { return o.name }

func (o *OpenAIBackend) CreateSession(ctx context.Context, seed string) (string, error) {
	msgs := []Message{
		{Role: openai.ChatMessageRoleSystem, Content: seed},
		{Role: openai.ChatMessageRoleUser, Content: "Acknowledge that you have read the document. Reply with OK."},
	}
	reply, err := o.complete(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("openai session creation: %w", err)
	}
	id := o.sessions.create(append(msgs, Message{Role: openai.ChatMessageRoleAssistant, Content: reply})...)
	slog.Debug("OpenAI session created", "model", o.name, "session_id", id)
	return id, nil
}

func (o *OpenAIBackend) Query(ctx context.Context, sessionID, prompt string) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "OpenAIBackend.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Bool("llm.session", sessionID != ""),
	)

	var msgs []Message
	if sessionID == "" {
		msgs = []Message{{Role: openai.ChatMessageRoleUser, Content: prompt}}
	} else {
		hist, err := o.sessions.history(sessionID)
		if err != nil {
			return nil, err
		}
		msgs = append(hist, Message{Role: openai.ChatMessageRoleUser, Content: prompt})
	}

	start := time.Now()
	reply, err := o.complete(ctx, msgs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	latency := time.Since(start)

	if sessionID != "" {
		if err := o.sessions.append(sessionID,
			Message{Role: openai.ChatMessageRoleUser, Content: prompt},
			Message{Role: openai.ChatMessageRoleAssistant, Content: reply}); err != nil {
			return nil, err
		}
	}

	return &QueryResult{
		Text:        reply,
		Assumptions: ParseInterpretation(reply).Assumptions,
		Latency:     latency,
	}, nil
}

func (o *OpenAIBackend) CloseSession(_ context.Context, sessionID string) error {
	o.sessions.drop(sessionID)
	return nil
}

func (o *OpenAIBackend) complete(ctx context.Context, messages []Message) (string, error) {
	apiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		apiMessages = append(apiMessages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: apiMessages,
		Stop:     o.params.Stop,
	}
	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}
	if o.params.MaxTokens != nil {
		req.MaxTokens = *o.params.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("received empty choices from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
