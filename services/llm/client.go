// Package llm provides the model backend adapters used by the pipeline.
//
// Every backend is abstracted behind the Backend capability interface
// {CreateSession, Query, CloseSession}; the rest of the system never
// branches on backend identity beyond adapter selection. Backends whose
// wire protocol has no server-side session concept emulate one with an
// adapter-local message log keyed by an opaque handle.
package llm

import (
	"context"
	"time"
)

// Message is one conversational turn in a backend-agnostic shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams carries optional sampling parameters. Nil fields use
// backend defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// QueryResult is one model answer plus its observed latency.
// Assumptions are the ones the model declared in its structured
// response; empty when the response carried none or did not parse.
type QueryResult struct {
	Text        string
	Assumptions []string
	Latency     time.Duration
}

// Backend is the uniform capability interface over heterogeneous model
// backends.
//
// Query with an empty sessionID is a stateless, single-turn request.
// Query with a handle from CreateSession continues that conversation;
// the backend (or its adapter) accumulates prior turns, so callers must
// issue session-bound queries for one handle sequentially.
type Backend interface {
	// Name returns the configured model identifier.
	Name() string

	// CreateSession opens a conversational session seeded with the given
	// context (typically the full document plus a purpose prompt) and
	// returns an opaque handle. The call respects ctx deadlines.
	CreateSession(ctx context.Context, seed string) (string, error)

	// Query sends a prompt, stateless when sessionID is empty.
	Query(ctx context.Context, sessionID, prompt string) (*QueryResult, error)

	// CloseSession releases the session. Best-effort; callers log and
	// continue on failure.
	CloseSession(ctx context.Context, sessionID string) error
}
