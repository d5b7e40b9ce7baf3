// Package session manages per-model conversation sessions for a
// pipeline run.
//
// # Description
//
// The manager opens one session per configured model, seeded with the
// full document, and tracks the lifecycle state of each. Session
// creation failure is not fatal: the model is marked StatelessFallback
// and every later query for it runs without a session. A model that
// loses its session mid-run transitions to StatelessFallback the same
// way and never transitions back.
//
// # Thread Safety
//
// Manager is safe for concurrent use. Backend adapters guard their own
// session state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/speclens/speclens/services/llm"
)

// State is the lifecycle state of one model's session. Transitions:
// Pending->Active, Pending->Failed->StatelessFallback,
// Active->StatelessFallback, Active->Closed. StatelessFallback is
// terminal for the run.
type State string

const (
	// StatePending means session creation is in flight.
	StatePending State = "pending"

	// StateActive means the session was created and queries should use it.
	StateActive State = "active"

	// StateFailed means session creation failed. The model enters
	// StatelessFallback the first time the run queries it.
	StateFailed State = "failed"

	// StateStatelessFallback means the model runs without a session,
	// either because creation failed or the session was lost mid-run.
	StateStatelessFallback State = "stateless_fallback"

	// StateClosed means Teardown released the session.
	StateClosed State = "closed"
)

// Degraded reports whether the model runs (or will run) without a
// session.
func (s State) Degraded() bool {
	return s == StateFailed || s == StateStatelessFallback
}

// Record is the tracked state of one model's session.
type Record struct {
	ModelID    string    `json:"model_id"`
	Handle     string    `json:"-"`
	State      State     `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// Manager owns the session records for one pipeline run.
type Manager struct {
	mu       sync.Mutex
	backends map[string]llm.Backend
	records  map[string]*Record
	logger   *slog.Logger

	// createTimeout bounds a single CreateSession call.
	createTimeout time.Duration
}

// NewManager builds a manager over the given backends. logger may be
// nil.
func NewManager(backends []llm.Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]llm.Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}
	return &Manager{
		backends:      byName,
		records:       make(map[string]*Record, len(backends)),
		logger:        logger,
		createTimeout: 2 * time.Minute,
	}
}

// CreateAll opens a session on every backend in parallel. Individual
// failures degrade that model to StatelessFallback; the error return is
// reserved for unknown-model programming errors.
func (m *Manager) CreateAll(ctx context.Context, seed string) error {
	var wg sync.WaitGroup
	for name := range m.backends {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			m.Create(ctx, name, seed)
		}(name)
	}
	wg.Wait()
	return ctx.Err()
}

// Create opens a session for one model. The record is Pending while
// creation is in flight; a failure leaves it Failed, and the run
// continues stateless for that model.
func (m *Manager) Create(ctx context.Context, modelID, seed string) {
	backend, ok := m.backend(modelID)
	if !ok {
		m.logger.Error("session create for unknown model", "model", modelID)
		return
	}

	m.mu.Lock()
	m.records[modelID] = &Record{
		ModelID:   modelID,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}
	m.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, m.createTimeout)
	defer cancel()

	handle, err := backend.CreateSession(cctx, seed)

	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[modelID]
	if err != nil {
		m.logger.Warn("session creation failed, model will run stateless",
			"model", modelID, "error", err)
		rec.State = StateFailed
		rec.Err = err.Error()
		return
	}

	m.logger.Info("session created", "model", modelID)
	rec.State = StateActive
	rec.Handle = handle
}

// Handle returns the session handle to use for a model's next query.
// An empty handle means query statelessly. Unknown models are an error.
//
// The first Handle call on a Failed record completes the
// Failed->StatelessFallback transition: fallback is entered when the
// run actually uses the model.
func (m *Manager) Handle(modelID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[modelID]
	if !ok {
		return "", fmt.Errorf("no session record for model %q", modelID)
	}
	switch rec.State {
	case StateActive:
		return rec.Handle, nil
	case StatePending:
		return "", fmt.Errorf("session for model %q is still pending", modelID)
	case StateFailed:
		rec.State = StateStatelessFallback
		return "", nil
	default:
		return "", nil
	}
}

// Touch records use of a model's session.
func (m *Manager) Touch(modelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[modelID]; ok {
		rec.LastUsedAt = time.Now().UTC()
	}
}

// MarkFallback degrades an active session to StatelessFallback after a
// mid-run session loss. The transition is one-way.
func (m *Manager) MarkFallback(modelID string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[modelID]
	if !ok || rec.State != StateActive {
		return
	}
	m.logger.Warn("session lost mid-run, degrading to stateless",
		"model", modelID, "error", cause)
	rec.State = StateStatelessFallback
	rec.Handle = ""
	if cause != nil {
		rec.Err = cause.Error()
	}
}

// Teardown releases every active session. Failures are logged, never
// returned; the artifacts on disk are already complete by the time this
// runs.
func (m *Manager) Teardown(ctx context.Context) {
	m.mu.Lock()
	type closing struct {
		modelID string
		handle  string
	}
	var toClose []closing
	for id, rec := range m.records {
		if rec.State == StateActive && rec.Handle != "" {
			toClose = append(toClose, closing{modelID: id, handle: rec.Handle})
		}
	}
	m.mu.Unlock()

	for _, c := range toClose {
		backend, ok := m.backend(c.modelID)
		if !ok {
			continue
		}
		if err := backend.CloseSession(ctx, c.handle); err != nil {
			m.logger.Warn("session close failed", "model", c.modelID, "error", err)
		}
		m.mu.Lock()
		if rec, ok := m.records[c.modelID]; ok && rec.State == StateActive {
			rec.State = StateClosed
			rec.Handle = ""
		}
		m.mu.Unlock()
	}
}

// Records returns a stable snapshot of all session records, sorted by
// model id, for the session metadata artifact.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

func (m *Manager) backend(modelID string) (llm.Backend, bool) {
	b, ok := m.backends[modelID]
	return b, ok
}
