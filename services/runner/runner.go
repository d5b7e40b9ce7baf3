package runner

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/speclens/speclens/services/document"
	"github.com/speclens/speclens/services/llm"
	"github.com/speclens/speclens/services/session"
)

// Runner drives the (section, model) query grid.
//
// # Thread Safety
//
// A Runner is safe for concurrent use; each Run* call manages its own
// goroutines and collects into call-local state.
type Runner struct {
	backends []llm.Backend
	cache    *Cache
	logger   *slog.Logger
}

// NewRunner builds a runner. cache may be nil to disable response
// caching; logger may be nil.
func NewRunner(backends []llm.Backend, cache *Cache, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{backends: backends, cache: cache, logger: logger}
}

// RunBaseline queries every (model, section) pair statelessly, fully in
// parallel. Every pair yields exactly one response; failures come back
// as error-bearing responses, never as a short result set.
func (r *Runner) RunBaseline(ctx context.Context, sections []document.Section) []ModelResponse {
	out := make(chan ModelResponse, len(r.backends)*len(sections))
	var wg sync.WaitGroup

	for _, backend := range r.backends {
		for _, sec := range sections {
			wg.Add(1)
			go func(b llm.Backend, sec document.Section) {
				defer wg.Done()
				out <- r.query(ctx, b, "", ModeBaseline, sec, BaselinePrompt(sec))
			}(backend, sec)
		}
	}

	wg.Wait()
	close(out)

	responses := make([]ModelResponse, 0, len(r.backends)*len(sections))
	for resp := range out {
		responses = append(responses, resp)
	}
	sortResponses(responses)
	return responses
}

// RunSession queries sections inside each model's session, sequentially
// per model in sequence order, in parallel across models.
//
// Models in stateless fallback are queried without a session but still
// recorded with mode "session". A mid-run session failure degrades the
// model via mgr.MarkFallback, records the failed query as an
// error-bearing response, and continues stateless from the next
// section.
func (r *Runner) RunSession(ctx context.Context, mgr *session.Manager, sections []document.Section) []ModelResponse {
	ordered := append([]document.Section(nil), sections...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SequenceIndex < ordered[j].SequenceIndex })

	results := make([][]ModelResponse, len(r.backends))
	var wg sync.WaitGroup

	for i, backend := range r.backends {
		wg.Add(1)
		go func(i int, b llm.Backend) {
			defer wg.Done()
			results[i] = r.runModelSession(ctx, mgr, b, ordered)
		}(i, backend)
	}
	wg.Wait()

	var responses []ModelResponse
	for _, chunk := range results {
		responses = append(responses, chunk...)
	}
	sortResponses(responses)
	return responses
}

func (r *Runner) runModelSession(ctx context.Context, mgr *session.Manager, b llm.Backend, sections []document.Section) []ModelResponse {
	responses := make([]ModelResponse, 0, len(sections))
	for _, sec := range sections {
		handle, err := mgr.Handle(b.Name())
		if err != nil {
			responses = append(responses, ModelResponse{
				ModelID:       b.Name(),
				SectionID:     sec.ID,
				SequenceIndex: sec.SequenceIndex,
				Mode:          ModeSession,
				Error:         err.Error(),
			})
			continue
		}

		// A stateless query must be self-contained; only a live session
		// may presuppose the document. The recorded mode stays session
		// either way.
		prompt := SessionPrompt(sec)
		if handle == "" {
			prompt = BaselinePrompt(sec)
		}
		resp := r.query(ctx, b, handle, ModeSession, sec, prompt)

		if resp.Failed() && handle != "" {
			mgr.MarkFallback(b.Name(), errors.New(resp.Error))
			sessionFallbacksTotal.WithLabelValues(b.Name()).Inc()
			r.logger.Warn("session query failed, remaining sections run stateless",
				"model", b.Name(), "section", sec.ID, "error", resp.Error)
		}
		if !resp.Failed() && handle != "" {
			mgr.Touch(b.Name())
		}
		responses = append(responses, resp)
	}
	return responses
}

// query runs one model call, consulting the cache for stateless calls.
func (r *Runner) query(ctx context.Context, b llm.Backend, handle string, mode Mode, sec document.Section, prompt string) ModelResponse {
	resp := ModelResponse{
		ModelID:       b.Name(),
		SectionID:     sec.ID,
		SequenceIndex: sec.SequenceIndex,
		Mode:          mode,
	}

	if handle == "" {
		if text, ok := r.cache.Get(b.Name(), mode, prompt); ok {
			cacheHitsTotal.WithLabelValues(b.Name()).Inc()
			resp.Text = text
			resp.Assumptions = llm.ParseInterpretation(text).Assumptions
			resp.Cached = true
			return resp
		}
	}

	queriesTotal.WithLabelValues(b.Name(), string(mode)).Inc()
	result, err := b.Query(ctx, handle, prompt)
	if err != nil {
		queryErrorsTotal.WithLabelValues(b.Name()).Inc()
		r.logger.Warn("model query failed",
			"model", b.Name(), "section", sec.ID, "mode", mode, "error", err)
		resp.Error = err.Error()
		return resp
	}

	resp.Text = result.Text
	resp.Assumptions = result.Assumptions
	resp.LatencyMs = result.Latency.Milliseconds()
	if handle == "" {
		r.cache.Put(b.Name(), mode, prompt, result.Text)
	}
	return resp
}

func sortResponses(responses []ModelResponse) {
	sort.Slice(responses, func(i, j int) bool {
		if responses[i].ModelID != responses[j].ModelID {
			return responses[i].ModelID < responses[j].ModelID
		}
		if responses[i].SequenceIndex != responses[j].SequenceIndex {
			return responses[i].SequenceIndex < responses[j].SequenceIndex
		}
		return responses[i].Mode < responses[j].Mode
	})
}
