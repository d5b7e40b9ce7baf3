package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclens/speclens/services/llm"
)

// fakeBackend is a scriptable Backend for manager tests.
type fakeBackend struct {
	name      string
	createErr error
	blockFor  time.Duration

	mu      sync.Mutex
	created int
	closed  []string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) CreateSession(ctx context.Context, _ string) (string, error) {
	if f.blockFor > 0 {
		select {
		case <-time.After(f.blockFor):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return f.name + "-session", nil
}

func (f *fakeBackend) Query(_ context.Context, _, _ string) (*llm.QueryResult, error) {
	return &llm.QueryResult{Text: "ok"}, nil
}

func (f *fakeBackend) CloseSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	f.closed = append(f.closed, sessionID)
	f.mu.Unlock()
	return nil
}

func TestCreateAll_MixedOutcomes(t *testing.T) {
	good := &fakeBackend{name: "claude"}
	bad := &fakeBackend{name: "granite", createErr: errors.New("connection refused")}
	mgr := NewManager([]llm.Backend{good, bad}, nil)

	err := mgr.CreateAll(context.Background(), "the document")
	require.NoError(t, err)

	recs := mgr.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "claude", recs[0].ModelID)
	assert.Equal(t, StateActive, recs[0].State)
	assert.Equal(t, "granite", recs[1].ModelID)
	assert.Equal(t, StateFailed, recs[1].State)
	assert.Contains(t, recs[1].Err, "connection refused")

	// First use completes the Failed -> StatelessFallback transition.
	handle, err := mgr.Handle("granite")
	require.NoError(t, err)
	assert.Empty(t, handle)
	assert.Equal(t, StateStatelessFallback, mgr.Records()[1].State)
}

func TestCreate_PendingIsObservable(t *testing.T) {
	slow := &fakeBackend{name: "slow", blockFor: time.Hour}
	mgr := NewManager([]llm.Backend{slow}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Create(ctx, "slow", "doc")
		close(done)
	}()

	require.Eventually(t, func() bool {
		recs := mgr.Records()
		return len(recs) == 1 && recs[0].State == StatePending
	}, time.Second, 5*time.Millisecond)

	_, err := mgr.Handle("slow")
	assert.Error(t, err, "a pending session is not usable")

	cancel()
	<-done
	assert.Equal(t, StateFailed, mgr.Records()[0].State)
}

func TestHandle_FallbackModelIsStateless(t *testing.T) {
	bad := &fakeBackend{name: "granite", createErr: errors.New("boom")}
	mgr := NewManager([]llm.Backend{bad}, nil)
	mgr.Create(context.Background(), "granite", "doc")

	handle, err := mgr.Handle("granite")
	require.NoError(t, err)
	assert.Empty(t, handle)
	assert.Equal(t, StateStatelessFallback, mgr.Records()[0].State)
}

func TestHandle_UnknownModel(t *testing.T) {
	mgr := NewManager(nil, nil)

	_, err := mgr.Handle("nope")
	assert.Error(t, err)
}

func TestMarkFallback_IsTerminal(t *testing.T) {
	b := &fakeBackend{name: "claude"}
	mgr := NewManager([]llm.Backend{b}, nil)
	mgr.Create(context.Background(), "claude", "doc")

	mgr.MarkFallback("claude", errors.New("session expired"))

	handle, err := mgr.Handle("claude")
	require.NoError(t, err)
	assert.Empty(t, handle)

	recs := mgr.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, StateStatelessFallback, recs[0].State)

	// A second MarkFallback must not resurrect or mutate the record.
	mgr.MarkFallback("claude", errors.New("other"))
	assert.Equal(t, "session expired", mgr.Records()[0].Err)
}

func TestCreate_TimeoutFailsTheSession(t *testing.T) {
	slow := &fakeBackend{name: "slow", blockFor: time.Hour}
	mgr := NewManager([]llm.Backend{slow}, nil)
	mgr.createTimeout = 20 * time.Millisecond

	mgr.Create(context.Background(), "slow", "doc")

	recs := mgr.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, StateFailed, recs[0].State)
	assert.True(t, recs[0].State.Degraded())
}

func TestTeardown_ClosesOnlyActive(t *testing.T) {
	good := &fakeBackend{name: "claude"}
	bad := &fakeBackend{name: "granite", createErr: errors.New("boom")}
	mgr := NewManager([]llm.Backend{good, bad}, nil)
	require.NoError(t, mgr.CreateAll(context.Background(), "doc"))

	mgr.Teardown(context.Background())

	assert.Equal(t, []string{"claude-session"}, good.closed)
	assert.Empty(t, bad.closed)

	recs := mgr.Records()
	assert.Equal(t, StateClosed, recs[0].State)
	assert.Equal(t, StateFailed, recs[1].State, "a never-used failed session stays Failed")
}
