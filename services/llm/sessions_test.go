package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLog_CreateAndHistory(t *testing.T) {
	log := newSessionLog()

	id := log.create(Message{Role: "system", Content: "doc"})
	require.NotEmpty(t, id)

	hist, err := log.history(id)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "doc", hist[0].Content)
}

func TestSessionLog_HistoryIsACopy(t *testing.T) {
	log := newSessionLog()
	id := log.create(Message{Role: "system", Content: "doc"})

	hist, err := log.history(id)
	require.NoError(t, err)
	hist[0].Content = "mutated"

	again, err := log.history(id)
	require.NoError(t, err)
	assert.Equal(t, "doc", again[0].Content)
}

func TestSessionLog_AppendUnknownHandle(t *testing.T) {
	log := newSessionLog()

	err := log.append("no-such-handle", Message{Role: "user", Content: "hi"})
	assert.ErrorIs(t, err, ErrSessionUnknown)

	_, err = log.history("no-such-handle")
	assert.ErrorIs(t, err, ErrSessionUnknown)
}

func TestSessionLog_DropThenQuery(t *testing.T) {
	log := newSessionLog()
	id := log.create()
	log.drop(id)

	_, err := log.history(id)
	assert.ErrorIs(t, err, ErrSessionUnknown)

	// Dropping twice is a no-op.
	log.drop(id)
}
