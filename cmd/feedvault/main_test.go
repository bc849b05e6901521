package main

import (
	"testing"

	"feedvault/internal/ingest"
	"feedvault/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	calls []string
}

func (w *recordingWriter) SetStatus(url, guid string, status model.Status) error {
	w.calls = append(w.calls, "status:"+status.String())
	return nil
}

func (w *recordingWriter) SetDeleted(url, guid string) error {
	w.calls = append(w.calls, "deleted")
	return nil
}

func (w *recordingWriter) SetKeep(url, guid string, keep bool) error {
	if keep {
		w.calls = append(w.calls, "keep")
	} else {
		w.calls = append(w.calls, "unkeep")
	}
	return nil
}

func (w *recordingWriter) Purge(url, guid string) error {
	w.calls = append(w.calls, "purge")
	return nil
}

var _ ingest.Writer = (*recordingWriter)(nil)

func TestMarkAction(t *testing.T) {
	w := &recordingWriter{}
	for _, name := range []string{"new", "unread", "READ", "keep", "unkeep", "delete"} {
		fn, err := markAction(name)
		require.NoError(t, err, name)
		require.NoError(t, fn(w, "https://example.org/rss", "g1"))
	}
	assert.Equal(t, []string{"status:new", "status:unread", "status:read", "keep", "unkeep", "deleted"}, w.calls)

	_, err := markAction("archive")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = newLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	_, err = newLogger("loud")
	assert.Error(t, err)
}
