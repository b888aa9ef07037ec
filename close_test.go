package kgstore

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCloser counts Close calls and returns a configured error.
type recordingCloser struct {
	err   error
	calls int
}

func (c *recordingCloser) Close() error {
	c.calls++
	return c.err
}

func TestCloseWithLog(t *testing.T) {
	newLogger := func(buf *bytes.Buffer) *slog.Logger {
		return slog.New(slog.NewTextHandler(buf, nil))
	}

	t.Run("nil closer is a no-op", func(t *testing.T) {
		var buf bytes.Buffer
		CloseWithLog(nil, newLogger(&buf), "query cache")
		assert.Empty(t, buf.String())
	})

	t.Run("successful close logs nothing", func(t *testing.T) {
		closer := &recordingCloser{}
		var buf bytes.Buffer

		CloseWithLog(closer, newLogger(&buf), "query cache")

		assert.Equal(t, 1, closer.calls)
		assert.Empty(t, buf.String())
	})

	t.Run("close error logs a warning with the resource name", func(t *testing.T) {
		closer := &recordingCloser{err: errors.New("connection already closed")}
		var buf bytes.Buffer

		CloseWithLog(closer, newLogger(&buf), "query cache")

		out := buf.String()
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, "query cache")
		assert.Contains(t, out, "connection already closed")
	})

	t.Run("nil logger falls back to the default", func(t *testing.T) {
		closer := &recordingCloser{err: errors.New("boom")}
		require.NotPanics(t, func() {
			CloseWithLog(closer, nil, "query cache")
		})
		assert.Equal(t, 1, closer.calls)
	})
}
