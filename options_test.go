package kgstore

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowgraph/kgstore/cache"
	"github.com/knowgraph/kgstore/graph/memgraph"
)

func TestOptions(t *testing.T) {
	t.Run("WithConfigFile", func(t *testing.T) {
		mc := &managerConfig{}
		WithConfigFile("/etc/kgstore.yaml")(mc)
		assert.Equal(t, "/etc/kgstore.yaml", mc.configPath)
	})

	t.Run("WithConfig", func(t *testing.T) {
		cfg := DefaultConfig()
		mc := &managerConfig{}
		WithConfig(cfg)(mc)
		assert.Same(t, cfg, mc.config)
	})

	t.Run("WithLogger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		mc := &managerConfig{}
		WithLogger(logger)(mc)
		assert.Same(t, logger, mc.logger)
	})

	t.Run("WithBackend", func(t *testing.T) {
		backend := memgraph.New()
		mc := &managerConfig{}
		WithBackend(backend)(mc)
		assert.Same(t, backend, mc.backend)
	})

	t.Run("WithCache", func(t *testing.T) {
		qc := cache.NewMemory()
		mc := &managerConfig{}
		WithCache(qc)(mc)
		assert.Same(t, qc, mc.cache)
	})

	t.Run("WithClock", func(t *testing.T) {
		fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		mc := &managerConfig{}
		WithClock(func() time.Time { return fixed })(mc)
		require.NotNil(t, mc.clock)
		assert.Equal(t, fixed, mc.clock())
	})
}

func TestNewPrefersExplicitComponents(t *testing.T) {
	backend := memgraph.New()
	qc := cache.NewMemory()

	m, err := New(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBackend(backend),
		WithCache(qc),
	)
	require.NoError(t, err)

	assert.Same(t, backend, m.backend.(*memgraph.Store))
	assert.Same(t, qc, m.cache.(*cache.Memory))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := &Config{}
	cfg.Cache.Backend = "carrier-pigeon"

	_, err := New(WithConfig(cfg))
	require.ErrorIs(t, err, ErrInvalidConfig)
}
