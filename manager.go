package kgstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/knowgraph/kgstore/cache"
	"github.com/knowgraph/kgstore/graph"
	"github.com/knowgraph/kgstore/graph/memgraph"
	"github.com/knowgraph/kgstore/index"
	"github.com/knowgraph/kgstore/security"
	"github.com/knowgraph/kgstore/validate"
	"github.com/knowgraph/kgstore/version"
)

// modifiedPredicate is the reserved predicate recording when a subject was
// last mutated. The timestamp lives in the graph itself, so snapshots,
// diffs, and exports carry it like any other triple.
const modifiedPredicate = "http://knowgraph.dev/meta#modified"

// Manager is the store facade. It owns the graph backend, the secondary
// index, the query cache, the version tracker, the access guard, and the
// validation engine, and coordinates them under a single-writer lock.
//
// Mutations (AddTriple, RemoveTriple, Rollback, ImportVersionHistory) are
// serialized by one exclusive lock; queries never take it and may observe
// state from either side of an in-flight mutation.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *storeMetrics
	clock   func() time.Time
	ttl     time.Duration

	// mu serializes mutations. initMu guards lifecycle transitions so
	// concurrent initializers do not race to reset state twice.
	mu     sync.Mutex
	initMu sync.Mutex
	ready  atomic.Bool

	backend  graph.Backend
	idx      *index.Index
	cache    cache.Cache
	versions *version.Tracker
	guard    *security.Guard
	engine   *validate.Engine

	hits   atomic.Int64
	misses atomic.Int64
}

// New constructs a Manager from options. The zero configuration is a
// non-persistent in-memory store with a memory query cache.
func New(opts ...Option) (*Manager, error) {
	const op = "kgstore.New"

	mc := managerConfig{}
	for _, opt := range opts {
		opt(&mc)
	}

	cfg, err := resolveConfig(&mc)
	if err != nil {
		return nil, NewConfigurationError(op, err)
	}

	logger := mc.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := mc.clock
	if clock == nil {
		clock = time.Now
	}

	ttl, err := cfg.cacheTTL()
	if err != nil {
		return nil, NewConfigurationError(op, err)
	}

	backend := mc.backend
	if backend == nil {
		backend = memgraph.New()
	}

	qc := mc.cache
	if qc == nil {
		qc, err = buildCache(cfg)
		if err != nil {
			return nil, NewConfigurationError(op, err)
		}
	}

	metrics, err := newStoreMetrics(mc.meter)
	if err != nil {
		return nil, NewConfigurationError(op, err)
	}

	idx := index.New()
	m := &Manager{
		cfg:      *cfg,
		logger:   logger,
		tracer:   mc.tracer,
		metrics:  metrics,
		clock:    clock,
		ttl:      ttl,
		backend:  backend,
		idx:      idx,
		cache:    qc,
		versions: version.NewTracker(),
		guard:    security.NewGuard(cfg.Security.AdminRole, cfg.Security.AuditLimit),
		engine:   validate.NewEngine(backend, idx, logger),
	}
	return m, nil
}

func resolveConfig(mc *managerConfig) (*Config, error) {
	if mc.config != nil {
		cfg := *mc.config
		cfg.applyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if mc.configPath != "" {
		return LoadConfig(mc.configPath)
	}
	return DefaultConfig(), nil
}

func buildCache(cfg *Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case CacheBackendRedis:
		return cache.NewRedis(cache.RedisOptions{URL: cfg.Cache.RedisURL})
	default:
		return cache.NewMemory(), nil
	}
}

// Initialize resets all substructures to an empty state, then reloads the
// persisted graph if one exists. It is idempotent and safe to call
// concurrently; only the first caller performs the reset.
func (m *Manager) Initialize(ctx context.Context) error {
	const op = "Manager.Initialize"

	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.ready.Load() {
		return nil
	}

	ctx, span := m.startSpan(ctx, "kgstore.initialize")
	defer endSpan(span)

	if err := m.backend.Clear(ctx); err != nil {
		return NewInternalError(op, err)
	}
	m.idx.Rebuild(nil)
	if err := m.cache.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear query cache", "error", err)
	}
	m.versions.Reset()
	m.engine.Reset()

	if m.cfg.Persistence.Enabled {
		data, err := os.ReadFile(m.cfg.Persistence.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// clean start
		case err != nil:
			return NewPersistenceError(op, err)
		default:
			if err := m.backend.Load(ctx, string(data)); err != nil {
				return NewPersistenceError(op, fmt.Errorf("corrupt persisted graph %s: %w", m.cfg.Persistence.Path, err))
			}
			triples, err := m.backend.Triples(ctx)
			if err != nil {
				return NewInternalError(op, err)
			}
			m.idx.Rebuild(triples)
			m.logger.Info("loaded persisted graph",
				"path", m.cfg.Persistence.Path,
				"triples", len(triples))
		}
	}

	m.ready.Store(true)
	m.logger.Info("store initialized", "cache_backend", m.cfg.Cache.Backend)
	return nil
}

// Shutdown persists the graph a final time when persistence is enabled and
// releases cache resources. Idempotent.
func (m *Manager) Shutdown(ctx context.Context) error {
	const op = "Manager.Shutdown"

	m.initMu.Lock()
	defer m.initMu.Unlock()

	if !m.ready.Load() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Persistence.Enabled {
		snapshot, err := m.backend.Serialize(ctx)
		if err != nil {
			return NewInternalError(op, err)
		}
		m.persist(snapshot)
	}

	if err := m.cache.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear query cache", "error", err)
	}
	CloseWithLog(m.cache, m.logger, "query cache")

	m.ready.Store(false)
	m.logger.Info("store shut down")
	return nil
}

// AddTriple adds one fact under access control. Any existing triple sharing
// (subject, predicate) is replaced, the subject's modification timestamp is
// refreshed, a version is appended, and cache entries referencing the
// subject or predicate are evicted. An empty role resolves to the
// configured default role.
func (m *Manager) AddTriple(ctx context.Context, subject, predicate string, object graph.Value, role string) error {
	const op = "Manager.AddTriple"

	if !m.ready.Load() {
		return NewInternalError(op, ErrNotInitialized)
	}
	if role == "" {
		role = m.cfg.Security.DefaultRole
	}

	ctx, span := m.startSpan(ctx, "kgstore.add_triple",
		attribute.String("subject", subject),
		attribute.String("predicate", predicate))
	defer endSpan(span)

	if !m.guard.Authorize("add_triple", subject, predicate, object.Text, role) {
		m.metrics.recordDenial(ctx, "add_triple")
		return NewPermissionError(op, ErrPermissionDenied).WithContext(map[string]any{
			"subject":   subject,
			"predicate": predicate,
			"role":      role,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	replaced, err := m.backend.Delete(ctx, subject, predicate, nil)
	if err != nil {
		return NewInternalError(op, err)
	}
	t := graph.Triple{Subject: subject, Predicate: predicate, Object: object}
	if err := m.backend.Insert(ctx, t); err != nil {
		return NewInternalError(op, err)
	}
	for _, r := range replaced {
		m.idx.Remove(r)
	}
	m.idx.Add(t)

	if err := m.touchSubject(ctx, subject); err != nil {
		return NewInternalError(op, err)
	}

	meta := version.Metadata{
		Author:      role,
		Description: fmt.Sprintf("add %s %s", subject, predicate),
		Tags:        []string{"mutation/add_triple"},
	}
	if err := m.commit(ctx, op, meta, cache.TokensFor(subject, predicate)); err != nil {
		return err
	}

	m.metrics.recordMutation(ctx, "add_triple")
	m.logger.Debug("triple added",
		"subject", subject,
		"predicate", predicate,
		"role", role)
	return nil
}

// RemoveTriple removes facts at one of three granularities: the exact
// triple, every triple for (subject, predicate) when object is nil, or
// every triple for the subject when predicate is empty too. The index is
// rebuilt from the post-removal graph. Removing nothing is a no-op and
// appends no version.
func (m *Manager) RemoveTriple(ctx context.Context, subject, predicate string, object *graph.Value) error {
	const op = "Manager.RemoveTriple"

	if !m.ready.Load() {
		return NewInternalError(op, ErrNotInitialized)
	}

	ctx, span := m.startSpan(ctx, "kgstore.remove_triple",
		attribute.String("subject", subject),
		attribute.String("predicate", predicate))
	defer endSpan(span)

	objText := security.Wildcard
	if object != nil {
		objText = object.Text
	}
	predText := predicate
	if predText == "" {
		predText = security.Wildcard
	}
	m.guard.Authorize("remove_triple", subject, predText, objText, m.cfg.Security.AdminRole)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.backend.Delete(ctx, subject, predicate, object)
	if err != nil {
		return NewInternalError(op, err)
	}
	if len(removed) == 0 {
		m.logger.Debug("remove matched no triples",
			"subject", subject,
			"predicate", predicate)
		return nil
	}

	triples, err := m.backend.Triples(ctx)
	if err != nil {
		return NewInternalError(op, err)
	}
	m.idx.Rebuild(triples)

	meta := version.Metadata{
		Author:      m.cfg.Security.DefaultRole,
		Description: fmt.Sprintf("remove %d triple(s) for %s", len(removed), subject),
		Tags:        []string{"mutation/remove_triple"},
	}
	if err := m.commit(ctx, op, meta, cache.TokensFor(subject, predicate)); err != nil {
		return err
	}

	m.metrics.recordMutation(ctx, "remove_triple")
	m.logger.Debug("triples removed",
		"subject", subject,
		"predicate", predicate,
		"count", len(removed))
	return nil
}

// touchSubject replaces the subject's modification timestamp triple.
// Caller holds the mutation lock.
func (m *Manager) touchSubject(ctx context.Context, subject string) error {
	stale, err := m.backend.Delete(ctx, subject, modifiedPredicate, nil)
	if err != nil {
		return err
	}
	for _, t := range stale {
		m.idx.Remove(t)
	}

	stamp := graph.Triple{
		Subject:   subject,
		Predicate: modifiedPredicate,
		Object:    graph.NewString(m.clock().UTC().Format(time.RFC3339Nano)),
	}
	if err := m.backend.Insert(ctx, stamp); err != nil {
		return err
	}
	m.idx.Add(stamp)
	return nil
}

// commit finishes a mutation: snapshot, version append, selective cache
// invalidation, validation result cache clear, and optional persistence.
// Caller holds the mutation lock.
func (m *Manager) commit(ctx context.Context, op string, meta version.Metadata, tokens []string) error {
	snapshot, err := m.backend.Serialize(ctx)
	if err != nil {
		return NewInternalError(op, err)
	}
	count, err := m.backend.Len(ctx)
	if err != nil {
		return NewInternalError(op, err)
	}
	meta.TripleCount = count
	m.versions.Append(snapshot, meta)

	if keep := m.cfg.Versioning.KeepRecent; keep > 0 {
		if removed := m.versions.Cleanup(keep); removed > 0 {
			m.logger.Debug("old versions truncated", "removed", removed)
		}
	}

	if evicted, err := m.cache.InvalidateTokens(ctx, tokens); err != nil {
		m.logger.Warn("selective cache invalidation failed", "error", err)
	} else if evicted > 0 {
		m.logger.Debug("cache entries invalidated", "count", evicted)
	}
	m.engine.ClearResultCache()

	m.persist(snapshot)
	return nil
}

// persist writes the snapshot to the configured path. Write failures are
// logged and swallowed: the in-memory mutation already committed.
func (m *Manager) persist(snapshot string) {
	if !m.cfg.Persistence.Enabled {
		return
	}
	if err := os.WriteFile(m.cfg.Persistence.Path, []byte(snapshot), 0o644); err != nil {
		m.logger.Error("failed to persist graph",
			"path", m.cfg.Persistence.Path,
			"error", err)
	}
}

// AddAccessRule registers an access rule with the guard. Rules are
// evaluated in registration order; the first match decides.
func (m *Manager) AddAccessRule(rule security.AccessRule) {
	m.guard.AddRule(rule)
}

// AuditLog returns the most recent access decisions, newest first.
// A non-positive limit returns every retained entry.
func (m *Manager) AuditLog(limit int) []security.AuditEntry {
	return m.guard.Audit(limit)
}

// CacheStats reports live cache entries and the manager's hit/miss counters.
func (m *Manager) CacheStats(ctx context.Context) (CacheStats, error) {
	entries, err := m.cache.Len(ctx)
	if err != nil {
		return CacheStats{}, NewInternalError("Manager.CacheStats", err)
	}
	return CacheStats{
		Entries: entries,
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}, nil
}

// CacheStats is a point-in-time view of query cache effectiveness.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func (m *Manager) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if m.tracer == nil {
		return ctx, nil
	}
	ctx, span := m.tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}
