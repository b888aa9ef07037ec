package kgstore

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/knowgraph/kgstore/version"
)

// Rollback restores the graph to an earlier version in three steps: the
// current state is snapshotted as a safety version, the target snapshot is
// loaded into the backend, and a rollback version is appended recording the
// restored data. History only ever grows, so a rollback is itself undoable.
func (m *Manager) Rollback(ctx context.Context, versionIndex int, author, reason string) error {
	const op = "Manager.Rollback"

	if !m.ready.Load() {
		return NewInternalError(op, ErrNotInitialized)
	}

	ctx, span := m.startSpan(ctx, "kgstore.rollback",
		attribute.Int("target_version", versionIndex))
	defer endSpan(span)

	m.mu.Lock()
	defer m.mu.Unlock()

	target, err := m.versions.Get(versionIndex)
	if err != nil {
		return NewNotFoundError(op, err).WithContext(map[string]any{"version": versionIndex})
	}

	snapshot, err := m.backend.Serialize(ctx)
	if err != nil {
		return NewInternalError(op, err)
	}
	count, err := m.backend.Len(ctx)
	if err != nil {
		return NewInternalError(op, err)
	}
	m.versions.Append(snapshot, version.Metadata{
		Author:      author,
		Description: fmt.Sprintf("state before rollback to version %d", versionIndex),
		Tags:        []string{"pre-rollback"},
		TripleCount: count,
	})

	if err := m.backend.Load(ctx, target.Snapshot); err != nil {
		return NewInternalError(op, err)
	}
	triples, err := m.backend.Triples(ctx)
	if err != nil {
		return NewInternalError(op, err)
	}
	m.idx.Rebuild(triples)

	if err := m.cache.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear query cache", "error", err)
	}
	m.engine.ClearResultCache()

	m.versions.Append(target.Snapshot, version.Metadata{
		Author:      author,
		Description: reason,
		Tags:        []string{"rollback", fmt.Sprintf("rollback/to/%d", versionIndex)},
		TripleCount: len(triples),
	})

	m.persist(target.Snapshot)
	m.metrics.recordMutation(ctx, "rollback")
	m.logger.Info("rolled back",
		"target_version", versionIndex,
		"author", author,
		"reason", reason)
	return nil
}

// CreateBranch records a named pointer to a version index. A negative index
// branches from the current version.
func (m *Manager) CreateBranch(name string, from int) error {
	const op = "Manager.CreateBranch"

	if err := m.versions.CreateBranch(name, from); err != nil {
		if errors.Is(err, version.ErrVersionNotFound) || errors.Is(err, version.ErrEmptyHistory) {
			return NewNotFoundError(op, err).WithContext(map[string]any{"branch": name, "from": from})
		}
		return NewValidationError(op, err).WithContext(map[string]any{"branch": name})
	}
	m.logger.Info("branch created", "branch", name, "from", from)
	return nil
}

// SwitchBranch moves the current-version cursor to the branch's pointer
// without touching history or the live graph, and returns the version index
// the cursor now rests on.
func (m *Manager) SwitchBranch(ctx context.Context, name string) (int, error) {
	const op = "Manager.SwitchBranch"

	_, idx, err := m.versions.SwitchBranch(name)
	if err != nil {
		return 0, NewNotFoundError(op, err).WithContext(map[string]any{"branch": name})
	}
	m.logger.Info("switched branch", "branch", name, "version", idx)
	return idx, nil
}

// DiffVersions compares two snapshots as line sets and reports added,
// removed, and unchanged counts plus truncated samples. This is a textual
// diff over the canonical serialization, not a semantic graph diff.
func (m *Manager) DiffVersions(a, b int) (version.DiffResult, error) {
	const op = "Manager.DiffVersions"

	diff, err := m.versions.Diff(a, b)
	if err != nil {
		return version.DiffResult{}, NewNotFoundError(op, err).WithContext(map[string]any{"from": a, "to": b})
	}
	return diff, nil
}

// ListVersions returns version summaries, most recent first. A non-positive
// limit returns everything.
func (m *Manager) ListVersions(limit int) []version.Summary {
	return m.versions.List(limit)
}

// CleanupVersions truncates the oldest versions so at most keepRecent
// remain. Branch pointers into the truncated range are re-based to the
// oldest surviving version. Returns the number of versions removed.
func (m *Manager) CleanupVersions(keepRecent int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.versions.Cleanup(keepRecent)
	if removed > 0 {
		m.logger.Info("version history truncated",
			"removed", removed,
			"keep_recent", keepRecent)
	}
	return removed
}

// ExportVersionHistory returns the full version history: snapshots,
// metadata, branch map, and the current cursor.
func (m *Manager) ExportVersionHistory() version.History {
	return m.versions.Export()
}

// ImportVersionHistory replaces the version history and restores the
// current version's snapshot into the live graph. The imported history is
// validated before anything is replaced.
func (m *Manager) ImportVersionHistory(ctx context.Context, h version.History) error {
	const op = "Manager.ImportVersionHistory"

	if !m.ready.Load() {
		return NewInternalError(op, ErrNotInitialized)
	}

	if len(h.Versions) == 0 {
		return NewValidationError(op, ErrImportEmpty)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.versions.Import(h); err != nil {
		return NewValidationError(op, err)
	}

	current, idx, err := m.versions.Current()
	if err != nil {
		return NewInternalError(op, err)
	}
	if err := m.backend.Load(ctx, current.Snapshot); err != nil {
		return NewInternalError(op, err)
	}
	triples, err := m.backend.Triples(ctx)
	if err != nil {
		return NewInternalError(op, err)
	}
	m.idx.Rebuild(triples)

	if err := m.cache.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear query cache", "error", err)
	}
	m.engine.ClearResultCache()
	m.persist(current.Snapshot)

	m.logger.Info("version history imported",
		"versions", len(h.Versions),
		"current", idx)
	return nil
}
