// Package version implements the git-like history subsystem: an append-only
// list of full graph snapshots with metadata, named branch pointers into that
// list, line-set diffing, and export/import of the whole history.
//
// The tracker stores data only. Restoring a snapshot into the live graph
// (rollback, branch materialization) is orchestrated by the owning manager;
// the tracker never touches graph state.
package version

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by tracker operations.
var (
	// ErrVersionNotFound is returned when a version index is out of range.
	ErrVersionNotFound = errors.New("version: version not found")

	// ErrBranchNotFound is returned when a branch name is not registered.
	ErrBranchNotFound = errors.New("version: branch not found")

	// ErrBranchExists is returned when creating a branch that already exists.
	ErrBranchExists = errors.New("version: branch already exists")

	// ErrEmptyHistory is returned when an operation needs at least one version.
	ErrEmptyHistory = errors.New("version: history is empty")
)

// Metadata describes one recorded version.
type Metadata struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags,omitempty"`
	TripleCount int       `json:"triple_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Version pairs a full serialized graph snapshot with its metadata.
type Version struct {
	Snapshot string   `json:"snapshot"`
	Meta     Metadata `json:"meta"`
}

// Summary is a version listing entry: the stable array index plus metadata,
// without the snapshot text.
type Summary struct {
	Index int      `json:"index"`
	Meta  Metadata `json:"meta"`
}

// History is the serializable form of the full tracker state.
type History struct {
	Versions []Version      `json:"versions"`
	Branches map[string]int `json:"branches"`
	Current  int            `json:"current"`
}

// Tracker is the version store. Safe for concurrent use, though the owning
// manager serializes all mutations behind its own lock.
type Tracker struct {
	mu       sync.RWMutex
	versions []Version
	branches map[string]int
	current  int
}

// NewTracker creates an empty tracker. The current-version cursor starts at
// -1 until the first append.
func NewTracker() *Tracker {
	return &Tracker{
		branches: make(map[string]int),
		current:  -1,
	}
}

// Append records a new version and moves the current cursor to it. Missing
// metadata fields are filled in: ID gets a fresh UUID, Timestamp the current
// time. Returns the new version's index.
func (tr *Tracker) Append(snapshot string, meta Metadata) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}

	tr.versions = append(tr.versions, Version{Snapshot: snapshot, Meta: meta})
	tr.current = len(tr.versions) - 1
	return tr.current
}

// Get returns the version at the given index.
func (tr *Tracker) Get(index int) (Version, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	if index < 0 || index >= len(tr.versions) {
		return Version{}, fmt.Errorf("%w: index %d (history length %d)", ErrVersionNotFound, index, len(tr.versions))
	}
	return tr.versions[index], nil
}

// Current returns the version under the cursor.
func (tr *Tracker) Current() (Version, int, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	if tr.current < 0 {
		return Version{}, -1, ErrEmptyHistory
	}
	return tr.versions[tr.current], tr.current, nil
}

// Len returns the number of recorded versions.
func (tr *Tracker) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.versions)
}

// List returns version summaries, most recent first. A limit of 0 or less
// returns the full history.
func (tr *Tracker) List(limit int) []Summary {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]Summary, 0, len(tr.versions))
	for i := len(tr.versions) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, Summary{Index: i, Meta: tr.versions[i].Meta})
	}
	return out
}

// CreateBranch records a named pointer to a version index. With from < 0 the
// branch points at the current version.
func (tr *Tracker) CreateBranch(name string, from int) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.branches[name]; exists {
		return fmt.Errorf("%w: %q", ErrBranchExists, name)
	}
	if from < 0 {
		if tr.current < 0 {
			return ErrEmptyHistory
		}
		from = tr.current
	}
	if from >= len(tr.versions) {
		return fmt.Errorf("%w: index %d", ErrVersionNotFound, from)
	}
	tr.branches[name] = from
	return nil
}

// SwitchBranch moves the current cursor to the branch's version without
// touching history, and returns that version.
func (tr *Tracker) SwitchBranch(name string) (Version, int, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	index, ok := tr.branches[name]
	if !ok {
		return Version{}, -1, fmt.Errorf("%w: %q", ErrBranchNotFound, name)
	}
	tr.current = index
	return tr.versions[index], index, nil
}

// Branches returns a copy of the branch map.
func (tr *Tracker) Branches() map[string]int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make(map[string]int, len(tr.branches))
	for name, index := range tr.branches {
		out[name] = index
	}
	return out
}

// Cleanup truncates history down to the keepRecent most recent versions and
// returns the number removed. Branch pointers (and the cursor) that fall
// inside the truncated range are re-based to index 0; survivors shift down
// by the number of removed entries.
func (tr *Tracker) Cleanup(keepRecent int) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if keepRecent < 1 {
		keepRecent = 1
	}
	removed := len(tr.versions) - keepRecent
	if removed <= 0 {
		return 0
	}

	tr.versions = append([]Version(nil), tr.versions[removed:]...)

	for name, index := range tr.branches {
		if index < removed {
			tr.branches[name] = 0
		} else {
			tr.branches[name] = index - removed
		}
	}
	if tr.current < removed {
		tr.current = 0
	} else {
		tr.current -= removed
	}
	return removed
}

// Export returns the full tracker state in serializable form.
func (tr *Tracker) Export() History {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	versions := make([]Version, len(tr.versions))
	copy(versions, tr.versions)
	branches := make(map[string]int, len(tr.branches))
	for name, index := range tr.branches {
		branches[name] = index
	}
	return History{Versions: versions, Branches: branches, Current: tr.current}
}

// Import replaces the tracker state with a previously exported history.
func (tr *Tracker) Import(h History) error {
	for name, index := range h.Branches {
		if index < 0 || index >= len(h.Versions) {
			return fmt.Errorf("%w: branch %q points at %d", ErrVersionNotFound, name, index)
		}
	}
	if h.Current < -1 || h.Current >= len(h.Versions) {
		return fmt.Errorf("%w: current cursor %d", ErrVersionNotFound, h.Current)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.versions = append([]Version(nil), h.Versions...)
	tr.branches = make(map[string]int, len(h.Branches))
	for name, index := range h.Branches {
		tr.branches[name] = index
	}
	tr.current = h.Current
	return nil
}

// Reset empties the tracker.
func (tr *Tracker) Reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.versions = nil
	tr.branches = make(map[string]int)
	tr.current = -1
}
