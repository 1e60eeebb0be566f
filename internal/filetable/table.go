// Package filetable implements the File Table & Tracker and the Change
// Queue that mutates it: an ordered vector of classified File Records, a
// derived index (action histogram, source-path map, destination writer-set
// map) maintained incrementally, and an append-only log of pending edits
// that folds into both under exclusive access.
package filetable

import (
	"sync"

	"github.com/hnipps/seriesvault/pkg/models"
)

// Table holds the ordered File Records for one folder plus the Tracker
// derived from them. Two locks guard it, acquired in order records ->
// tracker whenever both are needed, matching the folder-level lock
// ordering the rest of the system follows.
type Table struct {
	recordsMu sync.RWMutex
	records   []models.FileRecord

	trackerMu       sync.RWMutex
	actionCount     [models.NumActions]int
	existingSources map[string]int
	pendingWrites   map[string]map[int]struct{}
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		existingSources: make(map[string]int),
		pendingWrites:   make(map[string]map[int]struct{}),
	}
}

// RebuildFrom wholesale-replaces the record vector and recomputes the
// tracker from scratch: this is the only primitive that creates tracker
// entries. Records whose action is Rename are auto-enabled afterwards,
// which populates pending_writes for them (invariant 3).
func (t *Table) RebuildFrom(records []models.FileRecord) {
	t.recordsMu.Lock()
	defer t.recordsMu.Unlock()
	t.trackerMu.Lock()
	defer t.trackerMu.Unlock()

	t.records = make([]models.FileRecord, len(records))
	copy(t.records, records)

	var actionCount [models.NumActions]int
	existingSources := make(map[string]int, len(t.records))
	pendingWrites := make(map[string]map[int]struct{})

	for i := range t.records {
		existingSources[t.records[i].Src] = i
		actionCount[t.records[i].Action]++
	}

	for i := range t.records {
		if t.records[i].Action == models.ActionRename {
			t.records[i].IsEnabled = true
			addPendingWrite(pendingWrites, t.records[i].Dest, i)
		}
	}

	t.actionCount = actionCount
	t.existingSources = existingSources
	t.pendingWrites = pendingWrites
}

func addPendingWrite(writes map[string]map[int]struct{}, dest string, i int) {
	set, ok := writes[dest]
	if !ok {
		set = make(map[int]struct{})
		writes[dest] = set
	}
	set[i] = struct{}{}
}

func removePendingWrite(writes map[string]map[int]struct{}, dest string, i int) {
	set, ok := writes[dest]
	if !ok {
		return
	}
	delete(set, i)
	if len(set) == 0 {
		delete(writes, dest)
	}
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.recordsMu.RLock()
	defer t.recordsMu.RUnlock()
	return len(t.records)
}

// Records returns a copy of the current record vector.
func (t *Table) Records() []models.FileRecord {
	t.recordsMu.RLock()
	defer t.recordsMu.RUnlock()
	out := make([]models.FileRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Record returns the record at i.
func (t *Table) Record(i int) (models.FileRecord, bool) {
	t.recordsMu.RLock()
	defer t.recordsMu.RUnlock()
	if i < 0 || i >= len(t.records) {
		return models.FileRecord{}, false
	}
	return t.records[i], true
}

// ActionCount returns the number of records currently classified as a.
func (t *Table) ActionCount(a models.Action) int {
	t.trackerMu.RLock()
	defer t.trackerMu.RUnlock()
	return t.actionCount[a]
}

// IndexForSource returns the record index whose src equals path.
func (t *Table) IndexForSource(path string) (int, bool) {
	t.trackerMu.RLock()
	defer t.trackerMu.RUnlock()
	i, ok := t.existingSources[path]
	return i, ok
}

// PendingWriteCount returns the number of enabled Rename records currently
// targeting dest.
func (t *Table) PendingWriteCount(dest string) int {
	t.trackerMu.RLock()
	defer t.trackerMu.RUnlock()
	return len(t.pendingWrites[dest])
}

// IsConflict reports whether record i is a conflicting Rename: enabled,
// action Rename, and its dest is targeted by more than one enabled Rename
// or coincides with an existing source. This is derived on every call, not
// stored.
func (t *Table) IsConflict(i int) bool {
	t.recordsMu.RLock()
	if i < 0 || i >= len(t.records) {
		t.recordsMu.RUnlock()
		return false
	}
	rec := t.records[i]
	t.recordsMu.RUnlock()

	if !rec.IsEnabled || rec.Action != models.ActionRename {
		return false
	}

	t.trackerMu.RLock()
	defer t.trackerMu.RUnlock()
	writers := len(t.pendingWrites[rec.Dest])
	_, existsAsSource := t.existingSources[rec.Dest]
	count := writers
	if existsAsSource {
		count++
	}
	return count > 1
}

// Status derives the folder's summary classification from the current
// tracker state.
func (t *Table) Status(scanned bool) models.FolderStatus {
	if !scanned {
		return models.FolderStatusUnknown
	}
	if t.Len() == 0 {
		return models.FolderStatusEmpty
	}
	if t.ActionCount(models.ActionDelete)+t.ActionCount(models.ActionRename) > 0 {
		return models.FolderStatusPending
	}
	return models.FolderStatusDone
}

// Snapshot pairs a record with its derived conflict state, useful for
// tests and for the folder controller's execute pass.
type Snapshot struct {
	Index      int
	Record     models.FileRecord
	IsConflict bool
}

// Snapshots returns a Snapshot for every record, computed under a single
// consistent lock acquisition.
func (t *Table) Snapshots() []Snapshot {
	t.recordsMu.RLock()
	defer t.recordsMu.RUnlock()
	t.trackerMu.RLock()
	defer t.trackerMu.RUnlock()

	out := make([]Snapshot, len(t.records))
	for i, rec := range t.records {
		conflict := false
		if rec.IsEnabled && rec.Action == models.ActionRename {
			writers := len(t.pendingWrites[rec.Dest])
			_, existsAsSource := t.existingSources[rec.Dest]
			count := writers
			if existsAsSource {
				count++
			}
			conflict = count > 1
		}
		out[i] = Snapshot{Index: i, Record: rec, IsConflict: conflict}
	}
	return out
}
