package filetable

import (
	"sync"

	"github.com/hnipps/seriesvault/pkg/models"
)

// EntryKind distinguishes the three kinds of pending mutation a caller can
// queue against a Table.
type EntryKind int

const (
	EntrySetAction EntryKind = iota
	EntrySetEnabled
	EntrySetDest
)

// Entry is one queued mutation, addressed by record index. Entries are
// cheap descriptions; the actual mutation happens only inside Flush.
type Entry struct {
	Kind       EntryKind
	Index      int
	NewAction  models.Action
	NewEnabled bool
	NewDest    string
}

// ChangeQueue is an append-only log of pending Entry values. Callers append
// under its own lock while holding only a read-level view of the Table's
// records (entries address records by stable index and delay mutation); one
// writer performs Flush.
type ChangeQueue struct {
	mu      sync.Mutex
	entries []Entry
}

// NewChangeQueue returns an empty queue.
func NewChangeQueue() *ChangeQueue {
	return &ChangeQueue{}
}

// SetAction enqueues a request to change record i's action.
func (q *ChangeQueue) SetAction(i int, newAction models.Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, Entry{Kind: EntrySetAction, Index: i, NewAction: newAction})
}

// SetEnabled enqueues a request to change record i's enabled flag.
func (q *ChangeQueue) SetEnabled(i int, enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, Entry{Kind: EntrySetEnabled, Index: i, NewEnabled: enabled})
}

// SetDest enqueues a request to change record i's destination.
func (q *ChangeQueue) SetDest(i int, dest string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, Entry{Kind: EntrySetDest, Index: i, NewDest: dest})
}

// Len returns the number of entries currently queued.
func (q *ChangeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Flush acquires exclusive access to the queue and to t's records and
// tracker, then replays every queued entry in append order, folding it into
// t. SetAction transitions into Rename (with an empty dest) or Delete push
// an implicit follow-up entry onto the in-flight replay, exactly as a
// caller issuing two separate queue entries would. It returns the number of
// entries (including implicit ones) that actually changed state.
func (q *ChangeQueue) Flush(t *Table) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	t.recordsMu.Lock()
	defer t.recordsMu.Unlock()
	t.trackerMu.Lock()
	defer t.trackerMu.Unlock()

	entries := q.entries
	q.entries = nil

	changed := 0
	for idx := 0; idx < len(entries); idx++ {
		e := entries[idx]
		if e.Index < 0 || e.Index >= len(t.records) {
			continue
		}

		switch e.Kind {
		case EntrySetAction:
			didChange := applySetAction(t, e.Index, e.NewAction)
			if didChange {
				changed++
				rec := t.records[e.Index]
				if e.NewAction == models.ActionRename && rec.Dest == "" {
					entries = append(entries, Entry{Kind: EntrySetDest, Index: e.Index, NewDest: rec.Src})
				}
				if e.NewAction == models.ActionDelete {
					entries = append(entries, Entry{Kind: EntrySetEnabled, Index: e.Index, NewEnabled: false})
				}
			}
		case EntrySetEnabled:
			if applySetEnabled(t, e.Index, e.NewEnabled) {
				changed++
			}
		case EntrySetDest:
			if applySetDest(t, e.Index, e.NewDest) {
				changed++
			}
		}
	}

	return changed
}

func applySetAction(t *Table, i int, newAction models.Action) bool {
	rec := &t.records[i]
	old := rec.Action
	rec.Action = newAction
	if old == newAction {
		return false
	}

	t.actionCount[old]--
	t.actionCount[newAction]++

	if !rec.IsEnabled {
		return true
	}
	if old == models.ActionRename {
		removePendingWrite(t.pendingWrites, rec.Dest, i)
	}
	if newAction == models.ActionRename {
		addPendingWrite(t.pendingWrites, rec.Dest, i)
	}
	return true
}

func applySetEnabled(t *Table, i int, newEnabled bool) bool {
	rec := &t.records[i]
	old := rec.IsEnabled
	rec.IsEnabled = newEnabled
	if old == newEnabled {
		return false
	}
	if rec.Action != models.ActionRename {
		return true
	}
	if newEnabled {
		addPendingWrite(t.pendingWrites, rec.Dest, i)
	} else {
		removePendingWrite(t.pendingWrites, rec.Dest, i)
	}
	return true
}

func applySetDest(t *Table, i int, newDest string) bool {
	rec := &t.records[i]
	if newDest == rec.Dest {
		return false
	}
	if !rec.IsEnabled || rec.Action != models.ActionRename {
		rec.Dest = newDest
		return true
	}
	removePendingWrite(t.pendingWrites, rec.Dest, i)
	addPendingWrite(t.pendingWrites, newDest, i)
	rec.Dest = newDest
	return true
}
