package filetable

import (
	"testing"

	"github.com/hnipps/seriesvault/pkg/models"
)

func newRecord(src string, action models.Action, dest string) models.FileRecord {
	return models.FileRecord{Src: src, Action: action, Dest: dest}
}

func TestRebuildFromAutoEnablesRenames(t *testing.T) {
	tbl := New()
	tbl.RebuildFrom([]models.FileRecord{
		newRecord("a.mkv", models.ActionRename, "Season 01/a.mkv"),
		newRecord("b.nfo", models.ActionDelete, ""),
	})

	rec, ok := tbl.Record(0)
	if !ok || !rec.IsEnabled {
		t.Fatalf("expected rename record auto-enabled, got %+v", rec)
	}
	if tbl.PendingWriteCount("Season 01/a.mkv") != 1 {
		t.Fatalf("expected pending write for auto-enabled rename")
	}
	if tbl.ActionCount(models.ActionRename) != 1 || tbl.ActionCount(models.ActionDelete) != 1 {
		t.Fatalf("action_count mismatch: rename=%d delete=%d",
			tbl.ActionCount(models.ActionRename), tbl.ActionCount(models.ActionDelete))
	}
}

// S4 — rename conflict: two sources map to the same dest; neither resolves.
func TestConflictDetection(t *testing.T) {
	tbl := New()
	tbl.RebuildFrom([]models.FileRecord{
		newRecord("a.mkv", models.ActionRename, "Season 01/X-S01E01.mkv"),
		newRecord("b.mkv", models.ActionRename, "Season 01/X-S01E01.mkv"),
	})

	if !tbl.IsConflict(0) || !tbl.IsConflict(1) {
		t.Fatalf("expected both records to conflict")
	}
	if tbl.ActionCount(models.ActionRename) != 2 {
		t.Fatalf("expected action_count[Rename] = 2, got %d", tbl.ActionCount(models.ActionRename))
	}
}

func TestConflictAgainstExistingSource(t *testing.T) {
	tbl := New()
	tbl.RebuildFrom([]models.FileRecord{
		newRecord("Season 01/X-S01E01.mkv", models.ActionComplete, ""),
		newRecord("a.mkv", models.ActionRename, "Season 01/X-S01E01.mkv"),
	})

	if !tbl.IsConflict(1) {
		t.Fatalf("expected rename targeting an existing source to conflict")
	}
}

// S6 — change-queue ergonomics.
func TestChangeQueueErgonomics(t *testing.T) {
	tbl := New()
	tbl.RebuildFrom([]models.FileRecord{
		newRecord("a.mkv", models.ActionIgnore, ""),
	})

	q := NewChangeQueue()
	q.SetAction(0, models.ActionRename)
	q.Flush(tbl)

	rec, _ := tbl.Record(0)
	if rec.Action != models.ActionRename {
		t.Fatalf("expected action Rename, got %v", rec.Action)
	}
	if rec.Dest != "a.mkv" {
		t.Fatalf("expected implicit SetDest to src, got %q", rec.Dest)
	}
	if rec.IsEnabled {
		t.Fatalf("expected no implicit enable on transition to Rename")
	}

	q.SetEnabled(0, true)
	q.SetAction(0, models.ActionDelete)
	q.Flush(tbl)

	rec, _ = tbl.Record(0)
	if rec.Action != models.ActionDelete {
		t.Fatalf("expected action Delete, got %v", rec.Action)
	}
	if rec.IsEnabled {
		t.Fatalf("expected implicit disable on transition to Delete")
	}
	if tbl.PendingWriteCount("a.mkv") != 0 {
		t.Fatalf("expected pending_writes unaffected by the disable, got nonzero")
	}
}

// Invariant 2: setting an action then back to the original is a no-op on
// the tracker.
func TestSetActionRoundTripIsNoop(t *testing.T) {
	tbl := New()
	tbl.RebuildFrom([]models.FileRecord{
		newRecord("a.mkv", models.ActionIgnore, ""),
	})

	before := tbl.ActionCount(models.ActionIgnore)

	q := NewChangeQueue()
	q.SetAction(0, models.ActionWhitelist)
	q.SetAction(0, models.ActionIgnore)
	q.Flush(tbl)

	rec, _ := tbl.Record(0)
	if rec.Action != models.ActionIgnore {
		t.Fatalf("expected final action Ignore, got %v", rec.Action)
	}
	if tbl.ActionCount(models.ActionIgnore) != before {
		t.Fatalf("expected action_count[Ignore] restored to %d, got %d", before, tbl.ActionCount(models.ActionIgnore))
	}
}

// Invariant 3: enabling then disabling a Rename record leaves pending_writes
// unchanged.
func TestEnableDisableRenameLeavesPendingWritesUnchanged(t *testing.T) {
	tbl := New()
	tbl.RebuildFrom([]models.FileRecord{
		newRecord("a.mkv", models.ActionRename, "Season 01/a.mkv"),
	})

	before := tbl.PendingWriteCount("Season 01/a.mkv")

	q := NewChangeQueue()
	q.SetEnabled(0, false)
	q.SetEnabled(0, true)
	q.Flush(tbl)

	if tbl.PendingWriteCount("Season 01/a.mkv") != before {
		t.Fatalf("expected pending_writes restored to %d, got %d", before, tbl.PendingWriteCount("Season 01/a.mkv"))
	}
}

func TestSetDestMovesPendingWrite(t *testing.T) {
	tbl := New()
	tbl.RebuildFrom([]models.FileRecord{
		newRecord("a.mkv", models.ActionRename, "Season 01/a.mkv"),
	})

	q := NewChangeQueue()
	q.SetDest(0, "Season 01/b.mkv")
	q.Flush(tbl)

	if tbl.PendingWriteCount("Season 01/a.mkv") != 0 {
		t.Fatalf("expected old dest vacated")
	}
	if tbl.PendingWriteCount("Season 01/b.mkv") != 1 {
		t.Fatalf("expected new dest to hold the pending write")
	}
}

func TestRescanPreservesSourceIndexInvariant(t *testing.T) {
	tbl := New()
	records := []models.FileRecord{
		newRecord("a.mkv", models.ActionIgnore, ""),
		newRecord("b.mkv", models.ActionIgnore, ""),
	}
	tbl.RebuildFrom(records)

	if tbl.Len() != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), tbl.Len())
	}
	for _, r := range records {
		i, ok := tbl.IndexForSource(r.Src)
		if !ok {
			t.Fatalf("expected %q present in existing_sources", r.Src)
		}
		got, _ := tbl.Record(i)
		if got.Src != r.Src {
			t.Fatalf("existing_sources[%q] pointed at wrong record", r.Src)
		}
	}
}
