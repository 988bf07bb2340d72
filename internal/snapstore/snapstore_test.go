package snapstore

import (
	"path/filepath"
	"testing"

	"github.com/example/inkmark/internal/history"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetReadsQueuedWrites(t *testing.T) {
	s := openTestStore(t)

	s.Put(1, history.Snapshot("snapshot-one"))
	// The write may still be queued; Get must observe it regardless.
	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "snapshot-one" {
		t.Fatalf("got %q, want %q", got, "snapshot-one")
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Get(42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("got %q for missing id", got)
	}
}

func TestPutIsIdempotentUpsert(t *testing.T) {
	s := openTestStore(t)

	s.Put(3, history.Snapshot("first"))
	s.Put(3, history.Snapshot("second"))
	got, err := s.Get(3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("got %q, want %q", got, "second")
	}
}

func TestDeleteRemovesSnapshot(t *testing.T) {
	s := openTestStore(t)

	s.Put(5, history.Snapshot("doomed"))
	s.Delete(5)
	got, err := s.Get(5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("deleted snapshot still readable: %q", got)
	}
}

func TestGetAfterDeleteNeverResurrects(t *testing.T) {
	s := openTestStore(t)

	// Put/Delete/Get back to back, repeatedly, so the flush goroutine is
	// still working through the queue when Get runs. The overlay must
	// answer for the queued delete every time.
	for i := history.SnapshotID(1); i <= 200; i++ {
		s.Put(i, history.Snapshot("transient"))
		s.Delete(i)
		got, err := s.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got != nil {
			t.Fatalf("snapshot %d readable after delete: %q", i, got)
		}
	}
}

func TestPutAfterDeleteIsReadable(t *testing.T) {
	s := openTestStore(t)

	s.Put(7, history.Snapshot("first"))
	s.Delete(7)
	s.Put(7, history.Snapshot("second"))
	got, err := s.Get(7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("got %q, want %q", got, "second")
	}
}

func TestPutAfterClearIsReadable(t *testing.T) {
	s := openTestStore(t)

	s.Put(1, history.Snapshot("stale"))
	s.Clear()
	s.Put(2, history.Snapshot("fresh"))

	got, err := s.Get(2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "fresh" {
		t.Fatalf("got %q, want %q", got, "fresh")
	}
	got, err = s.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("snapshot 1 survived clear: %q", got)
	}
}

func TestClearWipesEverything(t *testing.T) {
	s := openTestStore(t)

	for i := history.SnapshotID(1); i <= 4; i++ {
		s.Put(i, history.Snapshot("blob"))
	}
	s.Clear()
	for i := history.SnapshotID(1); i <= 4; i++ {
		got, err := s.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got != nil {
			t.Fatalf("snapshot %d survived clear", i)
		}
	}
}

func TestDeleteAllExceptKeepsLiveSet(t *testing.T) {
	s := openTestStore(t)

	for i := history.SnapshotID(1); i <= 5; i++ {
		s.Put(i, history.Snapshot("blob"))
	}
	live := map[history.SnapshotID]struct{}{2: {}, 4: {}}
	s.DeleteAllExcept(live)

	for i := history.SnapshotID(1); i <= 5; i++ {
		got, err := s.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		_, keep := live[i]
		if keep && got == nil {
			t.Fatalf("live snapshot %d was collected", i)
		}
		if !keep && got != nil {
			t.Fatalf("stale snapshot %d survived", i)
		}
	}
}

func TestCloseFlushesAndDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Put(9, history.Snapshot("durable"))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(9)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got) != "durable" {
		t.Fatalf("got %q after reopen, want %q", got, "durable")
	}
}

func TestOperationsAfterCloseAreIgnored(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Must not panic.
	s.Put(1, history.Snapshot("late"))
	s.Delete(1)
	s.Clear()
	s.DeleteAllExcept(nil)
}
