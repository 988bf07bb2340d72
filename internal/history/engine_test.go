package history

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeSurface is an in-memory document surface whose state is a plain byte
// slice. Restore fires the registered change callback the way the real
// document does.
type fakeSurface struct {
	state        []byte
	serializeErr error
	restoreErr   error
	onChange     func()
}

func (s *fakeSurface) Serialize() ([]byte, error) {
	if s.serializeErr != nil {
		return nil, s.serializeErr
	}
	return append([]byte(nil), s.state...), nil
}

func (s *fakeSurface) Restore(snap []byte) error {
	if s.restoreErr != nil {
		return s.restoreErr
	}
	s.state = append([]byte(nil), snap...)
	if s.onChange != nil {
		s.onChange()
	}
	return nil
}

func (s *fakeSurface) set(state string) { s.state = []byte(state) }

// memStore is a synchronous in-memory Store for tests.
type memStore struct {
	mu     sync.Mutex
	blobs  map[SnapshotID]Snapshot
	getErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[SnapshotID]Snapshot)}
}

func (m *memStore) Put(id SnapshotID, snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = append(Snapshot(nil), snap...)
}

func (m *memStore) Get(id SnapshotID) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.blobs[id], nil
}

func (m *memStore) Delete(id SnapshotID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
}

func (m *memStore) DeleteAllExcept(live map[SnapshotID]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.blobs {
		if _, ok := live[id]; !ok {
			delete(m.blobs, id)
		}
	}
}

func (m *memStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs = make(map[SnapshotID]Snapshot)
}

func (m *memStore) Close() error { return nil }

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

func (m *memStore) has(id SnapshotID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[id]
	return ok
}

func newTestEngine(t *testing.T, surface *fakeSurface, opts ...Option) (*Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	opts = append([]Option{
		WithStore(store),
		WithDebounce(5 * time.Millisecond),
		WithSettle(10 * time.Millisecond),
		WithLogger(t.Logf),
	}, opts...)
	e := New(surface, opts...)
	t.Cleanup(e.Close)
	if surface.onChange == nil {
		surface.onChange = e.DocumentChanged
	}
	return e, store
}

func waitIdle(e *Engine) {
	for i := 0; i < 200; i++ {
		e.mu.Lock()
		idle := e.state == stateIdle
		e.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCaptureGrowsUndoStack(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	for i := 0; i < 5; i++ {
		surface.set(fmt.Sprintf("state-%d", i))
		e.CaptureNow()
	}
	if undo, redo := e.Depths(); undo != 5 || redo != 0 {
		t.Fatalf("depths = (%d, %d), want (5, 0)", undo, redo)
	}
	if e.nextID != 5 {
		t.Fatalf("nextID = %d, want 5", e.nextID)
	}
}

func TestCaptureDeduplicatesIdenticalState(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	surface.set("same")
	e.CaptureNow()
	e.CaptureNow()
	e.CaptureNow()
	if undo, _ := e.Depths(); undo != 1 {
		t.Fatalf("undo depth = %d, want 1 after duplicate captures", undo)
	}
}

func TestDebounceCoalescesRapidMutations(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	surface.set("initial")
	e.CaptureNow()

	surface.set("drag-1")
	e.DocumentChanged()
	surface.set("drag-2")
	e.DocumentChanged()
	surface.set("drag-final")
	e.DocumentChanged()

	time.Sleep(50 * time.Millisecond)
	if undo, _ := e.Depths(); undo != 2 {
		t.Fatalf("undo depth = %d, want 2 (one coalesced capture)", undo)
	}
	// Only the latest state at flush time was captured.
	top := e.resolve(e.undo[len(e.undo)-1])
	if string(top) != "drag-final" {
		t.Fatalf("captured %q, want %q", top, "drag-final")
	}
}

func TestCaptureNowCancelsPendingDebounce(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	surface.set("a")
	e.DocumentChanged()
	e.CaptureNow()
	time.Sleep(20 * time.Millisecond)
	if undo, _ := e.Depths(); undo != 1 {
		t.Fatalf("undo depth = %d, want 1 (debounce canceled by forced capture)", undo)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	surface.set("first")
	e.CaptureNow()
	surface.set("second")
	e.CaptureNow()
	before := append([]byte(nil), surface.state...)

	if err := e.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if string(surface.state) != "first" {
		t.Fatalf("after undo state = %q, want %q", surface.state, "first")
	}
	waitIdle(e)
	if err := e.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if !bytes.Equal(surface.state, before) {
		t.Fatalf("redo did not restore identical state: %q vs %q", surface.state, before)
	}
}

func TestUndoAtInitialSnapshotIsNoop(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	surface.set("only")
	e.CaptureNow()
	if err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("undo = %v, want ErrNothingToUndo", err)
	}
	if string(surface.state) != "only" {
		t.Fatalf("state changed to %q", surface.state)
	}
	if undo, redo := e.Depths(); undo != 1 || redo != 0 {
		t.Fatalf("depths = (%d, %d), want (1, 0)", undo, redo)
	}
}

func TestNewMutationClearsRedo(t *testing.T) {
	surface := &fakeSurface{}
	e, store := newTestEngine(t, surface)

	surface.set("A")
	e.CaptureNow()
	surface.set("B")
	e.CaptureNow()
	if err := e.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if _, redo := e.Depths(); redo != 1 {
		t.Fatalf("redo depth = %d, want 1", redo)
	}
	waitIdle(e)

	surface.set("C")
	e.CaptureNow()
	if _, redo := e.Depths(); redo != 0 {
		t.Fatalf("redo depth = %d, want 0 after fresh mutation", redo)
	}
	if err := e.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Fatalf("redo = %v, want ErrNothingToRedo", err)
	}
	// The orphaned redo snapshot was released from the store too.
	if store.has(2) {
		t.Fatal("expected snapshot 2 to be deleted from the store")
	}
}

func TestRestoreNotificationDoesNotClearRedo(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	surface.set("A")
	e.CaptureNow()
	surface.set("B")
	e.CaptureNow()
	if err := e.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	// The restore fired surface.onChange; wait out the debounce and the
	// settle window.
	time.Sleep(50 * time.Millisecond)
	if _, redo := e.Depths(); redo != 1 {
		t.Fatalf("redo depth = %d, want 1 (restore recapture must not clear it)", redo)
	}
	if undo, _ := e.Depths(); undo != 1 {
		t.Fatalf("undo depth = %d, want 1", undo)
	}
}

func TestUndoWhileRestoringIsDropped(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface, WithSettle(80*time.Millisecond))

	surface.set("A")
	e.CaptureNow()
	surface.set("B")
	e.CaptureNow()
	surface.set("C")
	e.CaptureNow()

	if err := e.Undo(); err != nil {
		t.Fatalf("first undo: %v", err)
	}
	if err := e.Undo(); !errors.Is(err, ErrBusy) {
		t.Fatalf("second undo = %v, want ErrBusy", err)
	}
	if undo, redo := e.Depths(); undo != 2 || redo != 1 {
		t.Fatalf("depths = (%d, %d), want (2, 1)", undo, redo)
	}
}

func TestUndoStackTrimsAtCap(t *testing.T) {
	surface := &fakeSurface{}
	e, store := newTestEngine(t, surface)

	for i := 0; i < 101; i++ {
		surface.set(fmt.Sprintf("state-%d", i))
		e.CaptureNow()
	}
	if undo, _ := e.Depths(); undo != 100 {
		t.Fatalf("undo depth = %d, want 100", undo)
	}
	if e.cache.Has(1) {
		t.Fatal("snapshot 1 still cached after trim")
	}
	if store.has(1) {
		t.Fatal("snapshot 1 still persisted after trim")
	}
	if !store.has(2) {
		t.Fatal("snapshot 2 should survive the trim")
	}
}

func TestClearResetsCounterAndStore(t *testing.T) {
	surface := &fakeSurface{}
	e, store := newTestEngine(t, surface)

	surface.set("old")
	e.CaptureNow()
	surface.set("older")
	e.CaptureNow()

	e.Clear()
	if undo, redo := e.Depths(); undo != 0 || redo != 0 {
		t.Fatalf("depths = (%d, %d) after clear", undo, redo)
	}
	if store.len() != 0 {
		t.Fatalf("store holds %d snapshots after clear", store.len())
	}

	surface.set("fresh")
	e.CaptureNow()
	if len(e.undo) != 1 || e.undo[0] != 1 {
		t.Fatalf("undo = %v, want [1] (counter reset)", e.undo)
	}
}

func TestUndoResolvesFromStoreOnCacheMiss(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface, WithCacheSize(2))

	for i := 0; i < 6; i++ {
		surface.set(fmt.Sprintf("state-%d", i))
		e.CaptureNow()
	}
	for i := 5; i > 0; i-- {
		waitIdle(e)
		if err := e.Undo(); err != nil {
			t.Fatalf("undo to state-%d: %v", i-1, err)
		}
		if want := fmt.Sprintf("state-%d", i-1); string(surface.state) != want {
			t.Fatalf("state = %q, want %q", surface.state, want)
		}
	}
}

func TestUndoReportsMissingSnapshot(t *testing.T) {
	surface := &fakeSurface{}
	e, store := newTestEngine(t, surface)

	surface.set("A")
	e.CaptureNow()
	surface.set("B")
	e.CaptureNow()

	// Lose snapshot 1 from both tiers.
	e.cache.Delete(1)
	store.Delete(1)

	if err := e.Undo(); !errors.Is(err, ErrSnapshotMissing) {
		t.Fatalf("undo = %v, want ErrSnapshotMissing", err)
	}
	if string(surface.state) != "B" {
		t.Fatalf("surface changed to %q despite missing snapshot", surface.state)
	}
	// The id stays moved; the engine does not roll it back.
	if undo, redo := e.Depths(); undo != 1 || redo != 1 {
		t.Fatalf("depths = (%d, %d), want (1, 1)", undo, redo)
	}
	// The engine is immediately usable again.
	waitIdle(e)
	surface.set("C")
	e.CaptureNow()
	if undo, _ := e.Depths(); undo != 2 {
		t.Fatalf("undo depth = %d after recovery capture", undo)
	}
}

func TestSerializeFailureLeavesStacksIntact(t *testing.T) {
	surface := &fakeSurface{}
	e, _ := newTestEngine(t, surface)

	surface.set("good")
	e.CaptureNow()
	surface.serializeErr = errors.New("canvas detached")
	e.CaptureNow()
	if undo, redo := e.Depths(); undo != 1 || redo != 0 {
		t.Fatalf("depths = (%d, %d), want (1, 0)", undo, redo)
	}
}

func TestCacheOnlySessionWithoutStore(t *testing.T) {
	surface := &fakeSurface{}
	e := New(surface,
		WithDebounce(5*time.Millisecond),
		WithSettle(10*time.Millisecond),
		WithLogger(t.Logf),
	)
	t.Cleanup(e.Close)
	surface.onChange = e.DocumentChanged

	surface.set("A")
	e.CaptureNow()
	surface.set("B")
	e.CaptureNow()
	if err := e.Undo(); err != nil {
		t.Fatalf("undo without store: %v", err)
	}
	if string(surface.state) != "A" {
		t.Fatalf("state = %q, want %q", surface.state, "A")
	}
}

func TestCompactDropsUnreferencedSnapshots(t *testing.T) {
	surface := &fakeSurface{}
	e, store := newTestEngine(t, surface)

	surface.set("A")
	e.CaptureNow()
	surface.set("B")
	e.CaptureNow()
	// Simulate a leaked write that no stack references.
	store.Put(99, Snapshot("orphan"))

	e.Compact()
	if store.has(99) {
		t.Fatal("compact left an unreferenced snapshot behind")
	}
	if !store.has(1) || !store.has(2) {
		t.Fatal("compact removed live snapshots")
	}
}

func TestCloseCompactsStore(t *testing.T) {
	surface := &fakeSurface{}
	e, store := newTestEngine(t, surface)

	surface.set("A")
	e.CaptureNow()
	store.Put(42, Snapshot("orphan"))

	e.Close()
	if store.has(42) {
		t.Fatal("close left an unreferenced snapshot behind")
	}
	if !store.has(1) {
		t.Fatal("close removed a live snapshot")
	}
}

func TestNewWipesLeftoverStore(t *testing.T) {
	store := newMemStore()
	store.Put(7, Snapshot("stale"))

	surface := &fakeSurface{}
	e := New(surface, WithStore(store), WithLogger(t.Logf))
	t.Cleanup(e.Close)

	if store.len() != 0 {
		t.Fatalf("store holds %d stale snapshots after session start", store.len())
	}
}
