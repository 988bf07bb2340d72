// Package history implements the undo/redo engine for the annotation
// document: a persistent, de-duplicated snapshot history that coordinates a
// live document surface with asynchronous persistence. Captures are
// debounced and coalesced; undo and redo move snapshot ids between two
// stacks and restore the surface from the persisted blobs.
package history

import (
	"bytes"
	"errors"
	"log"
	"sync"
	"time"
)

// Surface is the live editable document the engine snapshots and restores.
// Callers wire the surface's change notifications to DocumentChanged (and
// terminal edits such as leaving a text-edit session to CaptureNow).
type Surface interface {
	// Serialize captures the full document state as a canonical blob.
	Serialize() ([]byte, error)
	// Restore replaces the document state from a snapshot blob.
	Restore([]byte) error
}

// Engine defaults. All of them can be overridden with options.
const (
	// DefaultMaxDepth bounds the undo stack; captures beyond it evict the
	// oldest snapshot.
	DefaultMaxDepth = 100
	// DefaultDebounce is the quiescence window that coalesces rapid
	// document mutations into a single capture.
	DefaultDebounce = 150 * time.Millisecond
	// DefaultSettle is how long a restore holds the engine after the
	// surface has been rewritten, absorbing the restore's own change
	// notification before new captures are accepted.
	DefaultSettle = 500 * time.Millisecond
)

var (
	// ErrBusy reports that undo/redo was invoked while a restore was still
	// settling. The request is dropped, not queued.
	ErrBusy = errors.New("history: restore in progress")
	// ErrNothingToUndo reports that only the initial snapshot remains.
	ErrNothingToUndo = errors.New("history: nothing to undo")
	// ErrNothingToRedo reports an empty redo stack.
	ErrNothingToRedo = errors.New("history: nothing to redo")
	// ErrSnapshotMissing reports that a snapshot could not be resolved from
	// either the cache or the store. This is a data-loss condition.
	ErrSnapshotMissing = errors.New("history: snapshot missing from cache and store")
)

// engineState tracks what the engine is doing. Captures are rejected
// outside Idle; undo/redo requests arriving outside Idle are dropped with a
// logged notice rather than queued.
type engineState int

const (
	stateIdle engineState = iota
	stateCapturing
	stateRestoring
)

// Engine owns the undo and redo stacks, the snapshot id counter and the
// capture/restore policies. All stack and counter mutations happen under
// one mutex; the settle timeout is a scheduled state transition rather than
// an advisory flag checked on a timer.
type Engine struct {
	mu      sync.Mutex
	surface Surface
	store   Store // nil when persistence is unavailable (cache-only session)
	cache   *Cache

	undo   []SnapshotID
	redo   []SnapshotID
	nextID SnapshotID

	state             engineState
	suppressRedoClear bool

	maxDepth int
	debounce time.Duration
	settle   time.Duration

	debounceTimer *time.Timer
	settleTimer   *time.Timer

	logf func(format string, args ...any)
}

// Option modifies an Engine during creation.
type Option func(*Engine)

// WithStore attaches a persistent snapshot store. Without one the engine
// degrades to cache-only history for the session.
func WithStore(s Store) Option { return func(e *Engine) { e.store = s } }

// WithMaxDepth bounds the undo stack.
func WithMaxDepth(n int) Option { return func(e *Engine) { e.maxDepth = n } }

// WithDebounce sets the capture quiescence window.
func WithDebounce(d time.Duration) Option { return func(e *Engine) { e.debounce = d } }

// WithSettle sets the post-restore settle delay.
func WithSettle(d time.Duration) Option { return func(e *Engine) { e.settle = d } }

// WithCacheSize bounds the in-memory snapshot cache.
func WithCacheSize(n int) Option { return func(e *Engine) { e.cache = NewCache(n) } }

// WithLogger redirects the engine's log output.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(e *Engine) { e.logf = logf }
}

// New creates an engine for the given surface. History does not persist
// across sessions by design, so any store contents left over from a
// previous run are wiped here.
func New(surface Surface, opts ...Option) *Engine {
	e := &Engine{
		surface:  surface,
		maxDepth: DefaultMaxDepth,
		debounce: DefaultDebounce,
		settle:   DefaultSettle,
		logf:     log.Printf,
	}
	for _, o := range opts {
		o(e)
	}
	if e.cache == nil {
		e.cache = NewCache(DefaultCacheSize)
	}
	if e.maxDepth < 1 {
		e.maxDepth = 1
	}
	if e.store != nil {
		e.store.Clear()
	}
	return e
}

// DocumentChanged schedules a debounced capture. Rapid successive calls
// coalesce: only the document state at flush time is captured.
func (e *Engine) DocumentChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = time.AfterFunc(e.debounce, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.debounceTimer = nil
		e.capture()
	})
}

// CaptureNow forces an immediate, un-debounced capture, canceling any
// pending debounce. Used for terminal events such as exiting a text-edit
// session or loading a new document.
func (e *Engine) CaptureNow() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelDebounce()
	e.capture()
}

// capture serializes the surface and records a new snapshot unless the
// state is byte-identical to the most recent one. Callers hold e.mu.
func (e *Engine) capture() {
	if e.state != stateIdle {
		// A restore is in progress; its settle window absorbs this.
		return
	}
	e.state = stateCapturing
	defer func() { e.state = stateIdle }()

	blob, err := e.surface.Serialize()
	if err != nil {
		e.logf("history: capture serialize: %v", err)
		return
	}
	snap := Snapshot(blob)
	if len(e.undo) > 0 {
		prev := e.resolve(e.undo[len(e.undo)-1])
		if prev != nil && bytes.Equal(prev, snap) {
			e.suppressRedoClear = false
			return
		}
	}
	if e.suppressRedoClear {
		e.suppressRedoClear = false
	} else {
		e.releaseRedo()
	}

	e.nextID++
	id := e.nextID
	e.undo = append(e.undo, id)
	e.cache.Put(id, snap)
	if e.store != nil {
		e.store.Put(id, snap)
	}
	for len(e.undo) > e.maxDepth {
		evicted := e.undo[0]
		e.undo = e.undo[1:]
		e.cache.Delete(evicted)
		if e.store != nil {
			e.store.Delete(evicted)
		}
	}
}

// Undo moves the current snapshot onto the redo stack and restores the
// surface from the previous one. The bottom of the undo stack is the
// initial document state and is never undone past.
func (e *Engine) Undo() error {
	return e.restoreShift(&e.undo, &e.redo, ErrNothingToUndo, "undo")
}

// Redo is symmetric to Undo, replaying the most recently undone snapshot.
func (e *Engine) Redo() error {
	return e.restoreShift(&e.redo, &e.undo, ErrNothingToRedo, "redo")
}

// restoreShift pops the top of from, pushes it onto to, and restores the
// surface from the snapshot now current: for undo that is the new top of
// the undo stack, for redo it is the moved id itself. Either way the target
// is the top of the undo stack after the move.
func (e *Engine) restoreShift(from, to *[]SnapshotID, emptyErr error, op string) error {
	e.mu.Lock()
	if e.state != stateIdle {
		e.mu.Unlock()
		e.logf("history: %s dropped: %v", op, ErrBusy)
		return ErrBusy
	}
	floor := 0
	if from == &e.undo {
		floor = 1 // the initial snapshot stays put
	}
	if len(*from) <= floor {
		e.mu.Unlock()
		return emptyErr
	}
	e.cancelDebounce()

	moved := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, moved)

	target := e.undo[len(e.undo)-1]
	snap := e.resolve(target)
	if snap == nil {
		// The moved id stays where it is; rolling the move back would hide
		// that the persisted snapshot is gone.
		e.mu.Unlock()
		e.logf("history: %s: snapshot %d lost: %v", op, target, ErrSnapshotMissing)
		return ErrSnapshotMissing
	}

	e.state = stateRestoring
	e.suppressRedoClear = true
	e.mu.Unlock()

	// The restore fires the surface's own change notification, which
	// re-enters DocumentChanged; the mutex cannot be held across it.
	restoreErr := e.surface.Restore(snap)

	e.mu.Lock()
	if restoreErr != nil {
		e.logf("history: %s restore %d: %v", op, target, restoreErr)
	}
	if e.settleTimer != nil {
		e.settleTimer.Stop()
	}
	e.settleTimer = time.AfterFunc(e.settle, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.settleTimer = nil
		if e.state == stateRestoring {
			e.state = stateIdle
		}
		e.suppressRedoClear = false
	})
	e.mu.Unlock()
	return restoreErr
}

// Clear drops both stacks, resets the id counter and wipes the store. Used
// when the document is replaced wholesale (new document, opened or pasted
// image) rather than mutated incrementally.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelDebounce()
	if e.settleTimer != nil {
		e.settleTimer.Stop()
		e.settleTimer = nil
	}
	e.undo = nil
	e.redo = nil
	e.nextID = 0
	e.state = stateIdle
	e.suppressRedoClear = false
	e.cache.Clear()
	if e.store != nil {
		e.store.Clear()
	}
}

// Compact garbage-collects persisted snapshots no longer referenced by
// either stack. Safe to run opportunistically.
func (e *Engine) Compact() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compactLocked()
}

func (e *Engine) compactLocked() {
	if e.store == nil {
		return
	}
	live := make(map[SnapshotID]struct{}, len(e.undo)+len(e.redo))
	for _, id := range e.undo {
		live[id] = struct{}{}
	}
	for _, id := range e.redo {
		live[id] = struct{}{}
	}
	e.store.DeleteAllExcept(live)
}

// CanUndo reports whether an undo would restore an earlier state.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateIdle && len(e.undo) > 1
}

// CanRedo reports whether an undone snapshot is available to replay.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateIdle && len(e.redo) > 0
}

// Depths reports the current undo and redo stack lengths.
func (e *Engine) Depths() (undo, redo int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo), len(e.redo)
}

// Close cancels outstanding timers and runs a final compaction so the store
// holds only snapshots the stacks still reference. It does not close the
// store, which the caller owns.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelDebounce()
	if e.settleTimer != nil {
		e.settleTimer.Stop()
		e.settleTimer = nil
	}
	e.compactLocked()
}

// resolve looks a snapshot up in the cache, falling back to the store. A
// store hit repopulates the cache. Returns nil when the snapshot cannot be
// found anywhere.
func (e *Engine) resolve(id SnapshotID) Snapshot {
	if snap := e.cache.Get(id); snap != nil {
		return snap
	}
	if e.store == nil {
		return nil
	}
	snap, err := e.store.Get(id)
	if err != nil {
		e.logf("history: store read %d: %v", id, err)
		return nil
	}
	if snap != nil {
		e.cache.Put(id, snap)
	}
	return snap
}

// releaseRedo drops the redo stack and the snapshots it referenced. Callers
// hold e.mu.
func (e *Engine) releaseRedo() {
	for _, id := range e.redo {
		e.cache.Delete(id)
		if e.store != nil {
			e.store.Delete(id)
		}
	}
	e.redo = nil
}

func (e *Engine) cancelDebounce() {
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
		e.debounceTimer = nil
	}
}
