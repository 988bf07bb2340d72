package history

// SnapshotID is a process-local, monotonically increasing handle for a
// snapshot. IDs start at 1, are unique for the lifetime of a session and
// are never reused, even after the snapshot they name is deleted.
type SnapshotID int64

// Snapshot is an immutable serialized capture of the full document state at
// one instant. The engine treats it as an opaque blob; equality between
// snapshots is byte equality on this canonical form.
type Snapshot []byte

// Store is durable key→blob persistence for snapshots. Writes are allowed
// to complete in the background; reads must observe writes already handed
// to the store. A Store survives process restarts but is wiped at the start
// of each session, so its durability only covers mid-session interruptions.
type Store interface {
	// Put persists a snapshot under id. Idempotent upsert; must not block
	// the caller on I/O completion.
	Put(id SnapshotID, snap Snapshot)
	// Get returns the snapshot for id, or nil with a nil error when it is
	// absent. I/O errors are returned so the caller can log them, but are
	// never fatal to the caller.
	Get(id SnapshotID) (Snapshot, error)
	// Delete removes the snapshot for id, if present.
	Delete(id SnapshotID)
	// DeleteAllExcept removes every persisted snapshot whose id is not in
	// live. Safe to run opportunistically.
	DeleteAllExcept(live map[SnapshotID]struct{})
	// Clear wipes all persisted snapshots.
	Clear()
	// Close flushes outstanding writes and releases resources.
	Close() error
}
