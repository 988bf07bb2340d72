// Package snapstore persists history snapshots in a SQLite database. Writes
// go through a bounded write-behind queue flushed by a single goroutine, so
// the history engine never blocks on disk I/O; an overlay of pending puts and
// removal tombstones keeps reads consistent with operations that have not
// reached the database yet.
package snapstore

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/example/inkmark/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY,
	blob BLOB NOT NULL
);
`

// queueSize bounds the write-behind queue. When it overflows the oldest
// queued operation is dropped with a logged notice; losing a snapshot write
// costs undo depth, never correctness.
const queueSize = 256

type opKind int

const (
	opPut opKind = iota
	opDelete
	opDeleteExcept
	opClear
)

func (k opKind) String() string {
	switch k {
	case opPut:
		return "put"
	case opDelete:
		return "delete"
	case opDeleteExcept:
		return "delete-except"
	case opClear:
		return "clear"
	}
	return "unknown"
}

type op struct {
	kind opKind
	id   history.SnapshotID
	blob []byte
	live map[history.SnapshotID]struct{}
}

// SQLite is a history.Store backed by a SQLite database file.
type SQLite struct {
	db   *sql.DB
	ops  chan op
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	pending map[history.SnapshotID][]byte
	// dead counts queued deletes per id; wipes counts queued Clear and
	// DeleteAllExcept passes with keep holding the most recent live set.
	// Together with pending they let Get answer from the intended final
	// state while the flush goroutine catches up.
	dead   map[history.SnapshotID]int
	wipes  int
	keep   map[history.SnapshotID]struct{}
	closed bool
}

var _ history.Store = (*SQLite)(nil)

// DefaultPath returns the session database location under the user cache
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("snapstore: resolve cache dir: %w", err)
	}
	return filepath.Join(dir, "inkmark", "history.db"), nil
}

// Open creates or opens the snapshot database at path and starts the flush
// goroutine. The parent directory is created if needed.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("snapstore: create %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapstore: open %s: %w", path, err)
	}
	// A single connection sidesteps writer contention and keeps :memory:
	// databases coherent in tests.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapstore: init schema: %w", err)
	}
	s := &SQLite{
		db:      db,
		ops:     make(chan op, queueSize),
		done:    make(chan struct{}),
		pending: make(map[history.SnapshotID][]byte),
		dead:    make(map[history.SnapshotID]int),
	}
	go s.flushLoop()
	return s, nil
}

// Put queues an upsert of the snapshot blob. Non-blocking.
func (s *SQLite) Put(id history.SnapshotID, snap history.Snapshot) {
	blob := append([]byte(nil), snap...)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending[id] = blob
	s.mu.Unlock()
	s.enqueue(op{kind: opPut, id: id, blob: blob})
}

// Get returns the snapshot for id, preferring a write still in flight. A
// missing row yields (nil, nil), as does an id with a removal still queued.
func (s *SQLite) Get(id history.SnapshotID) (history.Snapshot, error) {
	s.mu.Lock()
	if blob, ok := s.pending[id]; ok {
		s.mu.Unlock()
		return append(history.Snapshot(nil), blob...), nil
	}
	if s.dead[id] > 0 {
		s.mu.Unlock()
		return nil, nil
	}
	if s.wipes > 0 {
		if _, ok := s.keep[id]; !ok {
			s.mu.Unlock()
			return nil, nil
		}
	}
	s.mu.Unlock()

	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM snapshots WHERE id = ?`, int64(id)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapstore: read %d: %w", id, err)
	}
	return blob, nil
}

// Delete queues removal of the snapshot for id.
func (s *SQLite) Delete(id history.SnapshotID) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.dead[id]++
	s.mu.Unlock()
	s.enqueue(op{kind: opDelete, id: id})
}

// DeleteAllExcept queues a garbage-collection pass keeping only live ids.
func (s *SQLite) DeleteAllExcept(live map[history.SnapshotID]struct{}) {
	keep := make(map[history.SnapshotID]struct{}, len(live))
	for id := range live {
		keep[id] = struct{}{}
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for id := range s.pending {
		if _, ok := keep[id]; !ok {
			delete(s.pending, id)
		}
	}
	s.wipes++
	s.keep = keep
	s.mu.Unlock()
	s.enqueue(op{kind: opDeleteExcept, live: keep})
}

// Clear queues a full wipe of persisted snapshots.
func (s *SQLite) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = make(map[history.SnapshotID][]byte)
	s.wipes++
	s.keep = nil
	s.mu.Unlock()
	s.enqueue(op{kind: opClear})
}

// Close drains queued writes and closes the database.
func (s *SQLite) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.ops)
		<-s.done
	})
	return s.db.Close()
}

// enqueue adds an operation to the write-behind queue, dropping the oldest
// queued operation when full rather than blocking the producer.
func (s *SQLite) enqueue(o op) {
	for {
		select {
		case s.ops <- o:
			return
		default:
		}
		select {
		case dropped, ok := <-s.ops:
			if !ok {
				return
			}
			s.retire(dropped)
			log.Printf("snapstore: write queue full, dropping %s of snapshot %d", dropped.kind, dropped.id)
		default:
		}
	}
}

// retire removes a landed or dropped operation from the read overlay.
func (s *SQLite) retire(o op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch o.kind {
	case opPut:
		// Snapshots are immutable per id, so the landed write always
		// satisfies future reads.
		delete(s.pending, o.id)
	case opDelete:
		if s.dead[o.id] > 1 {
			s.dead[o.id]--
		} else {
			delete(s.dead, o.id)
		}
	case opDeleteExcept, opClear:
		if s.wipes > 0 {
			s.wipes--
		}
		if s.wipes == 0 {
			s.keep = nil
		}
	}
}

func (s *SQLite) flushLoop() {
	defer close(s.done)
	for o := range s.ops {
		s.apply(o)
	}
}

func (s *SQLite) apply(o op) {
	var err error
	switch o.kind {
	case opPut:
		_, err = s.db.Exec(
			`INSERT INTO snapshots (id, blob) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET blob = excluded.blob`,
			int64(o.id), o.blob)
	case opDelete:
		_, err = s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, int64(o.id))
	case opDeleteExcept:
		err = s.deleteAllExceptNow(o.live)
	case opClear:
		_, err = s.db.Exec(`DELETE FROM snapshots`)
	}
	if err != nil {
		// The overlay keeps answering for this operation until it lands.
		log.Printf("snapstore: %s snapshot %d: %v", o.kind, o.id, err)
		return
	}
	s.retire(o)
}

func (s *SQLite) deleteAllExceptNow(live map[history.SnapshotID]struct{}) error {
	rows, err := s.db.Query(`SELECT id FROM snapshots`)
	if err != nil {
		return err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := live[history.SnapshotID(id)]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for _, id := range stale {
		if _, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}
