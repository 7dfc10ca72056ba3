package inventory

import (
	"slices"
	"sync"
)

// lockTable holds one RWMutex per live isbn. An isbn has an entry iff it has a
// record. The map itself is only written while the structural lock is held
// exclusively and only read while it is held shared or exclusively.
type lockTable struct {
	locks map[int]*sync.RWMutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int]*sync.RWMutex)}
}

func (t *lockTable) add(isbn int)    { t.locks[isbn] = &sync.RWMutex{} }
func (t *lockTable) remove(isbn int) { delete(t.locks, isbn) }
func (t *lockTable) clear()          { clear(t.locks) }
func (t *lockTable) len() int        { return len(t.locks) }

func (t *lockTable) get(isbn int) (*sync.RWMutex, bool) {
	mu, ok := t.locks[isbn]
	return mu, ok
}

// isbns returns every live isbn in ascending order.
func (t *lockTable) isbns() []int {
	out := make([]int, 0, len(t.locks))
	for isbn := range t.locks {
		out = append(out, isbn)
	}
	slices.Sort(out)
	return out
}

type lockMode uint8

const (
	readMode lockMode = iota
	writeMode
)

type lockHandle struct {
	isbn     int
	mode     lockMode
	mu       *sync.RWMutex
	released bool
}

// lockSet is the set of locks one operation holds. The structural lock is
// taken in shared mode once, on the first acquire, and kept until releaseAll;
// per-isbn locks nest beneath it. Taking the shared lock once per isbn would
// deadlock against a waiting structural writer, since sync.RWMutex blocks new
// readers as soon as a writer queues.
type lockSet struct {
	global *sync.RWMutex
	table  *lockTable
	shared bool
	held   map[int]*lockHandle
}

func newLockSet(global *sync.RWMutex, table *lockTable) *lockSet {
	return &lockSet{global: global, table: table, held: make(map[int]*lockHandle)}
}

func (s *lockSet) enter() {
	if s.shared {
		return
	}
	s.global.RLock()
	s.shared = true
}

func (s *lockSet) acquireRead(isbn int) (*lockHandle, error) {
	return s.acquire(isbn, readMode)
}

func (s *lockSet) acquireWrite(isbn int) (*lockHandle, error) {
	return s.acquire(isbn, writeMode)
}

func (s *lockSet) acquire(isbn int, mode lockMode) (*lockHandle, error) {
	if h, ok := s.held[isbn]; ok {
		return h, nil
	}

	s.enter()

	mu, ok := s.table.get(isbn)
	if !ok {
		return nil, unknownISBN(isbn)
	}

	if mode == writeMode {
		mu.Lock()
	} else {
		mu.RLock()
	}
	h := &lockHandle{isbn: isbn, mode: mode, mu: mu}
	s.held[isbn] = h

	// Defensive re-check. Removal needs global exclusively, so while global is
	// held shared this cannot fail.
	if cur, ok := s.table.get(isbn); !ok || cur != mu {
		s.release(h)
		return nil, unknownISBN(isbn)
	}
	return h, nil
}

// acquireAll locks every isbn in ascending order. isbns must already be
// deduplicated and sorted. On failure the locks taken so far stay in the set
// and are dropped by releaseAll.
func (s *lockSet) acquireAll(isbns []int, mode lockMode) error {
	for _, isbn := range isbns {
		if _, err := s.acquire(isbn, mode); err != nil {
			return err
		}
	}
	return nil
}

// release is idempotent and accepts a nil handle.
func (s *lockSet) release(h *lockHandle) {
	if h == nil || h.released {
		return
	}
	if h.mode == writeMode {
		h.mu.Unlock()
	} else {
		h.mu.RUnlock()
	}
	h.released = true
	if s.held[h.isbn] == h {
		delete(s.held, h.isbn)
	}
}

func (s *lockSet) releaseAll() {
	for _, h := range s.held {
		s.release(h)
	}
	if s.shared {
		s.global.RUnlock()
		s.shared = false
	}
}

// canonical returns the distinct isbns in ascending lock order.
func canonical(isbns []int) []int {
	out := slices.Clone(isbns)
	slices.Sort(out)
	return slices.Compact(out)
}
