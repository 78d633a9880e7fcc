package vault

import "sync"

// treeLocks serializes structural changes per owner within this process.
// Stores add their own cross-process guard through LockOwnerTree.
type treeLocks struct {
	mu    sync.Mutex
	locks map[int64]*treeLock
}

type treeLock struct {
	mu   sync.Mutex
	refs int
}

func newTreeLocks() *treeLocks {
	return &treeLocks{locks: make(map[int64]*treeLock)}
}

func (t *treeLocks) lock(ownerID int64) (unlock func()) {
	t.mu.Lock()
	l, ok := t.locks[ownerID]
	if !ok {
		l = &treeLock{}
		t.locks[ownerID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, ownerID)
		}
		t.mu.Unlock()
	}
}
