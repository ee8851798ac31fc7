package service

import (
	"sort"
	"sync"
)

// userLocks is a keyed mutex. Entries are reference counted and removed
// once no goroutine holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock acquires the locks for every given user in ascending ID order and
// returns the matching unlock. Duplicate IDs are locked once.
func (l *userLocks) Lock(userIDs ...string) (unlock func()) {
	ids := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	held := make([]*userLock, 0, len(ids))
	for _, id := range ids {
		ul := l.acquire(id)
		ul.mu.Lock()
		held = append(held, ul)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(ids[i])
		}
	}
}

func (l *userLocks) acquire(id string) *userLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	ul, ok := l.locks[id]
	if !ok {
		ul = &userLock{}
		l.locks[id] = ul
	}
	ul.refs++
	return ul
}

func (l *userLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ul := l.locks[id]
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
