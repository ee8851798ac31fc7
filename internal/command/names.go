package command

import "sync"

const unknownUser = "Unknown User"

// nameBook remembers display names seen in chat so leaderboards can show
// names instead of raw IDs.
type nameBook struct {
	mu    sync.RWMutex
	names map[string]string
	limit int
}

func newNameBook(limit int) *nameBook {
	return &nameBook{names: make(map[string]string), limit: limit}
}

func (b *nameBook) remember(userID, name string) {
	if userID == "" || name == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.names[userID]; !ok && len(b.names) >= b.limit {
		for id := range b.names {
			delete(b.names, id)
			break
		}
	}
	b.names[userID] = name
}

func (b *nameBook) lookup(userID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if name, ok := b.names[userID]; ok {
		return name
	}
	return unknownUser
}
