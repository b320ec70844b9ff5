package domain

import "sync"

// MemoryIndex is an in-process AnnouncementIndex.
type MemoryIndex struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{ids: make(map[string]struct{})}
}

func (i *MemoryIndex) Add(messageID string) {
	if messageID == "" {
		return
	}
	i.mu.Lock()
	i.ids[messageID] = struct{}{}
	i.mu.Unlock()
}

func (i *MemoryIndex) Remove(messageID string) {
	i.mu.Lock()
	delete(i.ids, messageID)
	i.mu.Unlock()
}

func (i *MemoryIndex) Contains(messageID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.ids[messageID]
	return ok
}

// Len returns the number of indexed messages.
func (i *MemoryIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}
