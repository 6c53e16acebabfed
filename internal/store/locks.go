package store

import (
	"slices"
	"sync"
)

// keyedMutex serialises work per task id. Multi-id callers acquire in
// sorted order so overlapping sets cannot deadlock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) Lock(ids ...string) (unlock func()) {
	keys := slices.Clone(ids)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*keyLock, 0, len(keys))
	for _, id := range keys {
		k.mu.Lock()
		l, ok := k.locks[id]
		if !ok {
			l = &keyLock{}
			k.locks[id] = l
		}
		l.refs++
		k.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		k.mu.Lock()
		for i, id := range keys {
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.locks, id)
			}
		}
		k.mu.Unlock()
	}
}
