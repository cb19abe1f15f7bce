package utils

import (
	"sync"
)

var storeStoreInstance *stringStoreImpl
var stringStoreInitializer sync.Once

// StringStore interns short repeated strings such as POS tags so that a
// large corpus shares one copy of every tag.
type StringStore interface {
	Intern(s string) string
	InternAll(ss []string) []string

	// When all corpora are loaded the service locks the store.
	// A locked store does not remember new strings.
	Lock()
	IsLocked() bool
	Len() int
}

type stringStoreImpl struct {
	mu       sync.RWMutex
	store    map[string]string
	isLocked bool
}

func NewStringStore() StringStore {
	return &stringStoreImpl{store: make(map[string]string)}
}

func (stringStore *stringStoreImpl) Intern(s string) string {
	stringStore.mu.RLock()
	interned, ok := stringStore.store[s]
	locked := stringStore.isLocked
	stringStore.mu.RUnlock()
	if ok || locked {
		if ok {
			return interned
		}
		return s
	}

	stringStore.mu.Lock()
	defer stringStore.mu.Unlock()
	if interned, ok = stringStore.store[s]; ok {
		return interned
	}
	stringStore.store[s] = s
	return s
}

func (stringStore *stringStoreImpl) InternAll(ss []string) []string {
	for i, s := range ss {
		ss[i] = stringStore.Intern(s)
	}
	return ss
}

func (stringStore *stringStoreImpl) Lock() {
	stringStore.mu.Lock()
	stringStore.isLocked = true
	stringStore.mu.Unlock()
}

func (stringStore *stringStoreImpl) IsLocked() bool {
	stringStore.mu.RLock()
	defer stringStore.mu.RUnlock()
	return stringStore.isLocked
}

func (stringStore *stringStoreImpl) Len() int {
	stringStore.mu.RLock()
	defer stringStore.mu.RUnlock()
	return len(stringStore.store)
}

func GlobalStringStore() StringStore {
	stringStoreInitializer.Do(func() {
		storeStoreInstance = NewStringStore().(*stringStoreImpl)
	})

	return storeStoreInstance
}
