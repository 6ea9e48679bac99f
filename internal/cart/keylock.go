package cart

import "sync"

// keyLock hands out one mutex per cart owner so concurrent mutations of the
// same cart serialize while different carts stay independent.
type keyLock struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func (k *keyLock) get(id uint) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[uint]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	return m
}

// Lock acquires the owner's mutex and returns the unlock func.
func (k *keyLock) Lock(id uint) func() {
	m := k.get(id)
	m.Lock()
	return m.Unlock
}
