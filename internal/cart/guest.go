package cart

import (
	"sync"

	"github.com/google/uuid"
)

// GuestStore holds anonymous carts in memory, keyed by a synthetic guest id
// carried in a cookie. Guest carts are ephemeral: they live until the guest
// logs in (merge) or the process restarts.
type GuestStore struct {
	mu    sync.RWMutex
	carts map[string][]Line
}

func NewGuestStore() *GuestStore {
	return &GuestStore{carts: make(map[string][]Line)}
}

func (g *GuestStore) NewID() string {
	return uuid.NewString()
}

func (g *GuestStore) Get(id string) []Line {
	g.mu.RLock()
	defer g.mu.RUnlock()
	lines := make([]Line, len(g.carts[id]))
	copy(lines, g.carts[id])
	return lines
}

func (g *GuestStore) Add(id string, productID uint, qty uint, price float64) []Line {
	if qty < 1 {
		qty = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	lines := g.carts[id]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += qty
			g.carts[id] = lines
			return g.copyLocked(id)
		}
	}
	g.carts[id] = append(lines, Line{ProductID: productID, Quantity: qty, Price: price})
	return g.copyLocked(id)
}

func (g *GuestStore) Change(id string, productID uint, delta int) ([]Line, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	lines := g.carts[id]
	for i := range lines {
		if lines[i].ProductID == productID {
			next := int(lines[i].Quantity) + delta
			if next <= 0 {
				g.carts[id] = append(lines[:i], lines[i+1:]...)
			} else {
				lines[i].Quantity = uint(next)
				g.carts[id] = lines
			}
			return g.copyLocked(id), true
		}
	}
	return g.copyLocked(id), false
}

func (g *GuestStore) Remove(id string, productID uint) []Line {
	g.mu.Lock()
	defer g.mu.Unlock()
	lines := g.carts[id]
	for i := range lines {
		if lines[i].ProductID == productID {
			g.carts[id] = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return g.copyLocked(id)
}

func (g *GuestStore) Replace(id string, lines []Line) {
	kept := lines[:0:0]
	for _, l := range lines {
		if l.Quantity >= 1 {
			kept = append(kept, l)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.carts[id] = kept
}

// Take returns the guest's lines and forgets them, for the login-time merge.
func (g *GuestStore) Take(id string) []Line {
	g.mu.Lock()
	defer g.mu.Unlock()
	lines := g.carts[id]
	delete(g.carts, id)
	return lines
}

func (g *GuestStore) copyLocked(id string) []Line {
	out := make([]Line, len(g.carts[id]))
	copy(out, g.carts[id])
	return out
}
