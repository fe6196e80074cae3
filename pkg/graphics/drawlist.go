package graphics

import (
	"slices"
	"sync"

	"github.com/zurustar/nsbi/pkg/vm"
)

// DrawList keeps textures in draw order: ascending priority, and insertion
// order within the same priority.
type DrawList struct {
	items []*vm.Texture
	mu    sync.RWMutex
}

// NewDrawList creates an empty list.
func NewDrawList() *DrawList {
	return &DrawList{}
}

// Add inserts t after every texture of equal or lower priority. Adding a
// texture twice has no effect.
func (l *DrawList) Add(t *vm.Texture) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if slices.Contains(l.items, t) {
		return
	}
	i := len(l.items)
	for i > 0 && l.items[i-1].Priority() > t.Priority() {
		i--
	}
	l.items = slices.Insert(l.items, i, t)
}

// Remove deletes t and reports whether it was present.
func (l *DrawList) Remove(t *vm.Texture) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.Index(l.items, t)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

// Items returns a copy of the list in draw order.
func (l *DrawList) Items() []*vm.Texture {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Len returns the number of textures.
func (l *DrawList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// TopAt returns the handle of the topmost texture covering (x, y).
func (l *DrawList) TopAt(x, y int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.items) - 1; i >= 0; i-- {
		t := l.items[i]
		tx, ty := t.Position()
		w, h := t.Size()
		if x >= tx && x < tx+w && y >= ty && y < ty+h {
			return t.Handle(), true
		}
	}
	return "", false
}
