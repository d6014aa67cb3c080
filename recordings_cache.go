package germanai

import (
	"sync"

	"github.com/JCorts1/GermanAI/internal/domain"
)

// recordingsCache is the read-through listing shared between the backend
// and the display layer. It is always replaced wholesale after a mutating
// store call so it never diverges from the store's actual state.
type recordingsCache struct {
	mu       sync.Mutex
	listings []domain.Recording
}

func (c *recordingsCache) replace(listings []domain.Recording) {
	copied := append([]domain.Recording(nil), listings...)
	c.mu.Lock()
	c.listings = copied
	c.mu.Unlock()
}

func (c *recordingsCache) snapshot() []domain.Recording {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Recording(nil), c.listings...)
}
