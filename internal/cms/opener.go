package cms

import (
	"context"
	"sync"

	"github.com/hpungsan/funnelmkt/internal/errors"
)

// PreviewURLPrefix is where the admin UI serves retained previews.
const PreviewURLPrefix = "/cms/preview/"

// PreviewStore is the opener used by the admin UI: it keeps the most recent
// previews in memory and the page opens the returned URL in a new tab.
// A store with zero retention refuses every preview.
type PreviewStore struct {
	mu        sync.Mutex
	retention int
	order     []string
	previews  map[string]*Preview
}

// NewPreviewStore retains up to retention previews.
func NewPreviewStore(retention int) *PreviewStore {
	return &PreviewStore{
		retention: max(retention, 0),
		previews:  make(map[string]*Preview),
	}
}

// Open retains p, evicting the oldest preview when full.
func (s *PreviewStore) Open(ctx context.Context, p *Preview) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewPreviewBlocked(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retention == 0 {
		return "", errors.NewPreviewBlocked("previews are disabled")
	}
	for len(s.order) >= s.retention {
		delete(s.previews, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, p.ID)
	s.previews[p.ID] = p
	return PreviewURLPrefix + p.ID, nil
}

// Get returns a retained preview.
func (s *PreviewStore) Get(id string) (*Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.previews[id]
	return p, ok
}

// Len returns the number of retained previews.
func (s *PreviewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
