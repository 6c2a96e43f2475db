package cms

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/ids"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 5 << 20

// ImageURLPrefix is where the admin UI serves stored blobs.
const ImageURLPrefix = "/cms/images/"

type blob struct {
	image Image
	data  []byte
}

// ImageStore holds uploaded image bytes until they are revoked.
type ImageStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
	now   func() time.Time
}

// NewImageStore creates an empty store.
func NewImageStore() *ImageStore {
	return &ImageStore{blobs: make(map[string]blob), now: time.Now}
}

// Put stores data and returns its descriptor. The content type is sniffed
// when the client did not send an image type.
func (s *ImageStore) Put(name, contentType string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, errors.NewInvalidRequest("image is empty")
	}
	if len(data) > MaxImageBytes {
		return Image{}, errors.NewInvalidRequest(fmt.Sprintf("image exceeds %d bytes", MaxImageBytes))
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Image{}, errors.NewInvalidRequest("file is not an image")
	}

	id, err := ids.New(s.now())
	if err != nil {
		return Image{}, errors.NewInternal(err)
	}
	img := Image{
		ID:          id,
		Name:        strings.TrimSpace(name),
		ContentType: contentType,
		Size:        len(data),
		URL:         ImageURLPrefix + id,
	}

	s.mu.Lock()
	s.blobs[id] = blob{image: img, data: append([]byte(nil), data...)}
	s.mu.Unlock()
	return img, nil
}

// Get returns the descriptor and bytes of a live image.
func (s *ImageStore) Get(id string) (Image, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return Image{}, nil, false
	}
	return b.image, b.data, true
}

// Revoke releases an image. Its URL stops resolving.
func (s *ImageStore) Revoke(id string) {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
}

// Len returns the number of live images.
func (s *ImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
