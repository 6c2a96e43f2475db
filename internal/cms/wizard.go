package cms

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/ids"
)

// Wizard steps.
const (
	StepHeader  = 1
	StepContent = 2
	StepReview  = 3
)

// StepNames labels the steps for the editor.
var StepNames = map[int]string{
	StepHeader:  "Header",
	StepContent: "Content",
	StepReview:  "Review",
}

// State is a snapshot of the wizard for rendering.
type State struct {
	Step int
	Document
}

// Wizard is the single editing session of the CMS. It is safe for
// concurrent use.
type Wizard struct {
	mu       sync.Mutex
	step     int
	settings Settings
	titles   []Block
	contents []Block
	images   []Image

	store  *ImageStore
	opener Opener
	now    func() time.Time
}

// NewWizard starts at step 1 with default settings. Uploaded images are kept
// in store; previews are handed to opener.
func NewWizard(opener Opener, store *ImageStore) *Wizard {
	if store == nil {
		store = NewImageStore()
	}
	return &Wizard{
		step:     StepHeader,
		settings: DefaultSettings(),
		store:    store,
		opener:   opener,
		now:      time.Now,
	}
}

// Images returns the blob store backing this wizard.
func (w *Wizard) Images() *ImageStore { return w.store }

// Step returns the current step.
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// State returns a copy of the editing state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{Step: w.step, Document: w.documentLocked()}
}

// Document returns a copy of what the preview would render.
func (w *Wizard) Document() Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.documentLocked()
}

func (w *Wizard) documentLocked() Document {
	return Document{
		Settings: w.settings,
		Titles:   append([]Block(nil), w.titles...),
		Contents: append([]Block(nil), w.contents...),
		Images:   append([]Image(nil), w.images...),
	}
}

// Next advances one step. On the review step it does not advance; it
// renders the page and opens it exactly once instead.
func (w *Wizard) Next(ctx context.Context) (*Preview, error) {
	w.mu.Lock()
	if w.step < StepReview {
		w.step++
		w.mu.Unlock()
		return nil, nil
	}
	doc := w.documentLocked()
	w.mu.Unlock()

	return w.open(ctx, doc)
}

// Preview renders and opens the current document regardless of step.
func (w *Wizard) Preview(ctx context.Context) (*Preview, error) {
	return w.open(ctx, w.Document())
}

func (w *Wizard) open(ctx context.Context, doc Document) (*Preview, error) {
	p, err := GeneratePreview(doc, w.now())
	if err != nil {
		return nil, err
	}
	if w.opener == nil {
		return nil, errors.NewPreviewBlocked("no preview target available")
	}
	location, err := w.opener.Open(ctx, p)
	if err != nil {
		if errors.Is(err, errors.ErrPreviewBlocked) {
			return nil, err
		}
		return nil, errors.NewPreviewBlocked(err.Error())
	}
	p.Location = location
	return p, nil
}

// Previous goes back one step, stopping at the first.
func (w *Wizard) Previous() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepHeader {
		w.step--
	}
}

// UpdateSettings replaces the scalar page fields. Empty style fields fall
// back to defaults; invalid ones are rejected and nothing changes.
func (w *Wizard) UpdateSettings(s Settings) error {
	s = s.normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settings = s
	return nil
}

// Load replaces the document with doc, such as one saved from GET /cms.
// The step is kept. Images are carried by URL only; their blobs are not
// imported into the store.
func (w *Wizard) Load(doc Document) error {
	s := doc.Settings.normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, img := range w.images {
		w.store.Revoke(img.ID)
	}
	w.settings = s
	w.titles = append([]Block(nil), doc.Titles...)
	w.contents = append([]Block(nil), doc.Contents...)
	w.images = append([]Image(nil), doc.Images...)
	return nil
}

// AddTitle appends a title entry.
func (w *Wizard) AddTitle(text string) (Block, error) {
	return w.addBlock(&w.titles, "title", text)
}

// RemoveTitle deletes a title entry. Unknown ids return false.
func (w *Wizard) RemoveTitle(id string) bool {
	return w.removeBlock(&w.titles, id)
}

// AddContent appends a content block (Markdown).
func (w *Wizard) AddContent(text string) (Block, error) {
	return w.addBlock(&w.contents, "content", text)
}

// RemoveContent deletes a content block. Unknown ids return false.
func (w *Wizard) RemoveContent(id string) bool {
	return w.removeBlock(&w.contents, id)
}

func (w *Wizard) addBlock(list *[]Block, kind, text string) (Block, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Block{}, errors.NewInvalidRequest(kind + " text is required")
	}
	id, err := ids.New(w.now())
	if err != nil {
		return Block{}, errors.NewInternal(err)
	}
	b := Block{ID: id, Text: text}

	w.mu.Lock()
	defer w.mu.Unlock()
	*list = append(*list, b)
	return b, nil
}

func (w *Wizard) removeBlock(list *[]Block, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, b := range *list {
		if b.ID == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// AddImage stores an upload and appends it to the page.
func (w *Wizard) AddImage(name, contentType string, data []byte) (Image, error) {
	img, err := w.store.Put(name, contentType, data)
	if err != nil {
		return Image{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.images = append(w.images, img)
	return img, nil
}

// RemoveImage drops an image from the page and revokes its blob.
func (w *Wizard) RemoveImage(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, img := range w.images {
		if img.ID == id {
			w.images = append(w.images[:i:i], w.images[i+1:]...)
			w.store.Revoke(id)
			return true
		}
	}
	return false
}

// Reset returns to step 1 with default settings, no blocks and no images.
// Every image blob is revoked.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, img := range w.images {
		w.store.Revoke(img.ID)
	}
	w.step = StepHeader
	w.settings = DefaultSettings()
	w.titles = nil
	w.contents = nil
	w.images = nil
}
