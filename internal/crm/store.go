package crm

import (
	"context"
	"sync"
	"time"

	"github.com/hpungsan/funnelmkt/internal/errors"
)

// Registry persists new clients outside the process. The returned record is
// the registry's version and replaces the local draft.
type Registry interface {
	CreateClient(ctx context.Context, payload Payload) (*ClientRecord, error)
}

// Store is the single source of truth for the CRM: the client collection, the
// create-form draft, the list query and page, the last segment snapshot and
// the selected client. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	registry Registry
	pageSize int
	now      func() time.Time

	clients  []ClientRecord
	draft    Draft
	query    string
	page     int
	selected string
	creating bool

	segmentPred SegmentPredicate
	segment     []ClientRecord
	segmented   bool
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry makes Create go through r. Without it clients stay local.
func WithRegistry(r Registry) Option {
	return func(s *Store) { s.registry = r }
}

// WithPageSize sets the list page size.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRecords seeds the collection.
func WithRecords(records []ClientRecord) Option {
	return func(s *Store) { s.clients = cloneAll(records) }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		pageSize: DefaultPageSize,
		now:      time.Now,
		draft:    DefaultDraft(),
		page:     1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Remote reports whether creates go through a registry.
func (s *Store) Remote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry != nil
}

// Load replaces the collection, e.g. with records read from the registry.
func (s *Store) Load(records []ClientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = cloneAll(records)
}

// Clients returns a copy of the collection in presentation order.
func (s *Store) Clients() []ClientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.clients)
}

// Len returns the collection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Draft returns the current form draft.
func (s *Store) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.ChannelIdx = append([]int(nil), s.draft.ChannelIdx...)
	return d
}

// SetDraft replaces the form draft.
func (s *Store) SetDraft(d Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
}

// Creating reports whether a create is pending.
func (s *Store) Creating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creating
}

// Create validates the draft and appends the new client.
//
// Validation failures return VALIDATION_FAILED and leave the collection
// untouched; the draft is kept so the form can be re-rendered. With a
// registry, a failed call returns REMOTE_FAILURE and nothing is appended; on
// success the registry's record is appended rather than the local draft.
// Only one create may be pending at a time (CREATE_IN_FLIGHT).
func (s *Store) Create(ctx context.Context, d Draft) (*ClientRecord, error) {
	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return nil, errors.NewCreateInFlight()
	}
	s.draft = d
	payload := d.Payload()
	if fields := payload.Validate(); len(fields) > 0 {
		s.mu.Unlock()
		return nil, errors.NewValidationFailed(fields)
	}
	s.creating = true
	registry := s.registry
	now := s.now()
	s.mu.Unlock()

	rec, err := s.build(ctx, registry, payload, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
	if err != nil {
		return nil, err
	}
	s.clients = append(s.clients, rec)
	s.draft = DefaultDraft()
	out := rec.clone()
	return &out, nil
}

// build produces the record to append, locally or through the registry.
func (s *Store) build(ctx context.Context, registry Registry, payload Payload, now time.Time) (ClientRecord, error) {
	if registry == nil {
		rec, err := NewRecord(payload, now)
		if err != nil {
			return ClientRecord{}, errors.NewInternal(err)
		}
		return rec, nil
	}

	remote, err := registry.CreateClient(ctx, payload)
	if err != nil {
		if errors.Is(err, errors.ErrRemoteFailure) {
			return ClientRecord{}, err
		}
		return ClientRecord{}, errors.NewRemoteFailure(err)
	}
	if remote == nil {
		return ClientRecord{}, errors.NewRemoteFailure(nil)
	}
	rec, err := Normalize(*remote, now)
	if err != nil {
		return ClientRecord{}, errors.NewInternal(err)
	}
	return rec, nil
}

// Query returns the current list search string.
func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetQuery changes the list search string and resets to the first page.
func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q != s.query {
		s.query = q
		s.page = 1
	}
}

// SetPage moves the list cursor. Out-of-range values are clamped when the
// page is computed.
func (s *Store) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = max(n, 1)
}

// Search returns the clients matching q without changing the store.
func (s *Store) Search(q string) []ClientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Search(s.clients, q)
}

// Page returns the current page of the current search view.
func (s *Store) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Paginate(Search(s.clients, s.query), s.page, s.pageSize)
}

// RunSegment computes and keeps a snapshot of the clients matching pred.
// The snapshot does not follow later changes to the collection.
func (s *Store) RunSegment(pred SegmentPredicate) []ClientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segmentPred = pred
	s.segment = Segment(s.clients, pred)
	s.segmented = true
	return cloneAll(s.segment)
}

// Segment returns the last snapshot and its predicate. ok is false until
// RunSegment has been called.
func (s *Store) Segment() (SegmentPredicate, []ClientRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segmentPred, cloneAll(s.segment), s.segmented
}

// TransitionStage sets the stage of client id. Any stage may follow any
// other. Unknown ids are a no-op and return false.
func (s *Store) TransitionStage(id string, stage Stage) (bool, error) {
	if !stage.Valid() {
		return false, errors.NewInvalidRequest("stage must be one of: Lead, Contacted, Proposal sent, Closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID == id {
			s.clients[i].Stage = stage
			return true, nil
		}
	}
	return false, nil
}

// Reorder moves client fromID to the position of toID. See Move.
func (s *Store) Reorder(fromID, toID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := Move(s.clients, fromID, toID)
	if ok {
		s.clients = out
	}
	return ok
}

// Get returns a copy of client id.
func (s *Store) Get(id string) (*ClientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.clients {
		if r.ID == id {
			out := r.clone()
			return &out, nil
		}
	}
	return nil, errors.NewNotFound("client", id)
}

// Select marks client id as the one shown in the detail view.
func (s *Store) Select(id string) (*ClientRecord, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	return rec, nil
}

// Selected returns the client shown in the detail view, or nil.
func (s *Store) Selected() *ClientRecord {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	rec, err := s.Get(id)
	if err != nil {
		return nil
	}
	return rec
}

// ByStage groups the collection into pipeline lanes.
func (s *Store) ByStage() []StageColumn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ByStage(s.clients)
}

// Stats aggregates the collection.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.clients, s.now())
}

func cloneAll(records []ClientRecord) []ClientRecord {
	out := make([]ClientRecord, len(records))
	for i, r := range records {
		out[i] = r.clone()
	}
	return out
}
