// Package ops holds the client operations shared by the CLI and the MCP
// tools. Every operation runs against the registry database and reuses the
// pure crm functions for filtering, paging and statistics.
package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/funnelmkt/internal/analytics"
	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/db"
	"github.com/hpungsan/funnelmkt/internal/errors"
)

// Paging limits
const (
	MaxPageSize = 100
)

// ItemsOutput is a filtered, unpaged client view.
type ItemsOutput struct {
	Items []crm.ClientRecord `json:"items"`
	Total int                `json:"total"`
}

// Create validates payload and stores a new Lead at the end of the order.
func Create(ctx context.Context, database *sql.DB, payload crm.Payload) (*crm.ClientRecord, error) {
	return db.NewClients(database).CreateClient(ctx, payload)
}

// Fetch returns one client.
func Fetch(ctx context.Context, database *sql.DB, id string) (*crm.ClientRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	return db.GetByID(ctx, database, id)
}

// ListInput contains parameters for the List operation.
type ListInput struct {
	Query    string
	Page     int // 1-based, clamped
	PageSize int // default: config page size, max: MaxPageSize
}

// List pages through the clients matching Query in presentation order.
func List(ctx context.Context, database *sql.DB, defaultSize int, input ListInput) (*crm.Page, error) {
	size := input.PageSize
	if size <= 0 {
		size = defaultSize
	}
	size = min(size, MaxPageSize)

	records, err := db.List(ctx, database)
	if err != nil {
		return nil, err
	}
	page := crm.Paginate(crm.Search(records, input.Query), input.Page, size)
	return &page, nil
}

// Search returns every client matching query.
func Search(ctx context.Context, database *sql.DB, query string) (*ItemsOutput, error) {
	records, err := db.List(ctx, database)
	if err != nil {
		return nil, err
	}
	items := crm.Search(records, query)
	return &ItemsOutput{Items: items, Total: len(items)}, nil
}

// Segment returns every client matching pred.
func Segment(ctx context.Context, database *sql.DB, pred crm.SegmentPredicate) (*ItemsOutput, error) {
	records, err := db.List(ctx, database)
	if err != nil {
		return nil, err
	}
	items := crm.Segment(records, pred)
	return &ItemsOutput{Items: items, Total: len(items)}, nil
}

// Stage moves client id to the named stage and returns the updated record.
// Names are matched leniently ("proposal_sent"); any stage may follow any
// other.
func Stage(ctx context.Context, database *sql.DB, id, name string) (*crm.ClientRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	stage, ok := crm.ParseStage(name)
	if !ok {
		return nil, errors.NewInvalidRequest("stage must be one of: Lead, Contacted, Proposal sent, Closed")
	}
	if err := db.UpdateStage(ctx, database, id, stage); err != nil {
		return nil, err
	}
	return db.GetByID(ctx, database, id)
}

// ReorderOutput reports whether the order changed.
type ReorderOutput struct {
	Moved bool `json:"moved"`
}

// Reorder moves fromID to the position of toID. Unknown or equal ids leave
// the order unchanged.
func Reorder(ctx context.Context, database *sql.DB, fromID, toID string) (*ReorderOutput, error) {
	moved, err := db.Reorder(ctx, database, fromID, toID)
	if err != nil {
		return nil, err
	}
	return &ReorderOutput{Moved: moved}, nil
}

// StatsOutput is the pipeline summary with its headline cards.
type StatsOutput struct {
	Stats crm.Stats        `json:"stats"`
	Cards []analytics.Card `json:"cards"`
}

// Stats aggregates every client as of now.
func Stats(ctx context.Context, database *sql.DB, now time.Time) (*StatsOutput, error) {
	records, err := db.List(ctx, database)
	if err != nil {
		return nil, err
	}
	stats := crm.ComputeStats(records, now)
	return &StatsOutput{Stats: stats, Cards: analytics.Cards(stats)}, nil
}
