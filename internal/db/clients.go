package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/errors"
)

// Clients is the registry backed by the local database. It is what the
// registry service, the CLI and the MCP tools create clients through.
type Clients struct {
	db  *sql.DB
	now func() time.Time
}

// NewClients wraps an open database.
func NewClients(db *sql.DB) *Clients {
	return &Clients{db: db, now: time.Now}
}

// DB returns the underlying handle.
func (c *Clients) DB() *sql.DB { return c.db }

// CreateClient validates payload, assigns id, stage Lead and no interaction,
// and stores it last in order. Implements crm.Registry.
func (c *Clients) CreateClient(ctx context.Context, payload crm.Payload) (*crm.ClientRecord, error) {
	if fields := payload.Validate(); len(fields) > 0 {
		return nil, errors.NewValidationFailed(fields)
	}
	rec, err := crm.NewRecord(payload, c.now())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := Insert(ctx, c.db, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
