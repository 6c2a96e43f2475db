package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/errors"
)

const clientColumns = `
	id, full_name, job_title, email, phone,
	company_name, industry, company_size, years_in_market, website, social_media,
	general_goal, specific_goals, obstacles, prior_results,
	location, interests_json, purchase_behavior,
	priority, channels_json, last_interaction, stage, created_at
`

// Insert stores a new client at the end of the presentation order.
func Insert(ctx context.Context, db *sql.DB, c *crm.ClientRecord) error {
	interests, err := marshalList(c.Interests)
	if err != nil {
		return errors.NewInternal(err)
	}
	channels, err := marshalList(c.ContactChannels)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO clients (
			id, position, full_name, job_title, email, phone,
			company_name, industry, company_size, years_in_market, website, social_media,
			general_goal, specific_goals, obstacles, prior_results,
			location, interests_json, purchase_behavior,
			priority, channels_json, last_interaction, stage, created_at, updated_at
		) VALUES (
			?, (SELECT COALESCE(MAX(position), 0) + 1 FROM clients), ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?, ?, ?
		)
	`
	_, err = db.ExecContext(ctx, query,
		c.ID, c.FullName, c.Position, c.Email, c.Phone,
		c.CompanyName, c.Industry, string(c.CompanySize), c.YearsInMarket, c.Website, c.SocialMedia,
		c.GeneralGoal, c.SpecificGoals, c.Obstacles, c.PriorResults,
		c.Location, interests, c.PurchaseBehavior,
		string(c.Priority), channels, c.LastInteraction, string(c.Stage), c.CreatedAt, c.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetByID retrieves a client by id.
func GetByID(ctx context.Context, db *sql.DB, id string) (*crm.ClientRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("client", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// List returns every client in presentation order.
func List(ctx context.Context, db *sql.DB) ([]crm.ClientRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []crm.ClientRecord{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// Count returns the number of stored clients.
func Count(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// UpdateStage sets the stage of a client. Nothing else changes.
func UpdateStage(ctx context.Context, db *sql.DB, id string, stage crm.Stage) error {
	result, err := db.ExecContext(ctx,
		`UPDATE clients SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().Unix(), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("client", id)
	}
	return nil
}

// Reorder moves client fromID to the position held by toID and renumbers
// the whole order in one transaction. Returns false when either id is
// unknown or they are equal.
func Reorder(ctx context.Context, db *sql.DB, fromID, toID string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM clients ORDER BY position ASC, id ASC`)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	var order []crm.ClientRecord
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return false, errors.NewInternal(err)
		}
		order = append(order, crm.ClientRecord{ID: id})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, errors.NewInternal(err)
	}

	moved, ok := crm.Move(order, fromID, toID)
	if !ok {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE clients SET position = ? WHERE id = ?`)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	defer stmt.Close()
	for i, c := range moved {
		if _, err := stmt.ExecContext(ctx, i+1, c.ID); err != nil {
			return false, errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanClient scans a single row into a ClientRecord.
func scanClient(row scanner) (*crm.ClientRecord, error) {
	var (
		c         crm.ClientRecord
		size      string
		priority  string
		stage     string
		interests string
		channels  string
	)
	err := row.Scan(
		&c.ID, &c.FullName, &c.Position, &c.Email, &c.Phone,
		&c.CompanyName, &c.Industry, &size, &c.YearsInMarket, &c.Website, &c.SocialMedia,
		&c.GeneralGoal, &c.SpecificGoals, &c.Obstacles, &c.PriorResults,
		&c.Location, &interests, &c.PurchaseBehavior,
		&priority, &channels, &c.LastInteraction, &stage, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CompanySize = crm.CompanySize(size)
	c.Priority = crm.Priority(priority)
	c.Stage = crm.Stage(stage)
	if err := json.Unmarshal([]byte(interests), &c.Interests); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(channels), &c.ContactChannels); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
