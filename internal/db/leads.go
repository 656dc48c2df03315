package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Lead is a business contact row.
type Lead struct {
	ID        int
	Name      string
	Website   string
	Emails    string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeadUpdate carries the lead fields to change. Nil fields are left untouched.
type LeadUpdate struct {
	Name   *string
	Emails *string
	Source *string
}

// InsertLead stores a lead, ignoring duplicates on website.
func (d *DB) InsertLead(ctx context.Context, lead *Lead) error {
	_, err := d.client.ExecContext(ctx, `
		INSERT INTO leads (name, website, emails, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (website) DO NOTHING
	`, lead.Name, lead.Website, lead.Emails, lead.Source)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// UpdateLead applies the non-nil fields of update to the lead identified by
// website.
func (d *DB) UpdateLead(ctx context.Context, website string, update LeadUpdate) error {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{website}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		appendSet("name", *update.Name)
	}
	if update.Emails != nil {
		appendSet("emails", *update.Emails)
	}
	if update.Source != nil {
		appendSet("source", *update.Source)
	}

	query := fmt.Sprintf("UPDATE leads SET %s WHERE website = $1", strings.Join(setClauses, ", "))
	result, err := d.client.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("no lead found for website %s", website)
	}
	return nil
}

// UpdateLeadEmails records discovered emails against a lead's website.
func (d *DB) UpdateLeadEmails(ctx context.Context, website, emails string) error {
	result, err := d.client.ExecContext(ctx, `
		UPDATE leads SET emails = $1, updated_at = NOW() WHERE website = $2
	`, emails, website)
	if err != nil {
		return fmt.Errorf("failed to update lead emails: %w", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("no lead found for website %s", website)
	}
	return nil
}

// GetLeadsWithWebsite returns leads that have a website but no recorded
// emails yet, oldest first.
func (d *DB) GetLeadsWithWebsite(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := d.client.QueryContext(ctx, `
		SELECT id, COALESCE(name, ''), website, COALESCE(emails, ''), COALESCE(source, ''), created_at, updated_at
		FROM leads
		WHERE website <> '' AND (emails IS NULL OR emails = '')
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(&lead.ID, &lead.Name, &lead.Website, &lead.Emails, &lead.Source, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// GetLead returns the lead for a website, or nil when none exists.
func (d *DB) GetLead(ctx context.Context, website string) (*Lead, error) {
	lead := &Lead{}
	err := d.client.QueryRowContext(ctx, `
		SELECT id, COALESCE(name, ''), website, COALESCE(emails, ''), COALESCE(source, ''), created_at, updated_at
		FROM leads
		WHERE website = $1
	`, website).Scan(&lead.ID, &lead.Name, &lead.Website, &lead.Emails, &lead.Source, &lead.CreatedAt, &lead.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lead: %w", err)
	}
	return lead, nil
}
