package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Lead struct {
	ID         string
	UserID     string
	Name       string
	Email      string
	Website    string
	Phone      string
	Niche      string
	Source     string
	Status     string
	IsUnlocked bool
	CreatedAt  time.Time
}

// SaveLead inserts a lead unless the user already has one with the same
// email, or failing that the same website. It reports whether a row was
// inserted.
func (s *Store) SaveLead(ctx context.Context, l Lead) (bool, error) {
	if l.UserID == "" {
		return false, fmt.Errorf("save lead: user id required")
	}
	if l.Name == "" {
		l.Name = "Unknown Business"
	}
	if l.Source == "" {
		l.Source = "web_search"
	}
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO leads (user_id, name, email, website, phone, niche, source, is_unlocked)
SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::boolean
WHERE NOT EXISTS (
    SELECT 1 FROM leads
    WHERE user_id=$1
      AND (($3::text <> '' AND email=$3::text) OR ($4::text <> '' AND website=$4::text))
)
RETURNING id::text`, l.UserID, l.Name, l.Email, l.Website, l.Phone, l.Niche, l.Source, l.IsUnlocked).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("save lead: %w", err)
	}
	return true, nil
}

// ListRecentLeads returns the user's newest leads.
func (s *Store) ListRecentLeads(ctx context.Context, userID string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id::text, user_id::text, name, email, website, phone, niche, source, status, is_unlocked, created_at
FROM leads
WHERE user_id=$1
ORDER BY created_at DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()
	var out []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Email, &l.Website, &l.Phone, &l.Niche,
			&l.Source, &l.Status, &l.IsUnlocked, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
