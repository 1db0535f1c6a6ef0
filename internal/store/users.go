package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Subscription tiers.
const (
	TierFree     = "free"
	TierPro      = "pro"
	TierBusiness = "business"
)

type User struct {
	ID               string
	Email            string
	SubscriptionTier string
	AutomationsCount int
	CreatedAt        time.Time
}

// CreateUser inserts a user and returns it with generated fields.
func (s *Store) CreateUser(ctx context.Context, email, tier string) (User, error) {
	if tier == "" {
		tier = TierFree
	}
	u := User{Email: email, SubscriptionTier: tier}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO users (email, subscription_tier) VALUES ($1,$2)
RETURNING id::text, created_at`, email, tier).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx, `
SELECT id::text, email, subscription_tier, automations_count, created_at
FROM users WHERE id=$1`, id).Scan(&u.ID, &u.Email, &u.SubscriptionTier, &u.AutomationsCount, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// IncrementAutomationsCount bumps the per-user run counter.
func (s *Store) IncrementAutomationsCount(ctx context.Context, userID string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET automations_count = automations_count + 1 WHERE id=$1`, userID)
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("increment automations count %s: %w", userID, err)
	}
	return nil
}
