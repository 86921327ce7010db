package sod

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads conflict rules from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repo over the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActiveRules returns all active conflict rules ordered by id.
func (r *Repository) ListActiveRules(ctx context.Context) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, permission_a, permission_b, severity, COALESCE(description, ''), active FROM sod_rules WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.PermissionA, &rule.PermissionB, &rule.Severity, &rule.Description, &rule.Active); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// InsertRule stores a new conflict rule and returns its id.
func (r *Repository) InsertRule(ctx context.Context, rule Rule) (int64, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sod_rules (permission_a, permission_b, severity, description, active) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		rule.PermissionA, rule.PermissionB, rule.Severity, rule.Description, rule.Active,
	).Scan(&id)
	return id, err
}
