package directory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinel-iga/sentinel/internal/mining"
	"github.com/sentinel-iga/sentinel/internal/platform/db"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads the identity snapshot tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repo over the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns every directory user.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	return listUsers(ctx, r.pool)
}

// ListRoleAssignments returns user -> role name pairs.
func (r *Repository) ListRoleAssignments(ctx context.Context) (map[string][]string, error) {
	return listRoleAssignments(ctx, r.pool)
}

// ListGrants returns every raw permission grant.
func (r *Repository) ListGrants(ctx context.Context) ([]Grant, error) {
	return listGrants(ctx, r.pool)
}

// Snapshot assembles the full population into mining access records. The
// three tables are read inside one repeatable-read transaction so the
// snapshot is internally consistent.
func (r *Repository) Snapshot(ctx context.Context) ([]mining.AccessRecord, error) {
	var records []mining.AccessRecord
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		users, err := listUsers(ctx, tx)
		if err != nil {
			return err
		}
		roles, err := listRoleAssignments(ctx, tx)
		if err != nil {
			return err
		}
		grants, err := listGrants(ctx, tx)
		if err != nil {
			return err
		}
		records = BuildRecords(users, roles, grants)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func listUsers(ctx context.Context, q querier) ([]User, error) {
	rows, err := q.Query(ctx, `SELECT user_id, COALESCE(department, ''), COALESCE(job_title, ''), created_at, updated_at FROM directory_users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Department, &u.JobTitle, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func listRoleAssignments(ctx context.Context, q querier) (map[string][]string, error) {
	rows, err := q.Query(ctx, `SELECT user_id, role_name FROM directory_user_roles ORDER BY user_id, role_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make(map[string][]string)
	for rows.Next() {
		var userID, role string
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		assignments[userID] = append(assignments[userID], role)
	}
	return assignments, rows.Err()
}

func listGrants(ctx context.Context, q querier) ([]Grant, error) {
	rows, err := q.Query(ctx, `SELECT user_id, COALESCE(system, ''), COALESCE(object_type, ''), object_name, COALESCE(field, ''), COALESCE(value, '') FROM directory_user_permissions ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.UserID, &g.System, &g.ObjectType, &g.ObjectName, &g.Field, &g.Value); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// BuildRecords merges users, role assignments and grants into access
// records. Grants referencing unknown users are ignored.
func BuildRecords(users []User, roles map[string][]string, grants []Grant) []mining.AccessRecord {
	byUser := make(map[string]int, len(users))
	records := make([]mining.AccessRecord, len(users))
	for i, u := range users {
		records[i] = mining.AccessRecord{
			UserID:     u.UserID,
			Department: u.Department,
			JobTitle:   u.JobTitle,
			Roles:      roles[u.UserID],
		}
		byUser[u.UserID] = i
	}
	for _, g := range grants {
		i, ok := byUser[g.UserID]
		if !ok {
			continue
		}
		records[i].Permissions = append(records[i].Permissions, mining.PermissionGrant{
			Permission: mining.Permission{
				System:     g.System,
				ObjectType: g.ObjectType,
				ObjectName: g.ObjectName,
				Field:      g.Field,
				Value:      g.Value,
			},
		})
	}
	return records
}
