package test_utils

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertReturningId runs an INSERT ... RETURNING id and fails the test on error.
func InsertReturningId(t *testing.T, db *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(), query, args...).Scan(&id)
	require.NoError(t, err)
	return id
}

func InsertProject(t *testing.T, db *pgxpool.Pool, name string) int {
	t.Helper()
	return InsertReturningId(t, db, `INSERT INTO projects (name) VALUES ($1) RETURNING id`, name)
}

// InsertPhase stores a phase whose budget is the given total with no category split.
func InsertPhase(t *testing.T, db *pgxpool.Pool, projectId int, name string, budgetTotal string) int {
	t.Helper()
	return InsertReturningId(t, db,
		`INSERT INTO phases (project_id, name, budget_allocation)
		 VALUES ($1, $2, jsonb_build_object('total', $3::text, 'byCategory', '{}'::jsonb)) RETURNING id`,
		projectId, name, budgetTotal)
}
