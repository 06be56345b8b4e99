package phase

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/internal/test_utils"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool
var dbErr error

func TestMain(m *testing.M) {
	pgContainer, openDb, dbErr = test_utils.TestWithDB()
	if dbErr != nil {
		log.Warnf("repository tests will be skipped: %v", dbErr)
	}
	code := m.Run()
	if pgContainer != nil {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			log.Errorf("failed to terminate container: %s", err)
		}
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, *pgxpool.Pool) {
	if dbErr != nil {
		t.Skipf("postgres unavailable: %v", dbErr)
	}
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(ctx))
	})
	return ctx, NewRepository(db), db
}

func snapshot(actual string) FinancialSnapshot {
	return FinancialSnapshot{
		ActualSpending: ActualSpending{
			Total:      dec(actual),
			ByCategory: map[cost.Category]decimal.Decimal{cost.Materials: dec(actual)},
		},
		FinancialStates: FinancialStates{
			Budgeted:  dec("100000"),
			Estimated: dec("0"),
			Committed: dec("0"),
			Actual:    dec(actual),
			Remaining: dec("100000").Sub(dec(actual)),
		},
		ProfessionalServices: ProfessionalServicesSnapshot{TotalFees: dec("0"), FeesByRole: map[string]decimal.Decimal{}},
		CategoryBreakdown:    []cost.Tally{{Category: cost.Materials, Count: 1, Total: dec(actual)}},
		RecalculatedAt:       time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestRepositoryImpl_GetPhase(t *testing.T) {
	t.Run("should load a phase with an uncalculated cache", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		projectId := test_utils.InsertProject(t, db, "Tower A")
		phaseId := test_utils.InsertPhase(t, db, projectId, "Structure", "100000")

		// when
		p, err := repo.GetPhase(ctx, phaseId)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Structure", p.Name)
		assert.Equal(t, projectId, p.ProjectId)
		assert.True(t, dec("100000").Equal(p.BudgetAllocation.Total))
		assert.Nil(t, p.FinancialStates)
		assert.Nil(t, p.LastRecalculatedAt)
		assert.Equal(t, 0, p.Version)
	})

	t.Run("should hide soft-deleted phases", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		projectId := test_utils.InsertProject(t, db, "Tower A")
		phaseId := test_utils.InsertPhase(t, db, projectId, "Structure", "100000")
		_, err := db.Exec(ctx, `UPDATE phases SET deleted_at = now() WHERE id = $1`, phaseId)
		require.NoError(t, err)

		// when
		_, err = repo.GetPhase(ctx, phaseId)

		// then
		assert.ErrorIs(t, err, ErrPhaseNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestRepositoryImpl_ListByProject(t *testing.T) {
	t.Run("should list live phases in id order", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		projectId := test_utils.InsertProject(t, db, "Tower A")
		first := test_utils.InsertPhase(t, db, projectId, "Substructure", "50000")
		second := test_utils.InsertPhase(t, db, projectId, "Superstructure", "80000")
		deleted := test_utils.InsertPhase(t, db, projectId, "Cancelled", "1")
		_, err := db.Exec(ctx, `UPDATE phases SET deleted_at = now() WHERE id = $1`, deleted)
		require.NoError(t, err)

		// when
		phases, err := repo.ListByProject(ctx, projectId)

		// then
		require.NoError(t, err)
		require.Len(t, phases, 2)
		assert.Equal(t, first, phases[0].Id)
		assert.Equal(t, second, phases[1].Id)
	})

	t.Run("should report a missing project", func(t *testing.T) {
		ctx, repo, _ := setupTestRepository(t)

		_, err := repo.ListByProject(ctx, 999)

		assert.ErrorIs(t, err, ErrProjectNotFound)
	})
}

func TestRepositoryImpl_UpdateFinancials(t *testing.T) {
	t.Run("should write the snapshot and bump the version", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		projectId := test_utils.InsertProject(t, db, "Tower A")
		phaseId := test_utils.InsertPhase(t, db, projectId, "Structure", "100000")

		// when
		updated, err := repo.UpdateFinancials(ctx, phaseId, 0, snapshot("30000"))
		require.NoError(t, err)
		reloaded, err := repo.GetPhase(ctx, phaseId)
		require.NoError(t, err)

		// then
		assert.Equal(t, 1, updated.Version)
		assert.Equal(t, 1, reloaded.Version)
		require.NotNil(t, reloaded.FinancialStates)
		assert.True(t, dec("30000").Equal(reloaded.FinancialStates.Actual))
		assert.True(t, dec("70000").Equal(reloaded.FinancialStates.Remaining))
		assert.True(t, dec("30000").Equal(reloaded.ActualSpending.ByCategory[cost.Materials]))
		require.Len(t, reloaded.CategoryBreakdown, 1)
		assert.Equal(t, cost.Materials, reloaded.CategoryBreakdown[0].Category)
		require.NotNil(t, reloaded.LastRecalculatedAt)
		assert.True(t, reloaded.LastRecalculatedAt.Equal(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("should reject a stale version", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		projectId := test_utils.InsertProject(t, db, "Tower A")
		phaseId := test_utils.InsertPhase(t, db, projectId, "Structure", "100000")
		_, err := repo.UpdateFinancials(ctx, phaseId, 0, snapshot("30000"))
		require.NoError(t, err)

		// when
		_, err = repo.UpdateFinancials(ctx, phaseId, 0, snapshot("99999"))

		// then
		assert.ErrorIs(t, err, ErrStaleVersion)
		reloaded, err := repo.GetPhase(ctx, phaseId)
		require.NoError(t, err)
		assert.True(t, dec("30000").Equal(reloaded.FinancialStates.Actual))
	})

	t.Run("should report a missing phase instead of a stale version", func(t *testing.T) {
		ctx, repo, _ := setupTestRepository(t)

		_, err := repo.UpdateFinancials(ctx, 999, 0, snapshot("1"))

		assert.ErrorIs(t, err, ErrPhaseNotFound)
	})
}
