package cost

import (
	"context"
	"os"
	"testing"

	"github.com/buildledger/buildledger/internal/test_utils"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
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

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, *pgxpool.Pool, int) {
	if dbErr != nil {
		t.Skipf("postgres unavailable: %v", dbErr)
	}
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(ctx))
	})
	projectId := test_utils.InsertProject(t, db, "Tower A")
	phaseId := test_utils.InsertPhase(t, db, projectId, "Structure", "100000")
	return ctx, NewRepository(db), db, phaseId
}

func TestRepositoryImpl_Tally(t *testing.T) {
	t.Run("should return zero for a phase without records", func(t *testing.T) {
		// given
		ctx, repo, _, phaseId := setupTestRepository(t)

		for _, c := range Categories {
			// when
			tally, err := repo.Tally(ctx, phaseId, c)

			// then
			require.NoError(t, err)
			require.Equal(t, 0, tally.Count)
			assertAmount(t, "0", tally.Total)
		}
	})

	t.Run("should sum only approved live direct expenses", func(t *testing.T) {
		// given
		ctx, repo, db, phaseId := setupTestRepository(t)
		_, err := db.Exec(ctx, `INSERT INTO expenses (phase_id, amount, status, is_indirect_cost, deleted_at) VALUES
			($1, 100.25, 'APPROVED', false, NULL),
			($1, 50.00, 'PAID', false, NULL),
			($1, 900.00, 'PENDING', false, NULL),
			($1, 900.00, 'APPROVED', true, NULL),
			($1, 900.00, 'APPROVED', false, now())`, phaseId)
		require.NoError(t, err)

		// when
		tally, err := repo.Tally(ctx, phaseId, Expenses)
		require.NoError(t, err)
		sum, err := repo.SumApproved(ctx, phaseId, Expenses)
		require.NoError(t, err)

		// then
		require.Equal(t, 2, tally.Count)
		assertAmount(t, "150.25", tally.Total)
		assertAmount(t, "150.25", sum)
	})
}

func TestRepositoryImpl_MonthlyTotals(t *testing.T) {
	t.Run("should bucket subcontract values per month", func(t *testing.T) {
		// given
		ctx, repo, db, phaseId := setupTestRepository(t)
		_, err := db.Exec(ctx, `INSERT INTO subcontractors (phase_id, company_name, contract_value, status, start_date) VALUES
			($1, 'Steelworks', 1000, 'active', '2026-02-10T00:00:00Z'),
			($1, 'Glaziers', 500, 'completed', '2026-02-25T00:00:00Z'),
			($1, 'Roofers', 700, 'active', '2026-04-01T00:00:00Z'),
			($1, 'Painters', 300, 'pending', '2026-04-01T00:00:00Z')`, phaseId)
		require.NoError(t, err)

		// when
		months, err := repo.MonthlyTotals(ctx, phaseId, Subcontractors)

		// then
		require.NoError(t, err)
		require.Len(t, months, 2)
		require.Equal(t, 2, int(months[0].Month.Month()))
		assertAmount(t, "1500", months[0].Amount)
		require.Equal(t, 4, int(months[1].Month.Month()))
		assertAmount(t, "700", months[1].Amount)
	})
}

func TestRepositoryImpl_RoleBreakdown(t *testing.T) {
	t.Run("should group labour by worker role", func(t *testing.T) {
		// given
		ctx, repo, db, phaseId := setupTestRepository(t)
		_, err := db.Exec(ctx, `INSERT INTO labour_entries (phase_id, worker_role, hours, total_cost, status) VALUES
			($1, 'mason', 8, 320, 'approved'),
			($1, 'mason', 4, 160, 'paid'),
			($1, 'electrician', 6, 300, 'approved'),
			($1, 'electrician', 6, 300, 'rejected')`, phaseId)
		require.NoError(t, err)

		// when
		breakdown, err := repo.RoleBreakdown(ctx, phaseId, Labour)

		// then
		require.NoError(t, err)
		require.Equal(t, 3, breakdown.Count)
		assertAmount(t, "780", breakdown.Total)
		assertAmount(t, "480", breakdown.ByRole["mason"])
		assertAmount(t, "300", breakdown.ByRole["electrician"])
	})
}
