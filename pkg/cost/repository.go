package cost

import (
	"context"
	"fmt"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Reader sums approved, non-deleted cost records of one category for a phase.
// A phase without records yields zero; storage failures are returned, never zeroed.
type Reader interface {
	SumApproved(ctx context.Context, phaseId int, category Category) (decimal.Decimal, error)
	Tally(ctx context.Context, phaseId int, category Category) (Tally, error)
	MonthlyTotals(ctx context.Context, phaseId int, category Category) ([]MonthlyAmount, error)
	// RoleBreakdown is only available for labour and professional services.
	RoleBreakdown(ctx context.Context, phaseId int, category Category) (RoleBreakdown, error)
}

type source struct {
	table        string
	amountColumn string
	dateColumn   string
	roleColumn   string
	extraFilter  string
}

var sources = map[Category]source{
	Materials:            {table: "materials", amountColumn: "total_cost", dateColumn: "created_at"},
	Expenses:             {table: "expenses", amountColumn: "amount", dateColumn: "expense_date", extraFilter: " AND is_indirect_cost = false"},
	Labour:               {table: "labour_entries", amountColumn: "total_cost", dateColumn: "work_date", roleColumn: "worker_role"},
	Equipment:            {table: "equipment", amountColumn: "total_cost", dateColumn: "start_date"},
	Subcontractors:       {table: "subcontractors", amountColumn: "contract_value", dateColumn: "start_date"},
	ProfessionalServices: {table: "professional_service_assignments", amountColumn: "total_fees", dateColumn: "created_at", roleColumn: "service_role"},
}

func (s source) where() string {
	return "phase_id = $1 AND status = ANY($2) AND deleted_at IS NULL" + s.extraFilter
}

func sourceFor(category Category) (source, error) {
	s, ok := sources[category]
	if !ok {
		return source{}, apperrors.Validation("unknown cost category %q", category)
	}
	return s, nil
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) SumApproved(ctx context.Context, phaseId int, category Category) (decimal.Decimal, error) {
	src, err := sourceFor(category)
	if err != nil {
		return decimal.Zero, err
	}

	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s), 0) FROM %s WHERE %s`, src.amountColumn, src.table, src.where())

	var total decimal.Decimal
	err = r.db.QueryRow(ctx, query, phaseId, ApprovedStatuses(category)).Scan(&total)
	if err != nil {
		err = fmt.Errorf("could not sum %s for phase %d: %w", category, phaseId, err)
		log.Error(err)
		return decimal.Zero, err
	}
	return total, nil
}

func (r *RepositoryImpl) Tally(ctx context.Context, phaseId int, category Category) (Tally, error) {
	src, err := sourceFor(category)
	if err != nil {
		return Tally{}, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(%s), 0) FROM %s WHERE %s`, src.amountColumn, src.table, src.where())

	tally := Tally{Category: category}
	err = r.db.QueryRow(ctx, query, phaseId, ApprovedStatuses(category)).Scan(&tally.Count, &tally.Total)
	if err != nil {
		err = fmt.Errorf("could not tally %s for phase %d: %w", category, phaseId, err)
		log.Error(err)
		return Tally{}, err
	}
	return tally, nil
}

func (r *RepositoryImpl) MonthlyTotals(ctx context.Context, phaseId int, category Category) ([]MonthlyAmount, error) {
	src, err := sourceFor(category)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT date_trunc('month', %[1]s AT TIME ZONE 'UTC') AS month, COALESCE(SUM(%[2]s), 0)
		FROM %[3]s WHERE %[4]s
		GROUP BY month ORDER BY month`, src.dateColumn, src.amountColumn, src.table, src.where())

	rows, err := r.db.Query(ctx, query, phaseId, ApprovedStatuses(category))
	if err != nil {
		err = fmt.Errorf("could not load monthly %s for phase %d: %w", category, phaseId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var months []MonthlyAmount
	for rows.Next() {
		var month time.Time
		var amount decimal.Decimal
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, fmt.Errorf("could not scan monthly %s: %w", category, err)
		}
		months = append(months, MonthlyAmount{
			Month:  time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC),
			Amount: amount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read monthly %s: %w", category, err)
	}
	return months, nil
}

func (r *RepositoryImpl) RoleBreakdown(ctx context.Context, phaseId int, category Category) (RoleBreakdown, error) {
	src, err := sourceFor(category)
	if err != nil {
		return RoleBreakdown{}, err
	}
	if src.roleColumn == "" {
		return RoleBreakdown{}, apperrors.Validation("category %s has no role breakdown", category)
	}

	query := fmt.Sprintf(`SELECT %[1]s, COUNT(*), COALESCE(SUM(%[2]s), 0)
		FROM %[3]s WHERE %[4]s
		GROUP BY %[1]s ORDER BY %[1]s`, src.roleColumn, src.amountColumn, src.table, src.where())

	rows, err := r.db.Query(ctx, query, phaseId, ApprovedStatuses(category))
	if err != nil {
		err = fmt.Errorf("could not load %s breakdown for phase %d: %w", category, phaseId, err)
		log.Error(err)
		return RoleBreakdown{}, err
	}
	defer rows.Close()

	breakdown := RoleBreakdown{Category: category, Total: decimal.Zero, ByRole: map[string]decimal.Decimal{}}
	for rows.Next() {
		var role string
		var count int
		var amount decimal.Decimal
		if err := rows.Scan(&role, &count, &amount); err != nil {
			return RoleBreakdown{}, fmt.Errorf("could not scan %s breakdown: %w", category, err)
		}
		breakdown.ByRole[role] = amount
		breakdown.Count += count
		breakdown.Total = breakdown.Total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return RoleBreakdown{}, fmt.Errorf("could not read %s breakdown: %w", category, err)
	}
	return breakdown, nil
}
