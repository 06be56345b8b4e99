package commitment

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrPurchaseOrderNotFound = fmt.Errorf("purchase order %w", apperrors.ErrNotFound)

type Repository interface {
	// ListOpenPurchaseOrders returns the phase's orders in a committed status.
	ListOpenPurchaseOrders(ctx context.Context, phaseId int) ([]PurchaseOrder, error)
	// ListPipelineRequests returns the phase's material requests in an estimated status.
	ListPipelineRequests(ctx context.Context, phaseId int) ([]MaterialRequest, error)
	MarkPurchaseOrderReceived(ctx context.Context, phaseId, purchaseOrderId int) (PurchaseOrder, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) ListOpenPurchaseOrders(ctx context.Context, phaseId int) ([]PurchaseOrder, error) {
	query := `SELECT id, phase_id, po_number, total_amount, status
		FROM purchase_orders
		WHERE phase_id = $1 AND status = ANY($2) AND deleted_at IS NULL
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, phaseId, CommittedStatuses())
	if err != nil {
		err = fmt.Errorf("could not list purchase orders for phase %d: %w", phaseId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		var status string
		if err := rows.Scan(&po.Id, &po.PhaseId, &po.Number, &po.TotalAmount, &status); err != nil {
			return nil, fmt.Errorf("could not scan purchase order: %w", err)
		}
		po.Status = PurchaseOrderStatus(status)
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read purchase orders: %w", err)
	}
	return orders, nil
}

func (r *RepositoryImpl) ListPipelineRequests(ctx context.Context, phaseId int) ([]MaterialRequest, error) {
	query := `SELECT id, phase_id, estimated_cost, estimated_unit_cost, quantity_needed, status
		FROM material_requests
		WHERE phase_id = $1 AND status = ANY($2) AND deleted_at IS NULL
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, phaseId, EstimatedStatuses())
	if err != nil {
		err = fmt.Errorf("could not list material requests for phase %d: %w", phaseId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var requests []MaterialRequest
	for rows.Next() {
		var mr MaterialRequest
		var status string
		var estimated, unitCost decimal.NullDecimal
		if err := rows.Scan(&mr.Id, &mr.PhaseId, &estimated, &unitCost, &mr.QuantityNeeded, &status); err != nil {
			return nil, fmt.Errorf("could not scan material request: %w", err)
		}
		if estimated.Valid {
			mr.EstimatedCost = &estimated.Decimal
		}
		if unitCost.Valid {
			mr.EstimatedUnitCost = &unitCost.Decimal
		}
		mr.Status = MaterialRequestStatus(status)
		requests = append(requests, mr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read material requests: %w", err)
	}
	return requests, nil
}

func (r *RepositoryImpl) MarkPurchaseOrderReceived(ctx context.Context, phaseId, purchaseOrderId int) (PurchaseOrder, error) {
	query := `UPDATE purchase_orders SET status = $3
		WHERE id = $1 AND phase_id = $2 AND deleted_at IS NULL
		RETURNING id, phase_id, po_number, total_amount, status`

	var po PurchaseOrder
	var status string
	err := r.db.QueryRow(ctx, query, purchaseOrderId, phaseId, string(POReceived)).
		Scan(&po.Id, &po.PhaseId, &po.Number, &po.TotalAmount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrPurchaseOrderNotFound
		}
		err = fmt.Errorf("could not mark purchase order %d received: %w", purchaseOrderId, err)
		log.Error(err)
		return PurchaseOrder{}, err
	}
	po.Status = PurchaseOrderStatus(status)
	return po, nil
}
