package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "reg_stock_movements"

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository. The table is append-only.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewStockRepo creates a new movement log repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[entity.StockMovement](),
	}
}

// CreateMovement appends a movement; the database assigns Sequence.
func (r *StockRepo) CreateMovement(ctx context.Context, m *entity.StockMovement) error {
	sql, args, err := r.builder.Insert(stockMovementsTable).
		SetMap(postgres.InsertMap(m, "seq")).
		Suffix("RETURNING seq").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&m.Sequence); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements returns movements newest first.
func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	q := r.builder.Select(r.columns...).
		From(stockMovementsTable).
		OrderBy("seq DESC")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.RecorderID != nil {
		q = q.Where(squirrel.Eq{"recorder_id": *filter.RecorderID})
	}
	if filter.RecordType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.RecordType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"occurred_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// SumByProduct replays ENTRY - EXIT for a product.
func (r *StockRepo) SumByProduct(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql, args, err := r.builder.Select(
		"COALESCE(SUM(CASE WHEN movement_type = 'EXIT' THEN -quantity ELSE quantity END), 0)::BIGINT",
	).From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var sum int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return types.Quantity(sum), nil
}
