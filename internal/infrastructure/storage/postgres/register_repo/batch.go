// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const stockBatchesTable = "reg_stock_batches"

// fifoOrder is the consumption order of the ledger.
var fifoOrder = []string{"acquisition_date ASC", "seq ASC"}

var _ batch.Repository = (*BatchRepo)(nil)

// BatchRepo implements batch.Repository.
type BatchRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewBatchRepo creates a new batch ledger repository.
func NewBatchRepo(txm *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[batch.StockBatch](),
	}
}

// Create inserts a batch; the database assigns Sequence.
func (r *BatchRepo) Create(ctx context.Context, b *batch.StockBatch) error {
	sql, args, err := r.builder.Insert(stockBatchesTable).
		SetMap(postgres.InsertMap(b, "seq")).
		Suffix("RETURNING seq").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&b.Sequence); err != nil {
		if postgres.IsCheckViolation(err) {
			return apperror.NewValidation("batch violates "+postgres.ConstraintName(err)).
				WithDetail("product_id", b.ProductID.String()).
				WithCause(err)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID retrieves a batch.
func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.StockBatch, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(stockBatchesTable).
		Where(squirrel.Eq{"id": batchID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b batch.StockBatch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// ListByProduct returns the product's batches in FIFO order.
func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*batch.StockBatch, error) {
	return r.list(ctx, r.fifo().Where(squirrel.Eq{"product_id": productID}))
}

// ListByProductForUpdate locks the product's batches until commit.
func (r *BatchRepo) ListByProductForUpdate(ctx context.Context, productID id.ID) ([]*batch.StockBatch, error) {
	return r.list(ctx, r.fifo().Where(squirrel.Eq{"product_id": productID}).Suffix("FOR UPDATE"))
}

// ListAll returns every batch.
func (r *BatchRepo) ListAll(ctx context.Context) ([]*batch.StockBatch, error) {
	return r.list(ctx, r.fifo())
}

// UpdateLevels sets qty_remaining, qty_consumed and consume_seq; CHECK
// constraints keep both quantities within [0, original].
func (r *BatchRepo) UpdateLevels(ctx context.Context, b *batch.StockBatch) error {
	sql, args, err := r.builder.Update(stockBatchesTable).
		Set("qty_remaining", b.QtyRemaining).
		Set("qty_consumed", b.QtyConsumed).
		Set("consume_seq", b.ConsumeSeq).
		Where(squirrel.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return apperror.NewInternal(fmt.Errorf("batch %s: levels outside [0, original]: %w", b.ID, err))
		}
		return fmt.Errorf("update batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", b.ID.String())
	}
	return nil
}

// Delete physically removes a batch.
func (r *BatchRepo) Delete(ctx context.Context, batchID id.ID) error {
	sql, args, err := r.builder.Delete(stockBatchesTable).
		Where(squirrel.Eq{"id": batchID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

func (r *BatchRepo) fifo() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).
		From(stockBatchesTable).
		OrderBy(fifoOrder...)
}

func (r *BatchRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]*batch.StockBatch, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*batch.StockBatch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}
	return out, nil
}
