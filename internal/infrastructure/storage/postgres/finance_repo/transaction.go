// Package finance_repo provides the PostgreSQL ledger repository.
package finance_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "fin_transactions"
	linesTable        = "fin_transaction_lines"
)

var lineColumns = []string{"id", "transaction_id", "line_no", "product_id", "quantity", "unit_cost", "expiry_date"}

var _ finance.Repository = (*TransactionRepo)(nil)

// TransactionRepo implements finance.Repository.
type TransactionRepo struct {
	txm      *postgres.TxManager
	builder  squirrel.StatementBuilderType
	columns  []string
	inserter *postgres.BatchInserter
}

// NewTransactionRepo creates a new ledger repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txm:      txm,
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:  postgres.ExtractDBColumns[finance.Transaction](),
		inserter: postgres.NewBatchInserter(txm),
	}
}

// Create inserts the entry and its line items.
func (r *TransactionRepo) Create(ctx context.Context, t *finance.Transaction) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder.Insert(transactionsTable).SetMap(postgres.StructToMap(t)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			if postgres.IsUniqueViolation(err) {
				return apperror.NewDuplicate("transaction", "id", t.ID.String()).WithCause(err)
			}
			return fmt.Errorf("insert transaction: %w", err)
		}

		rows := make([][]any, len(t.LineItems))
		for i, l := range t.LineItems {
			rows[i] = []any{l.ID, t.ID, l.LineNo, l.ProductID, l.Quantity, postgres.Numeric(l.UnitCost), l.ExpiryDate}
		}
		_, err = r.inserter.CopyFromSlice(ctx, linesTable, lineColumns, rows)
		return err
	})
}

// GetByID loads an entry with its lines.
func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*finance.Transaction, error) {
	out, err := r.selectWithLines(ctx, r.base().Where(squirrel.Eq{"id": txID}))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperror.NewNotFound("transaction", txID.String())
	}
	return out[0], nil
}

// MarkPaid moves a PENDING entry to PAID.
func (r *TransactionRepo) MarkPaid(ctx context.Context, txID id.ID, paidAt time.Time) error {
	return r.updatePending(ctx, txID, map[string]any{
		"status":  finance.StatusPaid,
		"paid_at": paidAt.UTC(),
	})
}

// SetAmount changes the amount of a PENDING entry.
func (r *TransactionRepo) SetAmount(ctx context.Context, txID id.ID, amount types.Money) error {
	return r.updatePending(ctx, txID, map[string]any{"amount": amount})
}

// Delete removes the entry; lines go with it (ON DELETE CASCADE).
func (r *TransactionRepo) Delete(ctx context.Context, txID id.ID) error {
	sql, args, err := r.builder.Delete(transactionsTable).Where(squirrel.Eq{"id": txID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("transaction", txID.String())
	}
	return nil
}

// ListByGroup returns the installments of a group in order.
func (r *TransactionRepo) ListByGroup(ctx context.Context, groupID id.ID) ([]*finance.Transaction, error) {
	return r.selectWithLines(ctx, r.base().
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("installment_no ASC", "created_at ASC"))
}

// ListBySource returns the entries raised by a document, oldest first.
func (r *TransactionRepo) ListBySource(ctx context.Context, sourceType string, sourceID id.ID) ([]*finance.Transaction, error) {
	return r.selectWithLines(ctx, r.base().
		Where(squirrel.Eq{"source_type": sourceType, "source_id": sourceID}).
		OrderBy("created_at ASC", "id ASC"))
}

// List returns entries matching filter, newest posted first.
func (r *TransactionRepo) List(ctx context.Context, filter finance.Filter) ([]*finance.Transaction, error) {
	q := r.base().OrderBy("posted_date DESC", "created_at DESC")
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"posted_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"posted_date": *filter.To})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"entry_type": *filter.Type})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return r.selectWithLines(ctx, q)
}

func (r *TransactionRepo) base() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).From(transactionsTable)
}

// updatePending updates a PENDING entry; a settled one is a Conflict.
func (r *TransactionRepo) updatePending(ctx context.Context, txID id.ID, set map[string]any) error {
	sql, args, err := r.builder.Update(transactionsTable).
		SetMap(set).
		Where(squirrel.Eq{"id": txID, "status": finance.StatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	q := r.txm.GetQuerier(ctx)
	result, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+transactionsTable+" WHERE id = $1)", txID).Scan(&exists); err != nil {
		return fmt.Errorf("check transaction: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("transaction", txID.String())
	}
	return apperror.NewConflict("transaction is not pending").WithDetail("transaction_id", txID.String())
}

// selectWithLines runs q and attaches line items with one extra query.
func (r *TransactionRepo) selectWithLines(ctx context.Context, q squirrel.SelectBuilder) ([]*finance.Transaction, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var out []*finance.Transaction
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]id.ID, len(out))
	byID := make(map[id.ID]*finance.Transaction, len(out))
	for i, t := range out {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	sql, args, err = r.builder.Select(lineColumns...).
		From(linesTable).
		Where(squirrel.Eq{"transaction_id": ids}).
		OrderBy("transaction_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []finance.LineItem
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select transaction lines: %w", err)
	}
	for _, l := range lines {
		t := byID[l.TransactionID]
		t.LineItems = append(t.LineItems, l)
	}
	return out, nil
}
