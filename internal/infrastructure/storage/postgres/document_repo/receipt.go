package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const (
	receiptsTable     = "doc_receipts"
	receiptLinesTable = "doc_receipt_lines"
)

var receiptLineColumns = postgres.ExtractDBColumns[purchase.ReceiptLine]()

var _ purchase.Repository = (*ReceiptRepo)(nil)

// ReceiptRepo implements purchase.Repository.
type ReceiptRepo struct {
	*BaseDocumentRepo[*purchase.Receipt]
}

// NewReceiptRepo creates a new receipt repository.
func NewReceiptRepo(txm *postgres.TxManager) *ReceiptRepo {
	return &ReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			receiptsTable, "receipt",
			postgres.ExtractDBColumns[purchase.Receipt](),
			func() *purchase.Receipt { return new(purchase.Receipt) },
		),
	}
}

// Create inserts header and lines.
func (r *ReceiptRepo) Create(ctx context.Context, doc *purchase.Receipt) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insertHeader(ctx, doc); err != nil {
			return err
		}

		rows := make([][]any, len(doc.Lines))
		for i, l := range doc.Lines {
			rows[i] = []any{
				l.ID, doc.ID, l.LineNo, l.ProductID, l.Quantity,
				postgres.Numeric(l.UnitCost), postgres.Numeric(l.RetailPrice),
				l.ExpiryDate, l.BatchID, l.TransactionID,
			}
		}
		_, err := r.inserter.CopyFromSlice(ctx, receiptLinesTable, receiptLineColumns, rows)
		return err
	})
}

// GetByID loads a receipt with its lines.
func (r *ReceiptRepo) GetByID(ctx context.Context, receiptID id.ID) (*purchase.Receipt, error) {
	return r.get(ctx, receiptID, false)
}

// GetForUpdate loads a receipt and locks its header row.
func (r *ReceiptRepo) GetForUpdate(ctx context.Context, receiptID id.ID) (*purchase.Receipt, error) {
	return r.get(ctx, receiptID, true)
}

// UpdateStatus changes status and canceled_at.
func (r *ReceiptRepo) UpdateStatus(ctx context.Context, doc *purchase.Receipt) error {
	return r.updateHeader(ctx, doc.ID, map[string]any{
		"status":      doc.Status,
		"canceled_at": doc.CanceledAt,
		"updated_at":  doc.UpdatedAt,
	})
}

// FindByTransaction returns the receipt whose lines are carried by txID.
func (r *ReceiptRepo) FindByTransaction(ctx context.Context, txID id.ID) (*purchase.Receipt, error) {
	sql, args, err := r.Builder().Select("receipt_id").
		From(receiptLinesTable).
		Where(squirrel.Eq{"transaction_id": txID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var receiptID id.ID
	if err := pgxscan.Get(ctx, r.querier(ctx), &receiptID, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("receipt", txID.String())
		}
		return nil, err
	}
	return r.GetByID(ctx, receiptID)
}

// List returns receipts newest first.
func (r *ReceiptRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*purchase.Receipt], error) {
	result, err := r.listHeaders(ctx, filter)
	if err != nil {
		return result, err
	}
	return result, r.attachLines(ctx, result.Items)
}

func (r *ReceiptRepo) get(ctx context.Context, receiptID id.ID, forUpdate bool) (*purchase.Receipt, error) {
	doc, err := r.getHeader(ctx, receiptID, forUpdate)
	if err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, []*purchase.Receipt{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *ReceiptRepo) attachLines(ctx context.Context, docs []*purchase.Receipt) error {
	ids := make([]id.ID, len(docs))
	byID := make(map[id.ID]*purchase.Receipt, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		byID[d.ID] = d
	}

	lines, err := selectChildren[purchase.ReceiptLine](ctx, r.querier(ctx), receiptLinesTable, receiptLineColumns, "receipt_id", ids, "line_no")
	if err != nil {
		return err
	}
	for _, l := range lines {
		d := byID[l.ReceiptID]
		d.Lines = append(d.Lines, l)
	}
	return nil
}
