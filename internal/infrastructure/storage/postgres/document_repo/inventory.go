package document_repo

import (
	"context"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/documents/inventory"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const (
	countsTable     = "doc_inventory_counts"
	countLinesTable = "doc_inventory_count_lines"
)

var countLineColumns = postgres.ExtractDBColumns[inventory.Line]()

var _ inventory.Repository = (*CountRepo)(nil)

// CountRepo implements inventory.Repository.
type CountRepo struct {
	*BaseDocumentRepo[*inventory.Count]
}

// NewCountRepo creates a new inventory count repository.
func NewCountRepo(txm *postgres.TxManager) *CountRepo {
	return &CountRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			countsTable, "inventory count",
			postgres.ExtractDBColumns[inventory.Count](),
			func() *inventory.Count { return new(inventory.Count) },
		),
	}
}

// Create inserts the header and lines.
func (r *CountRepo) Create(ctx context.Context, doc *inventory.Count) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insertHeader(ctx, doc); err != nil {
			return err
		}

		rows := make([][]any, len(doc.Lines))
		for i, l := range doc.Lines {
			rows[i] = []any{
				l.ID, doc.ID, l.LineNo, l.ProductID,
				l.BookQuantity, l.CountedQuantity, l.Deviation,
				postgres.Numeric(l.UnitCost), l.BatchID,
			}
		}
		_, err := r.inserter.CopyFromSlice(ctx, countLinesTable, countLineColumns, rows)
		return err
	})
}

// GetByID loads a count with its lines.
func (r *CountRepo) GetByID(ctx context.Context, countID id.ID) (*inventory.Count, error) {
	doc, err := r.getHeader(ctx, countID, false)
	if err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, []*inventory.Count{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns counts newest first.
func (r *CountRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*inventory.Count], error) {
	result, err := r.listHeaders(ctx, filter)
	if err != nil {
		return result, err
	}
	return result, r.attachLines(ctx, result.Items)
}

func (r *CountRepo) attachLines(ctx context.Context, docs []*inventory.Count) error {
	ids := make([]id.ID, len(docs))
	byID := make(map[id.ID]*inventory.Count, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		byID[d.ID] = d
	}

	lines, err := selectChildren[inventory.Line](ctx, r.querier(ctx), countLinesTable, countLineColumns, "count_id", ids, "line_no")
	if err != nil {
		return err
	}
	for _, l := range lines {
		d := byID[l.CountID]
		d.Lines = append(d.Lines, l)
	}
	return nil
}
