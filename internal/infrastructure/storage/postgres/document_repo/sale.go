package document_repo

import (
	"context"
	"fmt"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const (
	salesTable           = "doc_sales"
	saleItemsTable       = "doc_sale_items"
	saleAllocationsTable = "doc_sale_allocations"
)

var (
	saleItemColumns       = postgres.ExtractDBColumns[sale.Item]()
	saleAllocationColumns = postgres.ExtractDBColumns[sale.Allocation]()
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository. Sales are loaded with items and allocations.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
	batch *postgres.BatchExecutor
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			salesTable, "sale",
			postgres.ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return new(sale.Sale) },
		),
		batch: postgres.NewBatchExecutor(txm),
	}
}

// Create inserts header, items and allocations.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insertHeader(ctx, s); err != nil {
			return err
		}
		return r.insertLines(ctx, s)
	})
}

// GetByID loads a sale.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, saleID, false)
}

// GetForUpdate loads a sale and locks its header row.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, saleID, true)
}

// Update rewrites header, items and allocations.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.updateHeader(ctx, s.ID, map[string]any{
			"status":      s.Status,
			"total":       s.Total,
			"canceled_at": s.CanceledAt,
			"updated_at":  s.UpdatedAt,
		}); err != nil {
			return err
		}

		if err := r.batch.ExecuteBatch(ctx, []postgres.BatchQuery{
			r.deleteChildren(saleItemsTable, "sale_id", s.ID),
			r.deleteChildren(saleAllocationsTable, "sale_id", s.ID),
		}); err != nil {
			return fmt.Errorf("clear sale lines: %w", err)
		}
		return r.insertLines(ctx, s)
	})
}

// List returns sales newest first.
func (r *SaleRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result, err := r.listHeaders(ctx, filter)
	if err != nil {
		return result, err
	}
	return result, r.attachLines(ctx, result.Items)
}

func (r *SaleRepo) get(ctx context.Context, saleID id.ID, forUpdate bool) (*sale.Sale, error) {
	doc, err := r.getHeader(ctx, saleID, forUpdate)
	if err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, []*sale.Sale{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *SaleRepo) insertLines(ctx context.Context, s *sale.Sale) error {
	items := make([][]any, len(s.Items))
	for i, it := range s.Items {
		items[i] = []any{
			it.ID, s.ID, it.LineNo, it.ProductID, it.Quantity,
			postgres.Numeric(it.UnitPrice), postgres.Numeric(it.UnitCost), postgres.Numeric(it.Subtotal),
		}
	}
	if _, err := r.inserter.CopyFromSlice(ctx, saleItemsTable, saleItemColumns, items); err != nil {
		return err
	}

	allocs := make([][]any, len(s.Allocations))
	for i, a := range s.Allocations {
		allocs[i] = []any{
			a.ID, s.ID, a.Seq, a.ProductID, a.BatchID, a.Quantity, postgres.Numeric(a.UnitCost),
		}
	}
	_, err := r.inserter.CopyFromSlice(ctx, saleAllocationsTable, saleAllocationColumns, allocs)
	return err
}

func (r *SaleRepo) attachLines(ctx context.Context, docs []*sale.Sale) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]id.ID, len(docs))
	byID := make(map[id.ID]*sale.Sale, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		byID[d.ID] = d
	}

	q := r.querier(ctx)
	items, err := selectChildren[sale.Item](ctx, q, saleItemsTable, saleItemColumns, "sale_id", ids, "line_no")
	if err != nil {
		return err
	}
	for _, it := range items {
		d := byID[it.SaleID]
		d.Items = append(d.Items, it)
	}

	allocs, err := selectChildren[sale.Allocation](ctx, q, saleAllocationsTable, saleAllocationColumns, "sale_id", ids, "seq")
	if err != nil {
		return err
	}
	for _, a := range allocs {
		d := byID[a.SaleID]
		d.Allocations = append(d.Allocations, a)
	}
	return nil
}
