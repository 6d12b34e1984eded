package memory

import (
	"context"
	"sort"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/documents/inventory"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/documents/sale"
)

// --- Sales ---

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository.
type SaleRepo struct{ store *Store }

// Sales returns the sale repository of the store.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{store: s} }

func (r *SaleRepo) Create(ctx context.Context, doc *sale.Sale) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.sales[doc.ID]; ok {
			return apperror.NewDuplicate("sale", "id", doc.ID.String())
		}
		st.sales[doc.ID] = copySale(*doc)
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	r.store.read(func(st *state) {
		if doc, ok := st.sales[saleID]; ok {
			doc = copySale(doc)
			out = &doc
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return out, nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) Update(ctx context.Context, doc *sale.Sale) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.sales[doc.ID]; !ok {
			return apperror.NewNotFound("sale", doc.ID.String())
		}
		st.sales[doc.ID] = copySale(*doc)
		return nil
	})
}

func (r *SaleRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var items []*sale.Sale
	r.store.read(func(st *state) {
		for _, doc := range st.sales {
			if filter.InRange(doc.Date) {
				doc = copySale(doc)
				items = append(items, &doc)
			}
		}
	})
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].Number > items[j].Number
	})
	return domain.Page(items, filter), nil
}

// --- Receipts ---

var _ purchase.Repository = (*ReceiptRepo)(nil)

// ReceiptRepo implements purchase.Repository.
type ReceiptRepo struct{ store *Store }

// Receipts returns the receipt repository of the store.
func (s *Store) Receipts() *ReceiptRepo { return &ReceiptRepo{store: s} }

func (r *ReceiptRepo) Create(ctx context.Context, doc *purchase.Receipt) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.receipts[doc.ID]; ok {
			return apperror.NewDuplicate("receipt", "id", doc.ID.String())
		}
		st.receipts[doc.ID] = copyReceipt(*doc)
		return nil
	})
}

func (r *ReceiptRepo) GetByID(ctx context.Context, receiptID id.ID) (*purchase.Receipt, error) {
	var out *purchase.Receipt
	r.store.read(func(st *state) {
		if doc, ok := st.receipts[receiptID]; ok {
			doc = copyReceipt(doc)
			out = &doc
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("receipt", receiptID.String())
	}
	return out, nil
}

func (r *ReceiptRepo) GetForUpdate(ctx context.Context, receiptID id.ID) (*purchase.Receipt, error) {
	return r.GetByID(ctx, receiptID)
}

func (r *ReceiptRepo) UpdateStatus(ctx context.Context, doc *purchase.Receipt) error {
	return r.store.write(func(st *state) error {
		cur, ok := st.receipts[doc.ID]
		if !ok {
			return apperror.NewNotFound("receipt", doc.ID.String())
		}
		cur.Status = doc.Status
		cur.CanceledAt = doc.CanceledAt
		cur.UpdatedAt = doc.UpdatedAt
		st.receipts[doc.ID] = cur
		return nil
	})
}

func (r *ReceiptRepo) FindByTransaction(ctx context.Context, txID id.ID) (*purchase.Receipt, error) {
	var out *purchase.Receipt
	r.store.read(func(st *state) {
		for _, doc := range st.receipts {
			for _, l := range doc.Lines {
				if l.TransactionID != nil && *l.TransactionID == txID {
					doc = copyReceipt(doc)
					out = &doc
					return
				}
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("receipt", txID.String())
	}
	return out, nil
}

func (r *ReceiptRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*purchase.Receipt], error) {
	var items []*purchase.Receipt
	r.store.read(func(st *state) {
		for _, doc := range st.receipts {
			if filter.InRange(doc.Date) {
				doc = copyReceipt(doc)
				items = append(items, &doc)
			}
		}
	})
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].Number > items[j].Number
	})
	return domain.Page(items, filter), nil
}

// --- Inventory counts ---

var _ inventory.Repository = (*CountRepo)(nil)

// CountRepo implements inventory.Repository.
type CountRepo struct{ store *Store }

// Counts returns the count document repository of the store.
func (s *Store) Counts() *CountRepo { return &CountRepo{store: s} }

func (r *CountRepo) Create(ctx context.Context, doc *inventory.Count) error {
	return r.store.write(func(st *state) error {
		st.counts[doc.ID] = copyCount(*doc)
		return nil
	})
}

func (r *CountRepo) GetByID(ctx context.Context, countID id.ID) (*inventory.Count, error) {
	var out *inventory.Count
	r.store.read(func(st *state) {
		if doc, ok := st.counts[countID]; ok {
			doc = copyCount(doc)
			out = &doc
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("inventory count", countID.String())
	}
	return out, nil
}

func (r *CountRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*inventory.Count], error) {
	var items []*inventory.Count
	r.store.read(func(st *state) {
		for _, doc := range st.counts {
			if filter.InRange(doc.Date) {
				doc = copyCount(doc)
				items = append(items, &doc)
			}
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].Number > items[j].Number })
	return domain.Page(items, filter), nil
}
