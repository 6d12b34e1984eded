package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lotkeeper/internal/core/apperror"
	appctx "lotkeeper/internal/core/context"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/numerator"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/catalogs/supplier"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/pkg/logger"
)

// RecorderType tags movements written by receipts.
const RecorderType = "Receipt"

// Deps are the collaborators of the purchase reconciler.
type Deps struct {
	Repo      Repository
	Products  product.Repository
	Suppliers *supplier.Service
	Batches   *batch.Service
	Stock     *stock.Service
	Ledger    *finance.Service
	Numerator numerator.Generator
	TxManager tx.Manager
	Locker    lock.Locker
	Events    events.Publisher
}

// Service receives stock entries.
type Service struct {
	Deps
	cfg Config
}

// NewService creates a new purchase reconciler.
func NewService(deps Deps, cfg Config) *Service {
	def := DefaultConfig()
	if deps.Locker == nil {
		deps.Locker = lock.Noop{}
	}
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	if cfg.DefaultTermDays <= 0 {
		cfg.DefaultTermDays = def.DefaultTermDays
	}
	if cfg.DefaultIntervalDays <= 0 {
		cfg.DefaultIntervalDays = def.DefaultIntervalDays
	}
	if cfg.Numbering.Prefix == "" {
		cfg.Numbering = def.Numbering
	}
	return &Service{Deps: deps, cfg: cfg}
}

// Result of a received entry.
type Result struct {
	Receipt         *Receipt               `json:"receipt"`
	Transactions    []*finance.Transaction `json:"transactions,omitempty"`
	Batches         []*batch.StockBatch    `json:"batches"`
	SupplierCreated bool                   `json:"supplierCreated"`
}

// Receive records a stock entry as one unit of work: supplier resolution,
// ENTRY movements, price updates, expense entries (purchases only) and one
// batch per line.
func (s *Service) Receive(ctx context.Context, entry Entry) (*Result, error) {
	if entry == nil {
		return nil, apperror.NewValidation("entry is required")
	}
	ctx = appctx.WithOperation(ctx, "receipt."+string(entry.Kind()))

	if err := entry.validate(ctx); err != nil {
		return nil, err
	}
	h := entry.header()
	date := h.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	productIDs := make([]id.ID, 0, len(h.Lines))
	for _, l := range h.Lines {
		productIDs = append(productIDs, l.ProductID)
	}
	release, err := s.Locker.Acquire(ctx, lock.ProductKeys(productIDs)...)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &Result{}
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		products := make(map[id.ID]*product.Product, len(h.Lines))
		for _, pid := range id.Unique(productIDs) {
			p, err := s.Products.GetForUpdate(ctx, pid)
			if err != nil {
				return err
			}
			products[pid] = p
		}

		doc := &Receipt{
			Document:     entity.NewDocument(date),
			Kind:         entry.Kind(),
			SupplierName: supplier.NormalizeName(h.SupplierName),
			Status:       StatusReceived,
		}
		if doc.SupplierName != "" {
			sup, created, err := s.Suppliers.Resolve(ctx, h.SupplierName)
			if err != nil {
				return err
			}
			doc.SupplierID = id.Ptr(sup.ID)
			doc.SupplierName = sup.Name
			res.SupplierCreated = created
		}

		number, err := s.Numerator.GetNextNumber(ctx, s.cfg.Numbering, date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		reason := entry.Kind().Label()
		if doc.SupplierName != "" {
			reason += " - " + doc.SupplierName
		}

		for i, l := range h.Lines {
			p := products[l.ProductID]
			_, err := s.Stock.Post(ctx, stock.NewMovement{
				ProductID:    l.ProductID,
				Type:         entity.RecordTypeEntry,
				Quantity:     l.Quantity,
				Reason:       reason,
				OccurredAt:   date,
				RecorderID:   id.Ptr(doc.ID),
				RecorderType: RecorderType,
			})
			if err != nil {
				return err
			}

			upd := s.priceUpdate(p, l)
			if err := s.Products.SetPrices(ctx, p.ID, upd); err != nil {
				return fmt.Errorf("set prices: %w", err)
			}
			p.CostPrice, p.RetailPrice, p.ExpiryDate = upd.CostPrice, upd.RetailPrice, upd.ExpiryDate

			doc.Lines = append(doc.Lines, ReceiptLine{
				ID:          id.New(),
				ReceiptID:   doc.ID,
				LineNo:      i + 1,
				ProductID:   l.ProductID,
				Quantity:    l.Quantity,
				UnitCost:    types.RoundCost(l.UnitCost),
				RetailPrice: upd.RetailPrice,
				ExpiryDate:  l.ExpiryDate,
			})
		}

		if p, ok := entry.(*Purchase); ok {
			doc.Total = types.RoundMoney(p.Total)
			if doc.Total.IsZero() {
				doc.Total = p.LinesTotal()
			}
			entries, err := s.recordExpense(ctx, p, doc)
			if err != nil {
				return err
			}
			res.Transactions = entries
		} else {
			doc.Total = h.LinesTotal()
		}

		for i := range doc.Lines {
			ln := &doc.Lines[i]
			b, err := s.Batches.CreateBatch(ctx, batch.NewBatch{
				ProductID:           ln.ProductID,
				SourceTransactionID: ln.TransactionID,
				Quantity:            ln.Quantity,
				UnitCost:            ln.UnitCost,
				AcquisitionDate:     date,
				ExpiryDate:          ln.ExpiryDate,
			})
			if err != nil {
				return err
			}
			ln.BatchID = id.Ptr(b.ID)
			res.Batches = append(res.Batches, b)
		}

		if err := s.Repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		res.Receipt = doc

		return s.Events.Publish(ctx, events.Event{
			AggregateType: events.AggregateReceipt,
			AggregateID:   doc.ID,
			Type:          events.TypeReceiptReceived,
			Payload: map[string]any{
				"number":   doc.Number,
				"kind":     doc.Kind,
				"supplier": doc.SupplierName,
				"total":    doc.Total,
				"lines":    len(doc.Lines),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock entry received",
		"receipt_id", res.Receipt.ID,
		"number", res.Receipt.Number,
		"kind", res.Receipt.Kind,
		"lines", len(res.Receipt.Lines),
		"total", res.Receipt.Total.String(),
		"expense_entries", len(res.Transactions),
	)
	return res, nil
}

// recordExpense writes the purchase's expense entries grouped under the
// receipt id and links every receipt line to the entry carrying it.
func (s *Service) recordExpense(ctx context.Context, p *Purchase, doc *Receipt) ([]*finance.Transaction, error) {
	desc := "Purchase - " + doc.SupplierName

	lines := make([]finance.LineItem, len(doc.Lines))
	for i, ln := range doc.Lines {
		lines[i] = finance.LineItem{
			ProductID:  ln.ProductID,
			Quantity:   ln.Quantity,
			UnitCost:   ln.UnitCost,
			ExpiryDate: ln.ExpiryDate,
		}
	}

	due := doc.Date.AddDate(0, 0, s.cfg.DefaultTermDays)
	if p.DueDate != nil {
		due = *p.DueDate
	}

	var entries []*finance.Transaction
	if !p.Paid && p.Installments > 1 && doc.Total.IsPositive() {
		interval := p.IntervalDays
		if interval <= 0 {
			interval = s.cfg.DefaultIntervalDays
		}
		parts, err := s.Ledger.RecordInstallments(ctx, finance.InstallmentPlan{
			Total:        doc.Total,
			Count:        p.Installments,
			FirstDue:     due,
			IntervalDays: interval,
			Description:  desc,
			Category:     finance.CategoryPurchases,
			PostedDate:   doc.Date,
			GroupID:      doc.ID,
			SourceType:   finance.SourceReceipt,
			SourceID:     id.Ptr(doc.ID),
			Lines:        lines,
		})
		if err != nil {
			return nil, err
		}
		entries = parts
	} else {
		status := finance.StatusPending
		if p.Paid {
			status = finance.StatusPaid
		}
		t := finance.NewTransaction(finance.TypeExpense, finance.CategoryPurchases, doc.Total, status, desc, doc.Date)
		if status == finance.StatusPending {
			t.DueDate = &due
		}
		t.GroupID = id.Ptr(doc.ID)
		t.InstallmentNo, t.InstallmentCount = 1, 1
		t.SourceType = finance.SourceReceipt
		t.SourceID = id.Ptr(doc.ID)
		t.AttachLines(lines)
		if err := s.Ledger.Record(ctx, t); err != nil {
			return nil, err
		}
		entries = []*finance.Transaction{t}
	}

	k := 0
	for _, t := range entries {
		for range t.LineItems {
			doc.Lines[k].TransactionID = id.Ptr(t.ID)
			k++
		}
	}
	return entries, nil
}

// priceUpdate is the product's new cost, retail price and expiry after receiving l.
func (s *Service) priceUpdate(p *product.Product, l Line) product.PriceUpdate {
	upd := product.PriceUpdate{
		CostPrice:   types.RoundCost(l.UnitCost),
		RetailPrice: p.RetailPrice,
		ExpiryDate:  p.ExpiryDate,
	}
	switch {
	case l.RetailPrice != nil:
		upd.RetailPrice = types.RoundMoney(*l.RetailPrice)
	case s.cfg.DefaultMarginPercent.IsPositive():
		factor := decimal.NewFromInt(1).Add(s.cfg.DefaultMarginPercent.Div(decimal.NewFromInt(100)))
		upd.RetailPrice = types.RoundMoney(l.UnitCost.Mul(factor))
	}
	if l.ExpiryDate != nil {
		upd.ExpiryDate = l.ExpiryDate
	}
	return upd
}

// Get returns a receipt with its lines.
func (s *Service) Get(ctx context.Context, receiptID id.ID) (*Receipt, error) {
	return s.Repo.GetByID(ctx, receiptID)
}

// List returns a page of receipts.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Receipt], error) {
	filter.Normalize()
	return s.Repo.List(ctx, filter)
}
