package sale

import (
	"context"
	"fmt"
	"time"

	"lotkeeper/internal/core/apperror"
	appctx "lotkeeper/internal/core/context"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/numerator"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/audit"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/pkg/logger"
)

// RecorderType tags movements written by sales.
const RecorderType = "Sale"

// Deps are the collaborators of the sale reconciler.
type Deps struct {
	Repo      Repository
	Products  product.Repository
	Customers *customer.Service
	Batches   *batch.Service
	Stock     *stock.Service
	Ledger    *finance.Service
	Numerator numerator.Generator
	TxManager tx.Manager
	Locker    lock.Locker
	Events    events.Publisher
	Audit     audit.Recorder
}

// Service completes sales: one atomic unit covering the sale document, batch
// allocation, movements, projection and income entry.
type Service struct {
	Deps
	cfg Config
}

// NewService creates a new sale reconciler.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Locker == nil {
		deps.Locker = lock.Noop{}
	}
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	if cfg.DeferredTermDays <= 0 {
		cfg.DeferredTermDays = DefaultConfig().DeferredTermDays
	}
	if cfg.Numbering.Prefix == "" {
		cfg.Numbering = DefaultConfig().Numbering
	}
	return &Service{Deps: deps, cfg: cfg}
}

// Result of a completed sale.
type Result struct {
	Sale   *Sale                `json:"sale"`
	Income *finance.Transaction `json:"income"`

	// CustomerDebt is the balance after a deferred sale (nil otherwise, or when
	// the debt update failed)
	CustomerDebt *types.Money `json:"customerDebt,omitempty"`
}

type line struct {
	product    *product.Product
	qty        types.Quantity
	hasBatches bool
}

// Complete records a finalized cart.
//
// Stock is checked for every product before the first write; a shortage fails
// the whole sale with INSUFFICIENT_STOCK. For deferred sales the customer's
// debt is raised after commit; if that fails the committed Result is returned
// together with a PARTIAL_SUCCESS error.
func (s *Service) Complete(ctx context.Context, co Checkout) (*Result, error) {
	ctx = appctx.WithOperation(ctx, "sale.complete")

	if err := co.Validate(ctx); err != nil {
		return nil, err
	}
	if co.CustomerID != nil {
		if _, err := s.Customers.Get(ctx, *co.CustomerID); err != nil {
			return nil, err
		}
	}

	date := co.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	demands := co.demand()

	release, err := s.Locker.Acquire(ctx, lock.ProductKeys(co.ProductIDs())...)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		doc    *Sale
		income *finance.Transaction
	)
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lines, err := s.preflight(ctx, demands)
		if err != nil {
			return err
		}

		number, err := s.Numerator.GetNextNumber(ctx, s.cfg.Numbering, date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}

		doc = &Sale{
			Document:      entity.NewDocument(date),
			CustomerID:    co.CustomerID,
			PaymentMethod: co.PaymentMethod,
			Status:        StatusCompleted,
		}
		doc.Number = number

		unitCost := make(map[id.ID]types.Money, len(lines))
		for _, ln := range lines {
			var fallback *types.Money
			if !ln.hasBatches || s.cfg.AllowNegativeStock {
				fallback = &ln.product.CostPrice
			}
			alloc, err := s.Batches.Allocate(ctx, ln.product.ID, ln.qty, fallback)
			if err != nil {
				return err
			}
			unitCost[ln.product.ID] = alloc.AverageUnitCost
			for _, lot := range alloc.Lots {
				doc.Allocations = append(doc.Allocations, Allocation{
					ID:        id.New(),
					SaleID:    doc.ID,
					Seq:       len(doc.Allocations) + 1,
					ProductID: ln.product.ID,
					BatchID:   lot.BatchID,
					Quantity:  lot.Quantity,
					UnitCost:  lot.UnitCost,
				})
			}

			_, err = s.Stock.Post(ctx, stock.NewMovement{
				ProductID:    ln.product.ID,
				Type:         entity.RecordTypeExit,
				Quantity:     ln.qty,
				Reason:       "Sale #" + number,
				OccurredAt:   date,
				RecorderID:   id.Ptr(doc.ID),
				RecorderType: RecorderType,
			})
			if err != nil {
				return err
			}
		}

		for i, cl := range co.Lines {
			doc.Items = append(doc.Items, Item{
				ID:        id.New(),
				SaleID:    doc.ID,
				LineNo:    i + 1,
				ProductID: cl.ProductID,
				Quantity:  cl.Quantity,
				UnitPrice: cl.UnitPrice,
				UnitCost:  unitCost[cl.ProductID],
			})
		}
		doc.Recalculate()

		if err := s.Repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		income = s.incomeFor(doc)
		if err := s.Ledger.Record(ctx, income); err != nil {
			return err
		}

		return s.Events.Publish(ctx, events.Event{
			AggregateType: events.AggregateSale,
			AggregateID:   doc.ID,
			Type:          events.TypeSaleCompleted,
			Payload: map[string]any{
				"number":        doc.Number,
				"total":         doc.Total,
				"cogs":          doc.COGS(),
				"paymentMethod": doc.PaymentMethod,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Sale: doc, Income: income}

	logger.Info(ctx, "sale completed",
		"sale_id", doc.ID,
		"number", doc.Number,
		"items", len(doc.Items),
		"total", doc.Total.String(),
		"payment_method", doc.PaymentMethod,
	)

	if doc.PaymentMethod.IsDeferred() {
		balance, err := s.Customers.IncreaseDebt(ctx, *doc.CustomerID, doc.Total)
		if err != nil {
			logger.Error(ctx, "sale saved but customer debt not updated",
				"sale_id", doc.ID,
				"customer_id", *doc.CustomerID,
				"amount", doc.Total.String(),
				"error", err,
			)
			return res, apperror.NewPartialSuccess("sale saved, customer debt not updated", err).
				WithDetail("sale_id", doc.ID.String()).
				WithDetail("customer_id", doc.CustomerID.String()).
				WithDetail("amount", doc.Total.String())
		}
		res.CustomerDebt = &balance
	}

	return res, nil
}

// preflight loads and locks every product and checks availability.
func (s *Service) preflight(ctx context.Context, demands []demand) ([]line, error) {
	lines := make([]line, 0, len(demands))
	for _, d := range demands {
		p, err := s.Products.GetForUpdate(ctx, d.ProductID)
		if err != nil {
			return nil, err
		}
		available, hasBatches, err := s.Batches.Available(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if !hasBatches {
			available = p.Quantity
		}
		if d.Quantity > available && !s.cfg.AllowNegativeStock {
			return nil, apperror.NewInsufficientStock(p.ID.String(), d.Quantity.String(), available.String()).
				WithDetail("product_name", p.Name)
		}
		lines = append(lines, line{product: p, qty: d.Quantity, hasBatches: hasBatches})
	}
	return lines, nil
}

func (s *Service) incomeFor(doc *Sale) *finance.Transaction {
	status := finance.StatusPaid
	if doc.PaymentMethod.IsDeferred() {
		status = finance.StatusPending
	}
	t := finance.NewTransaction(
		finance.TypeIncome,
		finance.CategorySales,
		doc.Total,
		status,
		fmt.Sprintf("Sale #%s (%s)", doc.Number, doc.PaymentMethod),
		doc.Date,
	)
	if status == finance.StatusPending {
		due := doc.Date.AddDate(0, 0, s.cfg.DeferredTermDays)
		t.DueDate = &due
	}
	t.SourceType = finance.SourceSale
	t.SourceID = id.Ptr(doc.ID)
	return t
}

// Get returns a sale with its items and allocations.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.Repo.GetByID(ctx, saleID)
}

// List returns a page of sales.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sale], error) {
	filter.Normalize()
	return s.Repo.List(ctx, filter)
}

// SettleDeferred records the collection of a deferred sale: its pending income
// becomes PAID and the customer's debt drops by the same amount.
func (s *Service) SettleDeferred(ctx context.Context, saleID id.ID, paidAt time.Time) (*finance.Transaction, error) {
	ctx = appctx.WithOperation(ctx, "sale.settle")
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var settled *finance.Transaction
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.Repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !doc.PaymentMethod.IsDeferred() {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "sale was not deferred").
				WithDetail("sale_id", saleID.String())
		}

		entries, err := s.Ledger.BySource(ctx, finance.SourceSale, saleID)
		if err != nil {
			return err
		}
		for _, t := range entries {
			if t.Type != finance.TypeIncome || t.Status != finance.StatusPending {
				continue
			}
			if settled, err = s.Ledger.Settle(ctx, t.ID, paidAt); err != nil {
				return err
			}
			if _, err := s.Customers.DecreaseDebt(ctx, *doc.CustomerID, t.Amount); err != nil {
				return err
			}
			if s.Audit != nil {
				if err := s.Audit.Record(ctx, audit.NewEntry(RecorderType, doc.ID, audit.ActionCollect, nil, t)); err != nil {
					return err
				}
			}
			return nil
		}
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "no pending receivable for sale").
			WithDetail("sale_id", saleID.String())
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "deferred sale settled", "sale_id", saleID, "amount", settled.Amount.String())
	return settled, nil
}
