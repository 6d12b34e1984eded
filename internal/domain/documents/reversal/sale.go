package reversal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lotkeeper/internal/core/apperror"
	appctx "lotkeeper/internal/core/context"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/audit"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/pkg/logger"
)

// VoidResult of VoidSale.
type VoidResult struct {
	Sale *sale.Sale `json:"sale"`

	// Refund is the compensating expense (nil when a pending receivable was dropped instead)
	Refund *finance.Transaction `json:"refund,omitempty"`

	// AlreadyCanceled is set when the call changed nothing
	AlreadyCanceled bool `json:"alreadyCanceled"`
}

// ReturnLine is one returned quantity of a sale line.
type ReturnLine struct {
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`
}

// ReturnResult of ReturnItems.
type ReturnResult struct {
	Sale         *sale.Sale           `json:"sale"`
	RefundAmount types.Money          `json:"refundAmount"`
	Refund       *finance.Transaction `json:"refund,omitempty"`
	Canceled     bool                 `json:"canceled"`
}

// VoidSale cancels a sale: all stock comes back, the receivable is dropped
// (deferred) or refunded, and the sale is kept with no items and zero total.
// Voiding a canceled sale is a no-op.
func (s *Service) VoidSale(ctx context.Context, saleID id.ID) (*VoidResult, error) {
	ctx = appctx.WithOperation(ctx, "sale.void")

	current, err := s.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if current.IsCanceled() {
		return &VoidResult{Sale: current, AlreadyCanceled: true}, nil
	}

	release, err := s.Locker.Acquire(ctx, lock.ProductKeys(itemProducts(current))...)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &VoidResult{}
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.Sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		res.Sale = doc
		if doc.IsCanceled() {
			res.AlreadyCanceled = true
			return nil
		}
		if err := s.audit(ctx, audit.NewEntry(sale.RecorderType, doc.ID, audit.ActionVoid, cloneSale(doc), nil)); err != nil {
			return err
		}

		returned := make(map[id.ID]types.Quantity)
		for _, it := range doc.Items {
			returned[it.ProductID] += it.Quantity
		}
		if err := s.restoreSaleStock(ctx, doc, returned, "Void #"+doc.Number); err != nil {
			return err
		}

		refund, err := s.compensate(ctx, doc, doc.Total, "Void")
		if err != nil {
			return err
		}
		res.Refund = refund

		now := time.Now().UTC()
		total := doc.Total
		doc.Items = nil
		doc.Total = types.Zero()
		doc.Status = sale.StatusCanceled
		doc.CanceledAt = &now
		doc.Touch()
		if err := s.Sales.Update(ctx, doc); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}

		return s.Events.Publish(ctx, events.Event{
			AggregateType: events.AggregateSale,
			AggregateID:   doc.ID,
			Type:          events.TypeSaleVoided,
			Payload:       map[string]any{"number": doc.Number, "total": total},
		})
	})
	if err != nil {
		return nil, err
	}

	if !res.AlreadyCanceled {
		logger.Info(ctx, "sale voided", "sale_id", saleID, "number", res.Sale.Number)
	}
	return res, nil
}

// ReturnItems takes back part of a sale. The refund is Σ unitPrice * qty;
// lines reaching zero are dropped and a sale with no lines left is CANCELED.
func (s *Service) ReturnItems(ctx context.Context, saleID id.ID, lines []ReturnLine) (*ReturnResult, error) {
	ctx = appctx.WithOperation(ctx, "sale.return")

	if len(lines) == 0 {
		return nil, apperror.NewValidation("return must have at least one line").WithDetail("field", "lines")
	}
	requested := make(map[id.ID]types.Quantity, len(lines))
	for i, l := range lines {
		if !l.Quantity.IsPositive() {
			return nil, apperror.NewValidation("returned quantity must be positive").
				WithDetail("line", i+1).
				WithDetail("value", l.Quantity.String())
		}
		requested[l.ItemID] += l.Quantity
	}

	current, err := s.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	release, err := s.Locker.Acquire(ctx, lock.ProductKeys(itemProducts(current))...)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &ReturnResult{}
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.Sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if doc.IsCanceled() {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "sale is canceled").
				WithDetail("sale_id", saleID.String())
		}

		refund := types.Zero()
		returned := make(map[id.ID]types.Quantity)
		for itemID, qty := range requested {
			it, ok := doc.ItemByID(itemID)
			if !ok {
				return apperror.NewNotFound("sale item", itemID.String())
			}
			if qty > it.Quantity {
				return apperror.NewValidation("returned quantity exceeds sold quantity").
					WithDetail("item_id", itemID.String()).
					WithDetail("sold", it.Quantity.String()).
					WithDetail("returned", qty.String())
			}
			refund = refund.Add(qty.Mul(it.UnitPrice))
			returned[it.ProductID] += qty
		}
		refund = types.RoundMoney(refund)

		if err := s.audit(ctx, audit.NewEntry(sale.RecorderType, doc.ID, audit.ActionReturn, cloneSale(doc), lines)); err != nil {
			return err
		}

		if err := s.restoreSaleStock(ctx, doc, returned, "Return #"+doc.Number); err != nil {
			return err
		}

		kept := doc.Items[:0]
		for _, it := range doc.Items {
			it.Quantity -= requested[it.ID]
			if it.Quantity.IsPositive() {
				kept = append(kept, it)
			}
		}
		doc.Items = kept
		doc.Recalculate()
		if len(doc.Items) == 0 {
			now := time.Now().UTC()
			doc.Status = sale.StatusCanceled
			doc.CanceledAt = &now
			res.Canceled = true
		}

		if refund.IsPositive() {
			if res.Refund, err = s.compensate(ctx, doc, refund, "Return"); err != nil {
				return err
			}
		}
		res.RefundAmount = refund

		doc.Touch()
		if err := s.Sales.Update(ctx, doc); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		res.Sale = doc

		return s.Events.Publish(ctx, events.Event{
			AggregateType: events.AggregateSale,
			AggregateID:   doc.ID,
			Type:          events.TypeSaleItemsReturned,
			Payload: map[string]any{
				"number":   doc.Number,
				"refund":   refund,
				"canceled": res.Canceled,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale items returned",
		"sale_id", saleID,
		"refund", res.RefundAmount.String(),
		"canceled", res.Canceled,
	)
	return res, nil
}

// restoreSaleStock brings returned quantities back into batches and the
// projection. Sales with allocation records get their lots back exactly, most
// recent lot first; older sales fall back to approximate release. The part of
// a sale that was never drawn from a batch (shortfall) goes to the projection
// only.
func (s *Service) restoreSaleStock(ctx context.Context, doc *sale.Sale, returned map[id.ID]types.Quantity, reason string) error {
	exact := len(doc.Allocations) > 0

	sold := make(map[id.ID]types.Quantity)
	for _, it := range doc.Items {
		sold[it.ProductID] += it.Quantity
	}

	for _, pid := range id.Unique(mapKeys(returned)) {
		qty := returned[pid]
		if exact {
			lots := takeLots(doc, pid, qty, sold[pid])
			if len(lots) > 0 {
				if _, err := s.Batches.Restore(ctx, pid, lots); err != nil {
					return err
				}
			}
		} else {
			if _, err := s.Batches.Release(ctx, pid, qty); err != nil {
				return err
			}
		}

		_, err := s.Stock.Post(ctx, stock.NewMovement{
			ProductID:    pid,
			Type:         entity.RecordTypeEntry,
			Quantity:     qty,
			Reason:       reason,
			RecorderID:   id.Ptr(doc.ID),
			RecorderType: RecorderType,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// takeLots removes qty of product pid from the sale's allocation records and
// returns the lots to restore. The shortfall (sold minus allocated) is taken
// first since it was the last part allocated; then lots newest first.
// Exhausted records stay with zero quantity.
func takeLots(doc *sale.Sale, pid id.ID, qty, sold types.Quantity) []batch.Lot {
	var idx []int
	var allocated types.Quantity
	for i, a := range doc.Allocations {
		if a.ProductID == pid {
			idx = append(idx, i)
			allocated += a.Quantity
		}
	}
	sort.Slice(idx, func(a, b int) bool { return doc.Allocations[idx[a]].Seq > doc.Allocations[idx[b]].Seq })

	if shortfall := sold - allocated; shortfall.IsPositive() {
		qty -= types.MinQuantity(qty, shortfall)
	}

	var lots []batch.Lot
	for _, i := range idx {
		if !qty.IsPositive() {
			break
		}
		a := &doc.Allocations[i]
		take := types.MinQuantity(qty, a.Quantity)
		if !take.IsPositive() {
			continue
		}
		a.Quantity -= take
		qty -= take
		lots = append(lots, batch.Lot{BatchID: a.BatchID, Quantity: take, UnitCost: a.UnitCost})
	}
	return lots
}

// compensate settles the money side of a void or return of amount.
//
// A deferred sale with a pending receivable has it shrunk (deleted at zero)
// and the customer's debt lowered. Anything else gets a PAID refund expense.
func (s *Service) compensate(ctx context.Context, doc *sale.Sale, amount types.Money, what string) (*finance.Transaction, error) {
	if doc.PaymentMethod.IsDeferred() {
		entries, err := s.Ledger.BySource(ctx, finance.SourceSale, doc.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range entries {
			if t.Type != finance.TypeIncome || t.Status != finance.StatusPending {
				continue
			}
			reduce := amount
			if reduce.GreaterThan(t.Amount) {
				reduce = t.Amount
			}
			if _, err := s.Ledger.Reduce(ctx, t.ID, reduce); err != nil {
				return nil, err
			}
			if doc.CustomerID != nil {
				if _, err := s.Customers.DecreaseDebt(ctx, *doc.CustomerID, reduce); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}
	}

	refund := finance.NewTransaction(
		finance.TypeExpense,
		finance.CategoryRefund,
		amount,
		finance.StatusPaid,
		fmt.Sprintf("Refund - %s #%s", what, doc.Number),
		time.Now().UTC(),
	)
	refund.SourceType = finance.SourceSale
	refund.SourceID = id.Ptr(doc.ID)
	if err := s.Ledger.Record(ctx, refund); err != nil {
		return nil, err
	}
	return refund, nil
}

func itemProducts(doc *sale.Sale) []id.ID {
	out := make([]id.ID, 0, len(doc.Items))
	for _, it := range doc.Items {
		out = append(out, it.ProductID)
	}
	return out
}

func mapKeys(m map[id.ID]types.Quantity) []id.ID {
	out := make([]id.ID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func cloneSale(doc *sale.Sale) *sale.Sale {
	c := *doc
	c.Items = append([]sale.Item(nil), doc.Items...)
	c.Allocations = append([]sale.Allocation(nil), doc.Allocations...)
	return &c
}
