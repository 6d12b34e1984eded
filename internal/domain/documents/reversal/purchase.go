package reversal

import (
	"context"
	"fmt"
	"time"

	"lotkeeper/internal/core/apperror"
	appctx "lotkeeper/internal/core/context"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/audit"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/pkg/logger"
)

// CancelResult of CancelPurchase.
type CancelResult struct {
	Receipt *purchase.Receipt `json:"receipt"`

	// Deleted are the expense entries of the purchase's installment group
	Deleted []*finance.Transaction `json:"deleted,omitempty"`

	// Cancellation is the compensating income (nil when nothing was deleted)
	Cancellation *finance.Transaction `json:"cancellation,omitempty"`

	// Withdrawn is the quantity taken out per product; less than received when
	// part of it was already sold
	Withdrawn map[id.ID]types.Quantity `json:"withdrawn"`

	AlreadyCanceled bool `json:"alreadyCanceled"`
}

// CancelPurchase reverses a receipt: stock leaves (clamped to what is on
// hand), every expense of its installment group is deleted and one INCOME
// "Cancellation" entry records the reversed amount. Canceling twice is a no-op.
func (s *Service) CancelPurchase(ctx context.Context, receiptID id.ID) (*CancelResult, error) {
	ctx = appctx.WithOperation(ctx, "receipt.cancel")

	current, err := s.Receipts.GetByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if current.IsCanceled() {
		return &CancelResult{Receipt: current, AlreadyCanceled: true}, nil
	}

	productIDs := make([]id.ID, 0, len(current.Lines))
	for _, l := range current.Lines {
		productIDs = append(productIDs, l.ProductID)
	}
	release, err := s.Locker.Acquire(ctx, lock.ProductKeys(productIDs)...)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &CancelResult{Withdrawn: make(map[id.ID]types.Quantity)}
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.Receipts.GetForUpdate(ctx, receiptID)
		if err != nil {
			return err
		}
		res.Receipt = doc
		if doc.IsCanceled() {
			res.AlreadyCanceled = true
			return nil
		}
		if err := s.audit(ctx, audit.NewEntry(purchase.RecorderType, doc.ID, audit.ActionCancel, cloneReceipt(doc), nil)); err != nil {
			return err
		}

		for _, l := range doc.Lines {
			taken, err := s.withdrawLine(ctx, doc, l)
			if err != nil {
				return err
			}
			res.Withdrawn[l.ProductID] += taken
		}

		deleted, err := s.Ledger.DeleteGroup(ctx, doc.ID)
		if err != nil {
			return err
		}
		res.Deleted = deleted

		if len(deleted) > 0 {
			income := finance.NewTransaction(
				finance.TypeIncome,
				finance.CategoryCancellation,
				sumAmounts(deleted),
				finance.StatusPaid,
				fmt.Sprintf("Cancellation - Purchase #%s - %s", doc.Number, doc.SupplierName),
				time.Now().UTC(),
			)
			income.SourceType = finance.SourceReceipt
			income.SourceID = id.Ptr(doc.ID)
			if err := s.Ledger.Record(ctx, income); err != nil {
				return err
			}
			res.Cancellation = income
		}

		now := time.Now().UTC()
		doc.Status = purchase.StatusCanceled
		doc.CanceledAt = &now
		doc.Touch()
		if err := s.Receipts.UpdateStatus(ctx, doc); err != nil {
			return fmt.Errorf("update receipt: %w", err)
		}

		return s.Events.Publish(ctx, events.Event{
			AggregateType: events.AggregateReceipt,
			AggregateID:   doc.ID,
			Type:          events.TypeReceiptCanceled,
			Payload: map[string]any{
				"number":          doc.Number,
				"deletedEntries":  len(deleted),
				"reversedExpense": sumAmounts(deleted),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if !res.AlreadyCanceled {
		logger.Info(ctx, "purchase canceled",
			"receipt_id", receiptID,
			"number", res.Receipt.Number,
			"deleted_entries", len(res.Deleted),
		)
	}
	return res, nil
}

// CancelPurchaseByTransaction cancels the purchase that txID belongs to.
// txID may be any installment of the purchase's group.
func (s *Service) CancelPurchaseByTransaction(ctx context.Context, txID id.ID) (*CancelResult, error) {
	t, err := s.Ledger.Get(ctx, txID)
	switch {
	case err == nil:
		if t.GroupID != nil {
			return s.CancelPurchase(ctx, *t.GroupID)
		}
		if t.SourceType == finance.SourceReceipt && t.SourceID != nil {
			return s.CancelPurchase(ctx, *t.SourceID)
		}
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "transaction is not linked to a purchase").
			WithDetail("transaction_id", txID.String())
	case apperror.IsNotFound(err):
		// deleted by an earlier cancellation; the receipt lines still reference it
		doc, ferr := s.Receipts.FindByTransaction(ctx, txID)
		if ferr != nil {
			return nil, err
		}
		return s.CancelPurchase(ctx, doc.ID)
	default:
		return nil, err
	}
}

// withdrawLine posts the EXIT for one receipt line, clamped to on-hand stock.
// The line's own batch is drained first; any remainder comes out FIFO.
func (s *Service) withdrawLine(ctx context.Context, doc *purchase.Receipt, l purchase.ReceiptLine) (types.Quantity, error) {
	p, err := s.Products.GetForUpdate(ctx, l.ProductID)
	if err != nil {
		return 0, err
	}
	qty := types.MinQuantity(l.Quantity, p.Quantity)
	if !qty.IsPositive() {
		logger.Warn(ctx, "nothing on hand to withdraw for canceled purchase line",
			"receipt_id", doc.ID,
			"product_id", l.ProductID,
			"line_quantity", l.Quantity.String(),
		)
		return 0, nil
	}

	rest := qty
	if l.BatchID != nil {
		taken, err := s.Batches.Withdraw(ctx, *l.BatchID, rest)
		if err != nil && !apperror.IsNotFound(err) {
			return 0, err
		}
		rest -= taken
	}
	if rest.IsPositive() {
		zero := types.Zero()
		if _, err := s.Batches.Allocate(ctx, l.ProductID, rest, &zero); err != nil {
			return 0, err
		}
	}

	_, err = s.Stock.Post(ctx, stock.NewMovement{
		ProductID:    l.ProductID,
		Type:         entity.RecordTypeExit,
		Quantity:     qty,
		Reason:       "Cancel purchase #" + doc.Number,
		RecorderID:   id.Ptr(doc.ID),
		RecorderType: RecorderType,
	})
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func sumAmounts(entries []*finance.Transaction) types.Money {
	sum := types.Zero()
	for _, t := range entries {
		sum = sum.Add(t.Amount)
	}
	return sum
}

func cloneReceipt(doc *purchase.Receipt) *purchase.Receipt {
	c := *doc
	c.Lines = append([]purchase.ReceiptLine(nil), doc.Lines...)
	return &c
}
