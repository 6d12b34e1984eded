package finance

import (
	"context"
	"fmt"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/core/types"
	"lotkeeper/pkg/logger"
)

// Service provides ledger operations. Reconcilers call it inside their own
// transaction; standalone calls open one through txm.
type Service struct {
	repo Repository
	txm  tx.Manager
}

// NewService creates a new ledger service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// Record validates and stores one entry.
func (s *Service) Record(ctx context.Context, t *Transaction) error {
	t.Amount = types.RoundMoney(t.Amount)
	if err := t.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// RecordInstallments stores every installment of plan.
func (s *Service) RecordInstallments(ctx context.Context, plan InstallmentPlan) ([]*Transaction, error) {
	if !plan.Total.IsPositive() {
		return nil, apperror.NewValidation("installment total must be positive").WithDetail("field", "total")
	}
	if plan.Count < 1 {
		return nil, apperror.NewValidation("installment count must be at least 1").WithDetail("field", "installments")
	}
	if plan.Count > 1 && plan.IntervalDays <= 0 {
		return nil, apperror.NewValidation("installment interval must be positive").WithDetail("field", "intervalDays")
	}

	parts := plan.Split()
	for _, t := range parts {
		if err := s.Record(ctx, t); err != nil {
			return nil, err
		}
	}
	return parts, nil
}

// Get returns an entry with its line items.
func (s *Service) Get(ctx context.Context, txID id.ID) (*Transaction, error) {
	return s.repo.GetByID(ctx, txID)
}

// Settle marks a PENDING entry PAID. Settling a PAID entry is a no-op.
func (s *Service) Settle(ctx context.Context, txID id.ID, paidAt time.Time) (*Transaction, error) {
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var out *Transaction
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetByID(ctx, txID)
		if err != nil {
			return err
		}
		if t.Status == StatusPaid {
			out = t
			return nil
		}
		if err := s.repo.MarkPaid(ctx, txID, paidAt); err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		t.Status = StatusPaid
		t.PaidAt = &paidAt
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ledger entry settled", "transaction_id", txID, "amount", out.Amount.String())
	return out, nil
}

// Reduce lowers a PENDING entry by amount, deleting it when nothing is left.
// Returns the remaining amount.
func (s *Service) Reduce(ctx context.Context, txID id.ID, amount types.Money) (types.Money, error) {
	t, err := s.repo.GetByID(ctx, txID)
	if err != nil {
		return types.Zero(), err
	}
	if t.Status != StatusPending {
		return types.Zero(), apperror.NewBusinessRule(apperror.CodeBusinessRule, "only pending entries can be reduced").
			WithDetail("transaction_id", txID.String())
	}

	left := types.RoundMoney(t.Amount.Sub(amount))
	if !left.IsPositive() {
		if err := s.repo.Delete(ctx, txID); err != nil {
			return types.Zero(), fmt.Errorf("delete transaction: %w", err)
		}
		return types.Zero(), nil
	}
	if err := s.repo.SetAmount(ctx, txID, left); err != nil {
		return types.Zero(), fmt.Errorf("set amount: %w", err)
	}
	return left, nil
}

// Delete removes an entry and its line items. Only cancellation workflows call it.
func (s *Service) Delete(ctx context.Context, txID id.ID) error {
	if err := s.repo.Delete(ctx, txID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// DeleteGroup removes every entry sharing groupID and returns what was removed.
func (s *Service) DeleteGroup(ctx context.Context, groupID id.ID) ([]*Transaction, error) {
	group, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group: %w", err)
	}
	for _, t := range group {
		if err := s.repo.Delete(ctx, t.ID); err != nil {
			return nil, fmt.Errorf("delete transaction %s: %w", t.ID, err)
		}
	}
	return group, nil
}

// ByGroup returns the installments of a group in installment order.
func (s *Service) ByGroup(ctx context.Context, groupID id.ID) ([]*Transaction, error) {
	return s.repo.ListByGroup(ctx, groupID)
}

// BySource returns entries created by a document.
func (s *Service) BySource(ctx context.Context, sourceType string, sourceID id.ID) ([]*Transaction, error) {
	return s.repo.ListBySource(ctx, sourceType, sourceID)
}

// List returns entries by date range, status and type.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	return s.repo.List(ctx, filter)
}

// Summarize totals the entries matching filter.
func (s *Service) Summarize(ctx context.Context, filter Filter) (*Summary, error) {
	filter.Limit = 0
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		IncomePaid:     types.Zero(),
		IncomePending:  types.Zero(),
		ExpensePaid:    types.Zero(),
		ExpensePending: types.Zero(),
	}
	for _, t := range entries {
		switch {
		case t.Type == TypeIncome && t.Status == StatusPaid:
			sum.IncomePaid = sum.IncomePaid.Add(t.Amount)
		case t.Type == TypeIncome:
			sum.IncomePending = sum.IncomePending.Add(t.Amount)
		case t.Status == StatusPaid:
			sum.ExpensePaid = sum.ExpensePaid.Add(t.Amount)
		default:
			sum.ExpensePending = sum.ExpensePending.Add(t.Amount)
		}
	}
	sum.Balance = sum.IncomePaid.Sub(sum.ExpensePaid)
	return sum, nil
}
