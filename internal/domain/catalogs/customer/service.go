package customer

import (
	"context"
	"fmt"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/core/types"
	"lotkeeper/pkg/logger"
)

// Service maintains customer debt balances.
// Each balance change locks the customer row and rewrites the balance in
// its own transaction, or joins the caller's transaction when ctx already
// carries one.
type Service struct {
	repo Repository
	txm  tx.Manager
}

// NewService creates a new customer service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// Create validates and stores a customer.
func (s *Service) Create(ctx context.Context, c *Customer) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Create(ctx, c)
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

// List returns every customer.
func (s *Service) List(ctx context.Context) ([]*Customer, error) {
	return s.repo.List(ctx)
}

// IncreaseDebt adds amount to the balance and returns the new balance.
func (s *Service) IncreaseDebt(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error) {
	if amount.IsNegative() {
		return types.Zero(), apperror.NewValidation("amount cannot be negative").WithDetail("field", "amount")
	}
	return s.apply(ctx, customerID, func(balance types.Money) types.Money {
		return balance.Add(amount)
	})
}

// DecreaseDebt subtracts amount, flooring the balance at zero.
func (s *Service) DecreaseDebt(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error) {
	if amount.IsNegative() {
		return types.Zero(), apperror.NewValidation("amount cannot be negative").WithDetail("field", "amount")
	}
	return s.apply(ctx, customerID, func(balance types.Money) types.Money {
		return types.MaxMoney(balance.Sub(amount), types.Zero())
	})
}

// ReceivePayment records a debt payment. Paying more than owed is rejected.
func (s *Service) ReceivePayment(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error) {
	if !amount.IsPositive() {
		return types.Zero(), apperror.NewValidation("payment must be positive").WithDetail("field", "amount")
	}

	var balance types.Money
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(c.DebtBalance) {
			return apperror.NewValidation("payment exceeds debt balance").
				WithDetail("debt_balance", c.DebtBalance.String()).
				WithDetail("amount", amount.String())
		}
		balance = c.DebtBalance.Sub(amount)
		return s.repo.SetDebtBalance(ctx, customerID, balance)
	})
	if err != nil {
		return types.Zero(), err
	}

	logger.Info(ctx, "debt payment received",
		"customer_id", customerID,
		"amount", amount.String(),
		"balance", balance.String(),
	)
	return balance, nil
}

func (s *Service) apply(ctx context.Context, customerID id.ID, fn func(types.Money) types.Money) (types.Money, error) {
	var balance types.Money
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		balance = types.RoundMoney(fn(c.DebtBalance))
		if err := s.repo.SetDebtBalance(ctx, customerID, balance); err != nil {
			return fmt.Errorf("set debt balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Zero(), err
	}
	return balance, nil
}
