package memory

import (
	"context"
	"sort"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/finance"
)

var _ finance.Repository = (*TransactionRepo)(nil)

// TransactionRepo implements finance.Repository.
type TransactionRepo struct{ store *Store }

// Transactions returns the ledger repository of the store.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{store: s} }

func (r *TransactionRepo) Create(ctx context.Context, t *finance.Transaction) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.transactions[t.ID]; ok {
			return apperror.NewDuplicate("transaction", "id", t.ID.String())
		}
		st.transactions[t.ID] = copyTransaction(*t)
		return nil
	})
}

func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*finance.Transaction, error) {
	var out *finance.Transaction
	r.store.read(func(st *state) {
		if t, ok := st.transactions[txID]; ok {
			t = copyTransaction(t)
			out = &t
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("transaction", txID.String())
	}
	return out, nil
}

func (r *TransactionRepo) MarkPaid(ctx context.Context, txID id.ID, paidAt time.Time) error {
	return r.update(txID, func(t *finance.Transaction) error {
		if t.Status != finance.StatusPending {
			return apperror.NewConflict("transaction is not pending").WithDetail("transaction_id", txID.String())
		}
		t.Status = finance.StatusPaid
		t.PaidAt = &paidAt
		return nil
	})
}

func (r *TransactionRepo) SetAmount(ctx context.Context, txID id.ID, amount types.Money) error {
	return r.update(txID, func(t *finance.Transaction) error {
		if t.Status != finance.StatusPending {
			return apperror.NewConflict("transaction is not pending").WithDetail("transaction_id", txID.String())
		}
		t.Amount = amount
		return nil
	})
}

func (r *TransactionRepo) Delete(ctx context.Context, txID id.ID) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.transactions[txID]; !ok {
			return apperror.NewNotFound("transaction", txID.String())
		}
		delete(st.transactions, txID)
		return nil
	})
}

func (r *TransactionRepo) ListByGroup(ctx context.Context, groupID id.ID) ([]*finance.Transaction, error) {
	out := r.list(func(t *finance.Transaction) bool { return t.GroupID != nil && *t.GroupID == groupID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].InstallmentNo < out[j].InstallmentNo })
	return out, nil
}

func (r *TransactionRepo) ListBySource(ctx context.Context, sourceType string, sourceID id.ID) ([]*finance.Transaction, error) {
	out := r.list(func(t *finance.Transaction) bool {
		return t.SourceType == sourceType && t.SourceID != nil && *t.SourceID == sourceID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *TransactionRepo) List(ctx context.Context, filter finance.Filter) ([]*finance.Transaction, error) {
	out := r.list(filter.Matches)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PostedDate.Equal(out[j].PostedDate) {
			return out[i].PostedDate.After(out[j].PostedDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *TransactionRepo) update(txID id.ID, fn func(t *finance.Transaction) error) error {
	return r.store.write(func(st *state) error {
		t, ok := st.transactions[txID]
		if !ok {
			return apperror.NewNotFound("transaction", txID.String())
		}
		if err := fn(&t); err != nil {
			return err
		}
		st.transactions[txID] = t
		return nil
	})
}

func (r *TransactionRepo) list(match func(*finance.Transaction) bool) []*finance.Transaction {
	var out []*finance.Transaction
	r.store.read(func(st *state) {
		for _, t := range st.transactions {
			t = copyTransaction(t)
			if match(&t) {
				out = append(out, &t)
			}
		}
	})
	// map order is random; fix a base order before callers sort stably
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
