package memory

import (
	"context"
	"fmt"
	"sort"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
)

// --- Batches ---

var _ batch.Repository = (*BatchRepo)(nil)

// BatchRepo implements batch.Repository.
type BatchRepo struct{ store *Store }

// Batches returns the batch ledger repository of the store.
func (s *Store) Batches() *BatchRepo { return &BatchRepo{store: s} }

func (r *BatchRepo) Create(ctx context.Context, b *batch.StockBatch) error {
	return r.store.write(func(st *state) error {
		st.batchSeq++
		b.Sequence = st.batchSeq
		st.batches[b.ID] = *b
		return nil
	})
}

func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.StockBatch, error) {
	var out *batch.StockBatch
	r.store.read(func(st *state) {
		if b, ok := st.batches[batchID]; ok {
			out = &b
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	return out, nil
}

func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*batch.StockBatch, error) {
	return r.list(func(b *batch.StockBatch) bool { return b.ProductID == productID }), nil
}

func (r *BatchRepo) ListByProductForUpdate(ctx context.Context, productID id.ID) ([]*batch.StockBatch, error) {
	return r.ListByProduct(ctx, productID)
}

func (r *BatchRepo) ListAll(ctx context.Context) ([]*batch.StockBatch, error) {
	return r.list(func(*batch.StockBatch) bool { return true }), nil
}

func (r *BatchRepo) UpdateLevels(ctx context.Context, in *batch.StockBatch) error {
	return r.store.write(func(st *state) error {
		b, ok := st.batches[in.ID]
		if !ok {
			return apperror.NewNotFound("batch", in.ID.String())
		}
		if in.QtyRemaining < 0 || in.QtyRemaining > b.QtyOriginal {
			return apperror.NewInternal(fmt.Errorf("batch %s: remaining %s outside [0, %s]", in.ID, in.QtyRemaining, b.QtyOriginal))
		}
		if in.QtyConsumed < 0 || in.QtyConsumed > b.QtyOriginal {
			return apperror.NewInternal(fmt.Errorf("batch %s: consumed %s outside [0, %s]", in.ID, in.QtyConsumed, b.QtyOriginal))
		}
		b.QtyRemaining = in.QtyRemaining
		b.QtyConsumed = in.QtyConsumed
		b.ConsumeSeq = in.ConsumeSeq
		st.batches[in.ID] = b
		return nil
	})
}

func (r *BatchRepo) Delete(ctx context.Context, batchID id.ID) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.batches[batchID]; !ok {
			return apperror.NewNotFound("batch", batchID.String())
		}
		delete(st.batches, batchID)
		return nil
	})
}

// list returns matching batches in FIFO order.
func (r *BatchRepo) list(match func(*batch.StockBatch) bool) []*batch.StockBatch {
	var out []*batch.StockBatch
	r.store.read(func(st *state) {
		for _, b := range st.batches {
			b := b
			if match(&b) {
				out = append(out, &b)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AcquisitionDate.Equal(out[j].AcquisitionDate) {
			return out[i].AcquisitionDate.Before(out[j].AcquisitionDate)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// --- Movements ---

var _ stock.Repository = (*MovementRepo)(nil)

// MovementRepo implements stock.Repository.
type MovementRepo struct{ store *Store }

// Movements returns the movement log of the store.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{store: s} }

func (r *MovementRepo) CreateMovement(ctx context.Context, m *entity.StockMovement) error {
	return r.store.write(func(st *state) error {
		st.movementSeq++
		m.Sequence = st.movementSeq
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *MovementRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	r.store.read(func(st *state) {
		for i := len(st.movements) - 1; i >= 0; i-- {
			if filter.Matches(&st.movements[i]) {
				out = append(out, st.movements[i])
			}
		}
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MovementRepo) SumByProduct(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	r.store.read(func(st *state) {
		for i := range st.movements {
			if st.movements[i].ProductID == productID {
				sum += st.movements[i].SignedQuantity()
			}
		}
	})
	return sum, nil
}
