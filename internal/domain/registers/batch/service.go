package batch

import (
	"context"
	"fmt"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/pkg/logger"
)

// Service provides the batch ledger operations.
//
// Callers must hold the product lock and run inside a transaction: the
// ledger reads the batch set, decides, then writes, and relies on the caller
// for isolation.
type Service struct {
	repo Repository
}

// NewService creates a new batch ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateBatch adds a new cost lot with QtyRemaining = QtyOriginal.
func (s *Service) CreateBatch(ctx context.Context, in NewBatch) (*StockBatch, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	acquired := in.AcquisitionDate
	if acquired.IsZero() {
		acquired = time.Now().UTC()
	}

	b := &StockBatch{
		ID:                  id.New(),
		ProductID:           in.ProductID,
		SourceTransactionID: in.SourceTransactionID,
		QtyOriginal:         in.Quantity,
		QtyRemaining:        in.Quantity,
		UnitCost:            types.RoundCost(in.UnitCost),
		AcquisitionDate:     acquired.UTC(),
		ExpiryDate:          in.ExpiryDate,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	logger.Debug(ctx, "batch created",
		"batch_id", b.ID,
		"product_id", b.ProductID,
		"quantity", b.QtyOriginal.String(),
		"unit_cost", b.UnitCost.String(),
	)
	return b, nil
}

// Allocate consumes qty of the product in FIFO order.
//
// When the batches hold less than qty and fallbackCost is nil it returns an
// INSUFFICIENT_STOCK error without writing anything. With a fallback cost the
// covered part is taken from batches and the shortfall is costed at the fallback.
func (s *Service) Allocate(ctx context.Context, productID id.ID, qty types.Quantity, fallbackCost *types.Money) (*Allocation, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("allocation quantity must be positive").
			WithDetail("quantity", qty.String())
	}

	batches, err := s.repo.ListByProductForUpdate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	sortFIFO(batches)

	available := sumRemaining(batches)
	if available < qty && fallbackCost == nil {
		return nil, apperror.NewInsufficientStock(productID.String(), qty.String(), available.String())
	}

	lots, shortfall := planAllocation(batches, qty)
	if err := s.apply(ctx, batches, lots, -1); err != nil {
		return nil, err
	}

	alloc := &Allocation{
		ProductID:     productID,
		Requested:     qty,
		Lots:          lots,
		Shortfall:     shortfall,
		ShortfallCost: types.Zero(),
		TotalCost:     costOf(lots),
	}
	if shortfall.IsPositive() {
		alloc.ShortfallCost = shortfall.Mul(*fallbackCost)
		alloc.TotalCost = alloc.TotalCost.Add(alloc.ShortfallCost)
		logger.Warn(ctx, "allocation shortfall costed at fallback",
			"product_id", productID,
			"requested", qty.String(),
			"available", available.String(),
			"shortfall", shortfall.String(),
			"fallback_cost", fallbackCost.String(),
		)
	}
	alloc.AverageUnitCost = types.RoundCost(alloc.TotalCost.Div(qty.Decimal()))

	return alloc, nil
}

// Release restores qty without knowing which lots it came from. It goes back
// into the most recently consumed-from lots, each up to what allocations took
// from it; the rest is reported as Unplaced.
func (s *Service) Release(ctx context.Context, productID id.ID, qty types.Quantity) (*ReleaseResult, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("release quantity must be positive").
			WithDetail("quantity", qty.String())
	}

	batches, err := s.repo.ListByProductForUpdate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	sortFIFO(batches)

	lots, unplaced := planRelease(batches, qty)
	if err := s.apply(ctx, batches, lots, +1); err != nil {
		return nil, err
	}

	res := &ReleaseResult{ProductID: productID, Restored: lots, Unplaced: unplaced}
	if unplaced.IsPositive() {
		logger.Warn(ctx, "release exceeded batch capacity",
			"product_id", productID,
			"requested", qty.String(),
			"unplaced", unplaced.String(),
		)
	}
	return res, nil
}

// Restore puts back exactly the lots recorded at allocation time. Quantity a
// lot cannot take back (batch deleted, or refilled in the meantime) goes
// through Release.
func (s *Service) Restore(ctx context.Context, productID id.ID, lots []Lot) (*ReleaseResult, error) {
	batches, err := s.repo.ListByProductForUpdate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	byID := make(map[id.ID]*StockBatch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}

	res := &ReleaseResult{ProductID: productID}
	var leftover types.Quantity
	for _, l := range lots {
		if !l.Quantity.IsPositive() {
			continue
		}
		b, ok := byID[l.BatchID]
		if !ok {
			leftover += l.Quantity
			continue
		}
		put := types.MinQuantity(l.Quantity, b.Room())
		if put.IsPositive() {
			b.QtyRemaining += put
			b.QtyConsumed -= types.MinQuantity(put, b.QtyConsumed)
			if err := s.repo.UpdateLevels(ctx, b); err != nil {
				return nil, fmt.Errorf("restore batch %s: %w", b.ID, err)
			}
			res.Restored = append(res.Restored, Lot{BatchID: b.ID, Quantity: put, UnitCost: b.UnitCost})
		}
		leftover += l.Quantity - put
	}

	if leftover.IsPositive() {
		rest, err := s.Release(ctx, productID, leftover)
		if err != nil {
			return nil, err
		}
		res.Restored = append(res.Restored, rest.Restored...)
		res.Unplaced = rest.Unplaced
	}
	return res, nil
}

// Withdraw takes up to qty from one specific batch and returns how much was taken.
func (s *Service) Withdraw(ctx context.Context, batchID id.ID, qty types.Quantity) (types.Quantity, error) {
	if !qty.IsPositive() {
		return 0, nil
	}
	b, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return 0, err
	}
	take := types.MinQuantity(qty, b.QtyRemaining)
	if !take.IsPositive() {
		return 0, nil
	}
	b.QtyRemaining -= take
	if err := s.repo.UpdateLevels(ctx, b); err != nil {
		return 0, fmt.Errorf("withdraw from batch %s: %w", b.ID, err)
	}
	return take, nil
}

// Available returns Σ QtyRemaining and whether the product has any batch at all.
func (s *Service) Available(ctx context.Context, productID id.ID) (types.Quantity, bool, error) {
	batches, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return 0, false, fmt.Errorf("list batches: %w", err)
	}
	return sumRemaining(batches), len(batches) > 0, nil
}

// List returns the product's batches in FIFO order.
func (s *Service) List(ctx context.Context, productID id.ID) ([]*StockBatch, error) {
	batches, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	sortFIFO(batches)
	return batches, nil
}

// Get returns one batch.
func (s *Service) Get(ctx context.Context, batchID id.ID) (*StockBatch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// AverageCost is the weighted average unit cost of the remaining stock,
// or zero when nothing remains.
func (s *Service) AverageCost(ctx context.Context, productID id.ID) (types.Money, error) {
	batches, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return types.Zero(), fmt.Errorf("list batches: %w", err)
	}

	qty := sumRemaining(batches)
	if !qty.IsPositive() {
		return types.Zero(), nil
	}
	value := types.Zero()
	for _, b := range batches {
		if b.QtyRemaining.IsPositive() {
			value = value.Add(b.Value())
		}
	}
	return types.RoundCost(value.Div(qty.Decimal())), nil
}

// TotalValue is the inventory value of products: batch value for products
// with at least one batch, quantity * fallback cost for products with none.
func (s *Service) TotalValue(ctx context.Context, products []*product.Product) (types.Money, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return types.Zero(), fmt.Errorf("list batches: %w", err)
	}

	byProduct := make(map[id.ID]types.Money)
	for _, b := range all {
		v, ok := byProduct[b.ProductID]
		if !ok {
			v = types.Zero()
		}
		byProduct[b.ProductID] = v.Add(b.Value())
	}

	total := types.Zero()
	for _, p := range products {
		if v, ok := byProduct[p.ID]; ok {
			total = total.Add(v)
			continue
		}
		if p.Quantity.IsPositive() {
			total = total.Add(p.Quantity.Mul(p.CostPrice))
		}
	}
	return types.RoundMoney(total), nil
}

// Delete removes a batch. The caller holds the product lock and has already
// moved any remaining quantity out of stock.
func (s *Service) Delete(ctx context.Context, batchID id.ID) error {
	if _, err := s.repo.GetByID(ctx, batchID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, batchID); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	logger.Warn(ctx, "batch deleted by administrative action", "batch_id", batchID)
	return nil
}

// apply writes lots onto batches; sign -1 consumes, +1 restores.
// Consumption stamps every touched lot with the same new ConsumeSeq.
func (s *Service) apply(ctx context.Context, batches []*StockBatch, lots []Lot, sign int) error {
	byID := make(map[id.ID]*StockBatch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	consumeSeq := nextConsumeSeq(batches)

	for _, l := range lots {
		b := byID[l.BatchID]
		next := b.QtyRemaining + types.Quantity(sign)*l.Quantity
		if next < 0 || next > b.QtyOriginal {
			return apperror.NewInternal(fmt.Errorf("batch %s would leave [0, %s]: %s", b.ID, b.QtyOriginal, next))
		}
		b.QtyRemaining = next
		if sign < 0 {
			b.QtyConsumed += l.Quantity
			b.ConsumeSeq = consumeSeq
		} else {
			b.QtyConsumed -= types.MinQuantity(l.Quantity, b.QtyConsumed)
		}
		if err := s.repo.UpdateLevels(ctx, b); err != nil {
			return fmt.Errorf("update batch %s: %w", b.ID, err)
		}
	}
	return nil
}
