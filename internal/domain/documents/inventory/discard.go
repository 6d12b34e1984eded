package inventory

import (
	"context"
	"time"

	appctx "lotkeeper/internal/core/context"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/pkg/logger"
)

// BatchRecorderType tags movements written by batch write-offs.
const BatchRecorderType = "BatchWriteOff"

// Discard is the outcome of a batch write-off.
type Discard struct {
	BatchID    id.ID          `json:"batchId"`
	ProductID  id.ID          `json:"productId"`
	WrittenOff types.Quantity `json:"writtenOff"`
	Value      types.Money    `json:"value"`
}

// DiscardBatch removes a lot from the ledger. Any quantity it still holds
// leaves stock through an EXIT movement in the same transaction, so the
// projection keeps matching the batches.
func (s *Service) DiscardBatch(ctx context.Context, batchID id.ID) (*Discard, error) {
	ctx = appctx.WithOperation(ctx, "inventory.discard_batch")

	b, err := s.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	release, err := s.Locker.Acquire(ctx, lock.ProductKey(b.ProductID))
	if err != nil {
		return nil, err
	}
	defer release()

	var out *Discard
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Products.GetForUpdate(ctx, b.ProductID); err != nil {
			return err
		}
		// Re-read under the lock; a sale may have drawn on it meanwhile.
		cur, err := s.Batches.Get(ctx, batchID)
		if err != nil {
			return err
		}
		out = &Discard{BatchID: cur.ID, ProductID: cur.ProductID, WrittenOff: cur.QtyRemaining, Value: types.RoundMoney(cur.Value())}

		if cur.QtyRemaining.IsPositive() {
			_, err := s.Stock.Post(ctx, stock.NewMovement{
				ProductID:    cur.ProductID,
				Type:         entity.RecordTypeExit,
				Quantity:     cur.QtyRemaining,
				Reason:       stock.ReasonBatchWriteOff,
				OccurredAt:   time.Now().UTC(),
				RecorderID:   id.Ptr(cur.ID),
				RecorderType: BatchRecorderType,
			})
			if err != nil {
				return err
			}
		}
		return s.Batches.Delete(ctx, cur.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch written off",
		"batch_id", out.BatchID,
		"product_id", out.ProductID,
		"quantity", out.WrittenOff.String(),
		"value", out.Value.String(),
	)
	return out, nil
}
