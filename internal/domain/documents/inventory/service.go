package inventory

import (
	"context"
	"fmt"
	"time"

	appctx "lotkeeper/internal/core/context"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/numerator"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/pkg/logger"
)

// RecorderType tags movements written by counts.
const RecorderType = "InventoryCount"

// Deps are the collaborators of the count reconciler.
type Deps struct {
	Repo      Repository
	Products  product.Repository
	Batches   *batch.Service
	Stock     *stock.Service
	Numerator numerator.Generator
	TxManager tx.Manager
	Locker    lock.Locker
	Events    events.Publisher
}

// Service reconciles physical counts against the stock projection.
type Service struct {
	Deps
	numbering numerator.Config
}

// NewService creates a new count reconciler.
func NewService(deps Deps) *Service {
	if deps.Locker == nil {
		deps.Locker = lock.Noop{}
	}
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	return &Service{Deps: deps, numbering: numerator.DefaultConfig("INV")}
}

// Reconcile applies a count. For each product diff = counted - system: zero
// is a no-op, a surplus posts an ENTRY and creates a lot at the counted cost,
// a shortage posts an EXIT and consumes batches best-effort.
func (s *Service) Reconcile(ctx context.Context, in Input) (*Count, error) {
	ctx = appctx.WithOperation(ctx, "inventory.count")

	if err := in.Validate(ctx); err != nil {
		return nil, err
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	release, err := s.Locker.Acquire(ctx, lock.ProductKeys(in.ProductIDs())...)
	if err != nil {
		return nil, err
	}
	defer release()

	var doc *Count
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.Numerator.GetNextNumber(ctx, s.numbering, date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc = &Count{Document: entity.NewDocument(date), Note: in.Note}
		doc.Number = number

		for i, cl := range in.Lines {
			p, err := s.Products.GetForUpdate(ctx, cl.ProductID)
			if err != nil {
				return err
			}
			ln := Line{
				ID:              id.New(),
				CountID:         doc.ID,
				LineNo:          i + 1,
				ProductID:       p.ID,
				BookQuantity:    p.Quantity,
				CountedQuantity: cl.Counted,
				Deviation:       cl.Counted - p.Quantity,
				UnitCost:        types.Zero(),
			}
			if cl.UnitCost != nil {
				ln.UnitCost = types.RoundCost(*cl.UnitCost)
			}
			if err := s.apply(ctx, doc, &ln, date); err != nil {
				return err
			}
			doc.Lines = append(doc.Lines, ln)
		}
		doc.recalculateTotals()

		if err := s.Repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create count: %w", err)
		}
		return s.Events.Publish(ctx, events.Event{
			AggregateType: events.AggregateCount,
			AggregateID:   doc.ID,
			Type:          events.TypeCountReconciled,
			Payload: map[string]any{
				"number":   doc.Number,
				"surplus":  doc.TotalSurplus,
				"shortage": doc.TotalShortage,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory count reconciled",
		"count_id", doc.ID,
		"number", doc.Number,
		"lines", len(doc.Lines),
		"surplus", doc.TotalSurplus.String(),
		"shortage", doc.TotalShortage.String(),
	)
	return doc, nil
}

func (s *Service) apply(ctx context.Context, doc *Count, ln *Line, date time.Time) error {
	if ln.Deviation.IsZero() {
		return nil
	}

	mv := stock.NewMovement{
		ProductID:    ln.ProductID,
		Quantity:     ln.Deviation.Abs(),
		Reason:       stock.ReasonInventoryCount,
		OccurredAt:   date,
		RecorderID:   id.Ptr(doc.ID),
		RecorderType: RecorderType,
	}

	if ln.Deviation.IsPositive() {
		mv.Type = entity.RecordTypeEntry
		if _, err := s.Stock.Post(ctx, mv); err != nil {
			return err
		}
		b, err := s.Batches.CreateBatch(ctx, batch.NewBatch{
			ProductID:       ln.ProductID,
			Quantity:        mv.Quantity,
			UnitCost:        ln.UnitCost,
			AcquisitionDate: date,
		})
		if err != nil {
			return err
		}
		ln.BatchID = id.Ptr(b.ID)
		return nil
	}

	zero := types.Zero()
	if _, err := s.Batches.Allocate(ctx, ln.ProductID, mv.Quantity, &zero); err != nil {
		return err
	}
	mv.Type = entity.RecordTypeExit
	_, err := s.Stock.Post(ctx, mv)
	return err
}

// Get returns a count with its lines.
func (s *Service) Get(ctx context.Context, countID id.ID) (*Count, error) {
	return s.Repo.GetByID(ctx, countID)
}

// List returns a page of counts.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Count], error) {
	filter.Normalize()
	return s.Repo.List(ctx, filter)
}
