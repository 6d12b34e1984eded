package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
)

// Service provides report generation operations.
type Service struct {
	sales    sale.Repository
	products product.Repository
	batches  *batch.Service
	stock    *stock.Service
}

// NewService creates a new reports service.
func NewService(sales sale.Repository, products product.Repository, batches *batch.Service, stock *stock.Service) *Service {
	return &Service{sales: sales, products: products, batches: batches, stock: stock}
}

// SaleMargin returns the cost breakdown of a sale from unitCostAtSaleTime.
func (s *Service) SaleMargin(ctx context.Context, saleID id.ID) (*SaleMargin, error) {
	doc, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	rep := &SaleMargin{
		SaleID:  doc.ID,
		Number:  doc.Number,
		Date:    doc.Date,
		Revenue: types.Zero(),
		COGS:    types.Zero(),
	}
	for _, it := range doc.Items {
		lm := LineMargin{
			ItemID:    it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			UnitCost:  it.UnitCost,
			Revenue:   types.RoundMoney(it.Quantity.Mul(it.UnitPrice)),
			COGS:      types.RoundMoney(it.Quantity.Mul(it.UnitCost)),
		}
		lm.Margin = lm.Revenue.Sub(lm.COGS)
		rep.Lines = append(rep.Lines, lm)
		rep.Revenue = rep.Revenue.Add(lm.Revenue)
		rep.COGS = rep.COGS.Add(lm.COGS)
	}
	rep.Margin = rep.Revenue.Sub(rep.COGS)
	rep.MarginPercent = percent(rep.Margin, rep.Revenue)
	return rep, nil
}

// MarginSummary totals completed sales dated in [from, to).
func (s *Service) MarginSummary(ctx context.Context, from, to *time.Time) (*MarginSummary, error) {
	sum := &MarginSummary{
		From:    from,
		To:      to,
		Revenue: types.Zero(),
		COGS:    types.Zero(),
	}

	filter := domain.ListFilter{From: from, To: to, Limit: 500}
	for {
		page, err := s.sales.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list sales: %w", err)
		}
		for _, doc := range page.Items {
			if doc.IsCanceled() {
				continue
			}
			sum.Sales++
			sum.Revenue = sum.Revenue.Add(doc.Total)
			sum.COGS = sum.COGS.Add(doc.COGS())
		}
		filter.Offset += len(page.Items)
		if len(page.Items) < filter.Limit || int64(filter.Offset) >= page.TotalCount {
			break
		}
	}
	sum.Margin = sum.Revenue.Sub(sum.COGS)
	sum.MarginPercent = percent(sum.Margin, sum.Revenue)
	return sum, nil
}

// Valuation values every product: batch value when it has batches,
// quantity * cost price otherwise.
func (s *Service) Valuation(ctx context.Context) (*Valuation, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	total, err := s.batches.TotalValue(ctx, products)
	if err != nil {
		return nil, err
	}

	rep := &Valuation{AsOf: time.Now().UTC(), TotalValue: total}
	for _, p := range products {
		batches, err := s.batches.List(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		item := ValuationItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    p.Quantity,
			Value:       types.Zero(),
			AverageCost: p.CostPrice,
			HasBatches:  len(batches) > 0,
		}
		if item.HasBatches {
			var qty types.Quantity
			for _, b := range batches {
				qty += b.QtyRemaining
				item.Value = item.Value.Add(b.Value())
			}
			item.Quantity = qty
			item.AverageCost = types.Zero()
			if qty.IsPositive() {
				item.AverageCost = types.RoundCost(item.Value.Div(qty.Decimal()))
			}
		} else if p.Quantity.IsPositive() {
			item.Value = p.Quantity.Mul(p.CostPrice)
		}
		item.Value = types.RoundMoney(item.Value)
		rep.Items = append(rep.Items, item)
	}
	return rep, nil
}

// Reconcile checks that projection, movement replay and batch ledger agree.
// Products without batches are only checked against the replay.
func (s *Service) Reconcile(ctx context.Context, productID id.ID) (*Reconciliation, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	replay, err := s.stock.Replay(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("replay movements: %w", err)
	}
	remaining, hasBatches, err := s.batches.Available(ctx, productID)
	if err != nil {
		return nil, err
	}

	rep := &Reconciliation{
		ProductID:      productID,
		Projection:     p.Quantity,
		Replay:         replay,
		BatchRemaining: remaining,
		HasBatches:     hasBatches,
	}
	rep.Consistent = rep.Projection == rep.Replay && (!hasBatches || rep.BatchRemaining == rep.Projection)
	return rep, nil
}

func percent(part, whole types.Money) types.Money {
	if whole.IsZero() {
		return types.Zero()
	}
	return types.RoundMoney(part.Div(whole).Mul(decimal.NewFromInt(100)))
}
