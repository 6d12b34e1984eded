// Package reports provides read-only projections over sales, batches and movements.
package reports

import (
	"time"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// --- Sale margin ---

// LineMargin is the cost breakdown of one sale line.
type LineMargin struct {
	ItemID    id.ID          `json:"itemId"`
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
	UnitCost  types.Money    `json:"unitCostAtSaleTime"`
	Revenue   types.Money    `json:"revenue"`
	COGS      types.Money    `json:"cogs"`
	Margin    types.Money    `json:"margin"`
}

// SaleMargin is revenue against COGS for one sale.
type SaleMargin struct {
	SaleID        id.ID        `json:"saleId"`
	Number        string       `json:"number"`
	Date          time.Time    `json:"date"`
	Revenue       types.Money  `json:"revenue"`
	COGS          types.Money  `json:"cogs"`
	Margin        types.Money  `json:"margin"`
	MarginPercent types.Money  `json:"marginPercent"`
	Lines         []LineMargin `json:"lines"`
}

// --- Margin summary ---

// MarginSummary aggregates completed sales of a period.
type MarginSummary struct {
	From          *time.Time  `json:"from,omitempty"`
	To            *time.Time  `json:"to,omitempty"`
	Sales         int         `json:"sales"`
	Revenue       types.Money `json:"revenue"`
	COGS          types.Money `json:"cogs"`
	Margin        types.Money `json:"margin"`
	MarginPercent types.Money `json:"marginPercent"`
}

// --- Valuation ---

// ValuationItem is one product's stock value.
type ValuationItem struct {
	ProductID   id.ID          `json:"productId"`
	ProductName string         `json:"productName"`
	Quantity    types.Quantity `json:"quantity"`
	Value       types.Money    `json:"value"`
	AverageCost types.Money    `json:"averageCost"`

	// HasBatches is false when the value falls back to quantity * cost price
	HasBatches bool `json:"hasBatches"`
}

// Valuation is the inventory value of the whole catalog.
type Valuation struct {
	AsOf       time.Time       `json:"asOf"`
	Items      []ValuationItem `json:"items"`
	TotalValue types.Money     `json:"totalValue"`
}

// --- Reconciliation ---

// Reconciliation compares the three views of a product's stock.
type Reconciliation struct {
	ProductID id.ID `json:"productId"`

	// Projection is the materialized product quantity
	Projection types.Quantity `json:"projection"`

	// Replay is Σ ENTRY - Σ EXIT over the movement log
	Replay types.Quantity `json:"replay"`

	// BatchRemaining is Σ qtyRemaining over the product's batches
	BatchRemaining types.Quantity `json:"batchRemaining"`
	HasBatches     bool           `json:"hasBatches"`

	Consistent bool `json:"consistent"`
}
