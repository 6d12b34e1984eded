package dto

import (
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/documents/purchase"
)

// ReceiptLineRequest is one received product.
type ReceiptLineRequest struct {
	ProductID   id.ID          `json:"productId" binding:"required"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	UnitCost    types.Money    `json:"unitCost"`
	RetailPrice *types.Money   `json:"retailPrice"`
	ExpiryDate  *time.Time     `json:"expiryDate"`
}

// CreateReceiptRequest is the body of POST /receipts. Kind selects the entry
// variant; payment fields apply to PURCHASE only.
type CreateReceiptRequest struct {
	Kind         string               `json:"kind" binding:"required"`
	SupplierName string               `json:"supplierName"`
	Date         *time.Time           `json:"date"`
	Lines        []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`

	Total        *types.Money `json:"total"`
	Paid         bool         `json:"paid"`
	DueDate      *time.Time   `json:"dueDate"`
	Installments int          `json:"installments"`
	IntervalDays int          `json:"intervalDays"`
}

// ToEntry decides the entry variant.
func (r CreateReceiptRequest) ToEntry() (purchase.Entry, error) {
	h := purchase.Header{
		SupplierName: r.SupplierName,
		Lines:        make([]purchase.Line, len(r.Lines)),
	}
	if r.Date != nil {
		h.Date = *r.Date
	}
	for i, l := range r.Lines {
		h.Lines[i] = purchase.Line{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			RetailPrice: l.RetailPrice,
			ExpiryDate:  l.ExpiryDate,
		}
	}

	switch purchase.Kind(r.Kind) {
	case purchase.KindPurchase:
		p := &purchase.Purchase{
			Header:       h,
			Paid:         r.Paid,
			DueDate:      r.DueDate,
			Installments: r.Installments,
			IntervalDays: r.IntervalDays,
		}
		if r.Total != nil {
			p.Total = *r.Total
		}
		return p, nil
	case purchase.KindDonation:
		return &purchase.Donation{Header: h}, nil
	case purchase.KindBonus:
		return &purchase.Bonus{Header: h}, nil
	case purchase.KindAdjustment:
		return &purchase.Adjustment{Header: h}, nil
	}
	return nil, apperror.NewValidation("unknown entry kind").
		WithDetail("field", "kind").
		WithDetail("value", r.Kind)
}
