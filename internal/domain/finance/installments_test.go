package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

func TestInstallmentPlan_Split(t *testing.T) {
	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	group := id.New()

	t.Run("two equal installments thirty days apart", func(t *testing.T) {
		parts := InstallmentPlan{
			Total:        types.MustMoney("200"),
			Count:        2,
			FirstDue:     due,
			IntervalDays: 30,
			Description:  "Purchase - Acme",
			Category:     CategoryPurchases,
			GroupID:      group,
		}.Split()

		require.Len(t, parts, 2)
		for i, p := range parts {
			assert.True(t, p.Amount.Equal(types.MustMoney("100")))
			assert.Equal(t, StatusPending, p.Status)
			assert.Equal(t, TypeExpense, p.Type)
			assert.Equal(t, group, *p.GroupID)
			assert.Equal(t, i+1, p.InstallmentNo)
			assert.Equal(t, 2, p.InstallmentCount)
		}
		assert.Equal(t, "Purchase - Acme (1/2)", parts[0].Description)
		assert.Equal(t, "Purchase - Acme (2/2)", parts[1].Description)
		assert.Equal(t, 30*24*time.Hour, parts[1].DueDate.Sub(*parts[0].DueDate))
	})

	t.Run("rounding remainder lands on the last installment", func(t *testing.T) {
		parts := InstallmentPlan{Total: types.MustMoney("100"), Count: 3, FirstDue: due, IntervalDays: 30, Description: "x", GroupID: group}.Split()

		require.Len(t, parts, 3)
		assert.Equal(t, "33.33", parts[0].Amount.String())
		assert.Equal(t, "33.33", parts[1].Amount.String())
		assert.Equal(t, "33.34", parts[2].Amount.String())
	})

	t.Run("line items are sliced contiguously", func(t *testing.T) {
		lines := make([]LineItem, 3)
		for i := range lines {
			lines[i] = LineItem{ProductID: id.New(), Quantity: types.NewQuantity(1), UnitCost: types.MustMoney("1")}
		}

		parts := InstallmentPlan{Total: types.MustMoney("3"), Count: 2, FirstDue: due, IntervalDays: 15, Description: "x", GroupID: group, Lines: lines}.Split()

		require.Len(t, parts[0].LineItems, 2)
		require.Len(t, parts[1].LineItems, 1)
		assert.Equal(t, lines[2].ProductID, parts[1].LineItems[0].ProductID)
		assert.Equal(t, parts[1].ID, parts[1].LineItems[0].TransactionID)
	})

	t.Run("single installment keeps plain description", func(t *testing.T) {
		parts := InstallmentPlan{Total: types.MustMoney("10"), Count: 1, FirstDue: due, Description: "Purchase - Acme", GroupID: group}.Split()

		require.Len(t, parts, 1)
		assert.Equal(t, "Purchase - Acme", parts[0].Description)
	})
}

func TestTransaction_Validate(t *testing.T) {
	ctx := t.Context()

	pending := NewTransaction(TypeIncome, CategorySales, types.MustMoney("10"), StatusPending, "Sale #1", time.Time{})
	assert.Error(t, pending.Validate(ctx), "pending without due date")

	negative := NewTransaction(TypeExpense, CategoryRefund, types.MustMoney("-1"), StatusPaid, "Refund", time.Time{})
	assert.Error(t, negative.Validate(ctx))

	ok := NewTransaction(TypeIncome, CategorySales, types.MustMoney("10"), StatusPaid, "Sale #1", time.Time{})
	assert.NoError(t, ok.Validate(ctx))
	assert.NotNil(t, ok.PaidAt)
}
