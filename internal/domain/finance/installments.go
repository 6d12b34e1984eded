package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// InstallmentPlan describes how one purchase expense is split.
type InstallmentPlan struct {
	Total        types.Money
	Count        int
	FirstDue     time.Time
	IntervalDays int
	Description  string
	Category     string
	PostedDate   time.Time
	GroupID      id.ID
	SourceType   string
	SourceID     *id.ID
	Lines        []LineItem
}

// Split builds Count PENDING expense entries sharing GroupID. Amounts are equal
// cents with the rounding remainder on the last one; installment i is due
// FirstDue + i*IntervalDays and carries the i-th contiguous slice of lines.
func (p InstallmentPlan) Split() []*Transaction {
	n := p.Count
	if n < 1 {
		n = 1
	}
	total := types.RoundMoney(p.Total)
	part := total.Div(decimal.NewFromInt(int64(n))).Truncate(types.MoneyPlaces)
	chunk := (len(p.Lines) + n - 1) / n

	out := make([]*Transaction, 0, n)
	allocated := types.Zero()
	for i := 0; i < n; i++ {
		amount := part
		if i == n-1 {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)

		desc := p.Description
		if n > 1 {
			desc = fmt.Sprintf("%s (%d/%d)", p.Description, i+1, n)
		}
		due := p.FirstDue.AddDate(0, 0, i*p.IntervalDays)

		t := NewTransaction(TypeExpense, p.Category, amount, StatusPending, desc, p.PostedDate)
		t.DueDate = &due
		t.GroupID = id.Ptr(p.GroupID)
		t.InstallmentNo = i + 1
		t.InstallmentCount = n
		t.SourceType = p.SourceType
		t.SourceID = p.SourceID

		if chunk > 0 {
			lo := i * chunk
			hi := lo + chunk
			if lo > len(p.Lines) {
				lo = len(p.Lines)
			}
			if hi > len(p.Lines) {
				hi = len(p.Lines)
			}
			t.AttachLines(p.Lines[lo:hi])
		}
		out = append(out, t)
	}
	return out
}
