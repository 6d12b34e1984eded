package sale

import (
	"lotkeeper/internal/core/numerator"
)

// Config is the reference data the sale reconciler needs.
type Config struct {
	// DeferredTermDays is the due date offset of a deferred sale's receivable
	DeferredTermDays int

	// AllowNegativeStock lets a sale proceed past the batch ledger, costing the
	// shortfall at the product's fallback cost
	AllowNegativeStock bool

	Numbering numerator.Config
}

// DefaultConfig returns a 30-day term, fail-closed stock and V-YYYY-NNNNN numbers.
func DefaultConfig() Config {
	return Config{
		DeferredTermDays: 30,
		Numbering:        numerator.DefaultConfig("V"),
	}
}
