package purchase

import (
	"github.com/shopspring/decimal"

	"lotkeeper/internal/core/numerator"
)

// Config is the pricing and terms reference data of the purchase reconciler.
type Config struct {
	// DefaultMarginPercent derives retail = cost * (1 + margin/100) when a line
	// carries no retail price. Zero keeps the product's current retail price.
	DefaultMarginPercent decimal.Decimal

	// DefaultTermDays is the due date offset for credit purchases without one
	DefaultTermDays int

	// DefaultIntervalDays spaces installments when none is given
	DefaultIntervalDays int

	Numbering numerator.Config
}

// DefaultConfig returns 30-day terms and R-YYYY-NNNNN numbers.
func DefaultConfig() Config {
	return Config{
		DefaultMarginPercent: decimal.Zero,
		DefaultTermDays:      30,
		DefaultIntervalDays:  30,
		Numbering:            numerator.DefaultConfig("R"),
	}
}
