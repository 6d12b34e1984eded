// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in the storage layer and in pkg/numerator.
package numerator

import (
	"context"
	"fmt"
	"time"
)

// Generator generates sequential document numbers.
type Generator interface {
	// GetNextNumber generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., V-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "V" for sales, "R" for receipts)
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// Key returns the sequence key of cfg for period.
func (c Config) Key(period time.Time) string {
	switch c.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006"))
	default:
		return c.Prefix
	}
}

// Format renders num as a document number.
func (c Config) Format(period time.Time, num int64) string {
	padWidth := c.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	if c.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, padWidth, num)
}
