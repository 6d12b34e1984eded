// Package numerator provides PostgreSQL-backed document auto-numbering.
// It implements core/numerator.Generator on top of the sys_sequences table.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "lotkeeper/internal/core/numerator"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict runs one UPSERT ... RETURNING per number inside the caller's
	// transaction, so a rolled back sale does not burn a number.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory.
	// Faster, but may leave gaps when the process restarts.
	StrategyCached
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for ctx (the active transaction, or the pool).
type QuerierFunc func(ctx context.Context) Querier

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering functionality using PostgreSQL.
type Service struct {
	querier   QuerierFunc
	strategy  Strategy
	rangeSize int64

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a strict numerator bound to a fixed querier.
func New(querier Querier) *Service {
	return NewWithQuerierFunc(func(context.Context) Querier { return querier }, StrategyStrict, 0)
}

// NewWithQuerierFunc creates a numerator resolving its querier per call.
// rangeSize applies to StrategyCached only (default 50).
func NewWithQuerierFunc(fn QuerierFunc, strategy Strategy, rangeSize int64) *Service {
	if rangeSize <= 0 {
		rangeSize = 50
	}
	return &Service{
		querier:   fn,
		strategy:  strategy,
		rangeSize: rangeSize,
		ranges:    make(map[string]*cachedRange),
	}
}

// GetNextNumber implements corenumerator.Generator.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key := cfg.Key(period)

	var (
		num int64
		err error
	)
	switch s.strategy {
	case StrategyCached:
		num, err = s.getNextCached(ctx, key)
	default:
		num, err = s.getNextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return cfg.Format(period, num), nil
}

// getNextStrict fetches the next number directly from DB using UPSERT + RETURNING.
func (s *Service) getNextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// getNextCached serves numbers from memory, reserving a new range when exhausted.
// current_val in sys_sequences always holds the last reserved number.
func (s *Service) getNextCached(ctx context.Context, key string) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		var newMax int64
		err := s.querier(ctx).QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, key, s.rangeSize).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}
		// Range is (newMax-size, newMax]
		rng.current = newMax - s.rangeSize
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber overrides the last issued number (data migration) and drops
// any cached range for the key.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	key := cfg.Key(period)

	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()

	if err != nil {
		return fmt.Errorf("set next number: %w", err)
	}
	return nil
}

// ParseNumber extracts the numeric tail of a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	idx := strings.LastIndex(formatted, "-")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
