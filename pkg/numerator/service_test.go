package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "lotkeeper/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences for a single key.
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
	err          error
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	// Strict passes (key); cached passes (key, size).
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}
	m.currentValue += increment
	return &mockRow{val: m.currentValue}
}

var period = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	cfg := corenumerator.DefaultConfig("V")

	num, err := svc.GetNextNumber(context.Background(), cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "V-2026-00001", num)

	num, err = svc.GetNextNumber(context.Background(), cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "V-2026-00002", num)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := NewWithQuerierFunc(func(context.Context) Querier { return q }, StrategyCached, 10)
	cfg := corenumerator.DefaultConfig("R")
	ctx := context.Background()

	num, err := svc.GetNextNumber(ctx, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "R-2026-00001", num)
	assert.Equal(t, int64(10), q.currentValue)

	for i := 0; i < 9; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, period)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.calls, "range of 10 served from memory")

	num, err = svc.GetNextNumber(ctx, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "R-2026-00011", num)
	assert.Equal(t, int64(20), q.currentValue)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_QueryError(t *testing.T) {
	svc := New(&mockQuerier{err: errors.New("connection reset")})

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("V"), period)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("V-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("R-00007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
	assert.Equal(t, int64(-1), ParseNumber("V-"))
}

func TestConfigFormat_NoYear(t *testing.T) {
	cfg := corenumerator.Config{Prefix: "C", PadWidth: 3, ResetPeriod: "never"}
	assert.Equal(t, "C-007", cfg.Format(period, 7))
	assert.Equal(t, "C", cfg.Key(period))
}
