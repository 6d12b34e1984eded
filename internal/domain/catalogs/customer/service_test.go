package customer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/app/apptest"
	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/types"
)

func TestIncreaseDebt_ConcurrentCallsAreNotLost(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	c := env.Customer(t, "Dona Maria")

	const calls = 20
	var wg sync.WaitGroup
	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Customers.IncreaseDebt(ctx, c.ID, types.MustMoney("2.50"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := env.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", got.DebtBalance.StringFixed(2))
}

func TestDecreaseDebt_FloorsAtZero(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	c := env.Customer(t, "Seu Jorge")

	_, err := env.Customers.IncreaseDebt(ctx, c.ID, types.MustMoney("5.00"))
	require.NoError(t, err)

	balance, err := env.Customers.DecreaseDebt(ctx, c.ID, types.MustMoney("7.00"))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestReceivePayment(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	c := env.Customer(t, "Dona Maria")
	_, err := env.Customers.IncreaseDebt(ctx, c.ID, types.MustMoney("30.00"))
	require.NoError(t, err)

	t.Run("partial payment lowers the balance", func(t *testing.T) {
		balance, err := env.Customers.ReceivePayment(ctx, c.ID, types.MustMoney("10.00"))
		require.NoError(t, err)
		assert.Equal(t, "20.00", balance.StringFixed(2))
	})

	t.Run("overpayment is rejected and balance kept", func(t *testing.T) {
		_, err := env.Customers.ReceivePayment(ctx, c.ID, types.MustMoney("25.00"))
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))

		got, err := env.Customers.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "20.00", got.DebtBalance.StringFixed(2))
	})

	t.Run("non-positive amount is rejected", func(t *testing.T) {
		_, err := env.Customers.ReceivePayment(ctx, c.ID, types.Zero())
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})
}
