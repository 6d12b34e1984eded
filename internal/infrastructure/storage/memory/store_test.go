package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/domain/catalogs/product"
)

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := product.NewProduct("Rice", product.UnitPiece)

	err := s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Products().Create(ctx, p))
		return errors.New("boom")
	})
	require.Error(t, err)

	_, err = s.Products().GetByID(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestTxManager_TransactionsOfOtherStoresAreNotJoined(t *testing.T) {
	ctx := context.Background()
	a, b := New(), New()
	inB := product.NewProduct("Beans", product.UnitPiece)

	err := a.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		berr := b.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, b.Products().Create(ctx, inB))
			return errors.New("b fails")
		})
		require.Error(t, berr)
		return nil
	})
	require.NoError(t, err)

	_, err = b.Products().GetByID(ctx, inB.ID)
	assert.True(t, apperror.IsNotFound(err), "failed transaction of store b must roll back even inside a transaction of store a")
}

func TestTxManager_NestedCallJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := product.NewProduct("Salt", product.UnitPiece)

	err := s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
			return s.Products().Create(ctx, p)
		}))
		return errors.New("outer fails")
	})
	require.Error(t, err)

	_, err = s.Products().GetByID(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
}
