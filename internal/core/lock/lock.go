// Package lock defines per-key mutual exclusion for the contended resources of the
// engine: the batch list and the on-hand quantity of a product.
package lock

import (
	"context"
	"fmt"

	"lotkeeper/internal/core/id"
)

// Release frees keys obtained by Locker.Acquire. It is safe to call once.
type Release func()

// Locker acquires exclusive locks on a set of keys.
//
// Implementations must acquire keys in the given order and release all of them
// if any acquisition fails. Acquire never waits past ctx's deadline; when the
// wait ends without a lock it returns apperror CodeConcurrentModification.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

// ProductKey is the lock key guarding one product's batches and quantity.
func ProductKey(productID id.ID) string {
	return fmt.Sprintf("lock:product:%s", productID)
}

// ProductKeys returns the sorted, de-duplicated lock keys for products.
func ProductKeys(productIDs []id.ID) []string {
	ids := id.Unique(productIDs)
	keys := make([]string, len(ids))
	for i, p := range ids {
		keys[i] = ProductKey(p)
	}
	return keys
}

// Noop is a Locker that never blocks. Suitable when the store already
// serializes writers (single-process memory store, tests).
type Noop struct{}

// Acquire implements Locker.
func (Noop) Acquire(context.Context, ...string) (Release, error) {
	return func() {}, nil
}
