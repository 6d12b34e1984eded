// Package memory is an in-process implementation of every repository, the
// unit of work and the outbox. Tests and the demo mode of the server use it.
//
// Transactions are serialized: one runs at a time and a failed one restores
// the snapshot taken when it began.
package memory

import (
	"context"
	"sync"

	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/domain/audit"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/catalogs/supplier"
	"lotkeeper/internal/domain/documents/inventory"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/batch"
)

type state struct {
	products     map[id.ID]product.Product
	customers    map[id.ID]customer.Customer
	suppliers    map[id.ID]supplier.Supplier
	batches      map[id.ID]batch.StockBatch
	movements    []entity.StockMovement
	transactions map[id.ID]finance.Transaction
	sales        map[id.ID]sale.Sale
	receipts     map[id.ID]purchase.Receipt
	counts       map[id.ID]inventory.Count
	sequences    map[string]int64
	audit        []audit.Entry
	outbox       []events.Event

	batchSeq    int64
	movementSeq int64
}

func newState() *state {
	return &state{
		products:     make(map[id.ID]product.Product),
		customers:    make(map[id.ID]customer.Customer),
		suppliers:    make(map[id.ID]supplier.Supplier),
		batches:      make(map[id.ID]batch.StockBatch),
		transactions: make(map[id.ID]finance.Transaction),
		sales:        make(map[id.ID]sale.Sale),
		receipts:     make(map[id.ID]purchase.Receipt),
		counts:       make(map[id.ID]inventory.Count),
		sequences:    make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:     cloneMap(s.products, func(v product.Product) product.Product { return v }),
		customers:    cloneMap(s.customers, func(v customer.Customer) customer.Customer { return v }),
		suppliers:    cloneMap(s.suppliers, func(v supplier.Supplier) supplier.Supplier { return v }),
		batches:      cloneMap(s.batches, func(v batch.StockBatch) batch.StockBatch { return v }),
		movements:    append([]entity.StockMovement(nil), s.movements...),
		transactions: cloneMap(s.transactions, copyTransaction),
		sales:        cloneMap(s.sales, copySale),
		receipts:     cloneMap(s.receipts, copyReceipt),
		counts:       cloneMap(s.counts, copyCount),
		sequences:    cloneMap(s.sequences, func(v int64) int64 { return v }),
		audit:        append([]audit.Entry(nil), s.audit...),
		outbox:       append([]events.Event(nil), s.outbox...),
		batchSeq:     s.batchSeq,
		movementSeq:  s.movementSeq,
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V, cp func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = cp(v)
	}
	return out
}

func copyTransaction(t finance.Transaction) finance.Transaction {
	t.LineItems = append([]finance.LineItem(nil), t.LineItems...)
	return t
}

func copySale(s sale.Sale) sale.Sale {
	s.Items = append([]sale.Item(nil), s.Items...)
	s.Allocations = append([]sale.Allocation(nil), s.Allocations...)
	return s
}

func copyReceipt(r purchase.Receipt) purchase.Receipt {
	r.Lines = append([]purchase.ReceiptLine(nil), r.Lines...)
	return r
}

func copyCount(c inventory.Count) inventory.Count {
	c.Lines = append([]inventory.Line(nil), c.Lines...)
	return c
}

// Store holds all data of one in-memory database.
type Store struct {
	mu   sync.Mutex
	data *state

	// txMu is held for the whole of a top-level transaction
	txMu sync.Mutex
}

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// read runs fn under the data lock.
func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// write runs fn under the data lock.
func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// --- Unit of work ---

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.Manager = (*TxManager)(nil)

// txKey marks a context as inside a transaction of one particular store.
type txKey struct{ store *Store }

// TxManager runs transactions against a Store.
type TxManager struct {
	store *Store
}

// TxManager returns the unit of work of the store.
func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

// RunInTransaction executes fn atomically. Nested calls join the outer
// transaction. A panic in fn rolls back and is re-raised.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	key := txKey{store: m.store}
	if ctx.Value(key) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	var snapshot *state
	m.store.read(func(st *state) { snapshot = st.clone() })

	defer func() {
		if p := recover(); p != nil {
			m.store.rollback(snapshot)
			panic(p)
		}
		if err != nil {
			m.store.rollback(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, key, true))
}

func (s *Store) rollback(snapshot *state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}
