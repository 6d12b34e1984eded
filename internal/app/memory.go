package app

import (
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/infrastructure/storage/memory"
)

// MemoryStores backs the engine with an in-process store.
func MemoryStores(m *memory.Store, locker lock.Locker) Stores {
	return Stores{
		Products:     m.Products(),
		Customers:    m.Customers(),
		Suppliers:    m.Suppliers(),
		Batches:      m.Batches(),
		Movements:    m.Movements(),
		Transactions: m.Transactions(),
		Sales:        m.Sales(),
		Receipts:     m.Receipts(),
		Counts:       m.Counts(),
		Numerator:    m.Sequences(),
		TxManager:    m.TxManager(),
		Audit:        m.Audit(),
		Events:       m.Outbox(),
		Locker:       locker,
	}
}
