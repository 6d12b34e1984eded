package memory

import (
	"context"
	"time"

	"lotkeeper/internal/core/numerator"
	"lotkeeper/internal/domain/audit"
	"lotkeeper/internal/domain/events"
)

// --- Numbering ---

var _ numerator.Generator = (*Sequences)(nil)

// Sequences implements numerator.Generator with gap-free counters.
type Sequences struct{ store *Store }

// Sequences returns the document numbering of the store.
func (s *Store) Sequences() *Sequences { return &Sequences{store: s} }

func (g *Sequences) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	var next int64
	_ = g.store.write(func(st *state) error {
		key := cfg.Key(period)
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	return cfg.Format(period, next), nil
}

// --- Audit ---

var _ audit.Recorder = (*AuditLog)(nil)

// AuditLog implements audit.Recorder.
type AuditLog struct{ store *Store }

// Audit returns the audit trail of the store.
func (s *Store) Audit() *AuditLog { return &AuditLog{store: s} }

func (a *AuditLog) Record(ctx context.Context, entry audit.Entry) error {
	return a.store.write(func(st *state) error {
		st.audit = append(st.audit, entry)
		return nil
	})
}

// Entries returns every recorded entry, oldest first.
func (a *AuditLog) Entries() []audit.Entry {
	var out []audit.Entry
	a.store.read(func(st *state) { out = append(out, st.audit...) })
	return out
}

// --- Outbox ---

var _ events.Publisher = (*Outbox)(nil)

// Outbox implements events.Publisher; events roll back with their transaction.
type Outbox struct{ store *Store }

// Outbox returns the event outbox of the store.
func (s *Store) Outbox() *Outbox { return &Outbox{store: s} }

func (o *Outbox) Publish(ctx context.Context, event events.Event) error {
	return o.store.write(func(st *state) error {
		st.outbox = append(st.outbox, event)
		return nil
	})
}

// Events returns every committed event, oldest first.
func (o *Outbox) Events() []events.Event {
	var out []events.Event
	o.store.read(func(st *state) { out = append(out, st.outbox...) })
	return out
}

// Types returns the type of every committed event, oldest first.
func (o *Outbox) Types() []string {
	var out []string
	o.store.read(func(st *state) {
		for _, e := range st.outbox {
			out = append(out, e.Type)
		}
	})
	return out
}
