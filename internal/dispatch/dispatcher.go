// Package dispatch is the single write path for new domain events.
//
// Feature code calls Dispatch, which assigns identity and time, persists
// the event as pending, and folds it into the projection synchronously -
// the dispatching caller always observes its own write before any network
// sync happens. The sync manager uses the ingest entry points instead,
// which skip re-dispatch and go straight to projection + store.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/platelog/internal/event"
	"github.com/roach88/platelog/internal/projection"
	"github.com/roach88/platelog/internal/store"
)

// Dispatcher owns the in-memory event list and current projection state.
// It is constructed by the application root and handed to the sync
// manager by reference - no package-level singleton.
type Dispatcher struct {
	mu     sync.Mutex
	store  *store.Store
	state  projection.State
	events []event.Event
	seen   map[string]bool

	now   func() time.Time
	newID func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock substitutes the wall clock. Tests use a fixed clock so
// event timestamps are deterministic.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithIDGenerator substitutes the event ID generator for tests.
func WithIDGenerator(gen func() string) Option {
	return func(d *Dispatcher) {
		d.newID = gen
	}
}

// New creates a Dispatcher over the given store with empty projection
// state. Event IDs are UUIDv7: time-sortable, which keeps the local log
// roughly append-ordered even under ID-based tie-breaks.
func New(s *store.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store: s,
		state: projection.NewState(),
		seen:  make(map[string]bool),
		now:   time.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch creates a new event, persists it as pending, and applies it to
// the projection. Storage failures propagate and leave the projection
// untouched - a dispatch failing silently would lose user data.
//
// The sync manager is expected to be triggered separately to push the new
// pending event; that is outside this call.
func (d *Dispatcher) Dispatch(ctx context.Context, kind event.Kind, payload event.Payload) (event.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := event.Event{
		ID:        d.newID(),
		Kind:      kind,
		Timestamp: d.now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}

	if err := d.store.Append(ctx, e); err != nil {
		return event.Event{}, fmt.Errorf("dispatch %s: %w", kind, err)
	}

	d.remember(e)
	d.state = projection.Apply(d.state, e)
	return e, nil
}

// IngestSynced stores a single pulled remote event as already-synced and
// applies it to the projection. For the sync manager only.
func (d *Dispatcher) IngestSynced(ctx context.Context, e event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.IngestRemote(ctx, e); err != nil {
		return err
	}

	d.remember(e)
	d.state = projection.Apply(d.state, e)
	return nil
}

// BatchHydrate applies a batch of events and records them in the store as
// synced. Used for initial load (events already in the store are ingest
// no-ops) and bulk remote pulls. Batch application is equivalent to
// applying each event individually in order.
func (d *Dispatcher) BatchHydrate(ctx context.Context, events []event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range events {
		if err := d.store.IngestRemote(ctx, e); err != nil {
			return err
		}
		d.remember(e)
	}
	d.state = projection.ApplyAll(d.state, events)
	return nil
}

// Rehydrate discards the in-memory state and rebuilds it by replaying
// every event left in the store, in timestamp order.
func (d *Dispatcher) Rehydrate(ctx context.Context) error {
	records, err := d.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = projection.NewState()
	d.events = nil
	d.seen = make(map[string]bool)
	for _, rec := range records {
		d.remember(rec.Event)
		d.state = projection.Apply(d.state, rec.Event)
	}
	return nil
}

// State returns the current projection state. Apply is copy-on-write, so
// the returned value is a stable snapshot; callers must treat it as
// read-only.
func (d *Dispatcher) State() projection.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Seen reports whether an event ID is already in the in-memory event
// list. The sync manager's inbound deduplication guard.
func (d *Dispatcher) Seen(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[eventID]
}

func (d *Dispatcher) remember(e event.Event) {
	if d.seen[e.ID] {
		return
	}
	d.seen[e.ID] = true
	d.events = append(d.events, e)
}
