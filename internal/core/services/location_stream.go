package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/domain/model/tracking"
	"ordersync/internal/core/ports"
)

// TerminalChecker answers whether an order is known to be delivered.
// The state machine implements it.
type TerminalChecker interface {
	IsTerminal(orderID kernel.UUID) bool
}

// LocationStream ingests rider GPS fixes and fans them out on per-order
// location channels.
//
// Per (order, rider) pair only the latest accepted fix is retained; a fix
// whose timestamp is not strictly newer than the last accepted one is
// silently dropped. Broadcasts are throttled to a trailing-edge schedule: at
// most one publish per order per interval, always carrying the latest
// retained fix, so a burst of samples collapses into the freshest position.
//
// Ingestion stops the moment the owning order goes terminal; retained fixes
// are discarded at the same time.
type LocationStream struct {
	bus      ports.EventBus
	terminal TerminalChecker
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	orders map[string]*orderTrack

	now func() time.Time
}

// orderTrack is the per-order ingestion state.
type orderTrack struct {
	lastByRider   map[string]tracking.Sample
	riderIDs      map[string]kernel.UUID
	lastBroadcast time.Time
	pending       *LocationUpdate
	timer         *time.Timer
	closed        bool
}

// NewLocationStream creates the stream. A non-positive interval disables
// throttling: every accepted fix is broadcast immediately.
func NewLocationStream(bus ports.EventBus, terminal TerminalChecker, interval time.Duration, logger *slog.Logger) *LocationStream {
	return &LocationStream{
		bus:      bus,
		terminal: terminal,
		interval: interval,
		logger:   logger.With("component", "location_stream"),
		orders:   make(map[string]*orderTrack),
		now:      time.Now,
	}
}

// Publish ingests one GPS fix for the rider on the given order.
//
// Returns (true, nil) when the fix was accepted, whether or not it was
// broadcast immediately. A stale fix (timestamp not strictly newer than the
// last accepted one for the same order and rider) returns (false, nil): it
// is a normal consequence of device clocks and retried uploads, not an
// error. Publishing on a delivered order fails with order.ErrOrderClosed.
func (s *LocationStream) Publish(ctx context.Context, orderID kernel.UUID, riderID kernel.UUID, sample tracking.Sample) (bool, error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}

	orderKey := orderID.String()
	riderKey := riderID.String()

	s.mu.Lock()

	track, ok := s.orders[orderKey]
	if !ok {
		if s.terminal.IsTerminal(orderID) {
			s.mu.Unlock()
			return false, order.ErrOrderClosed
		}
		track = &orderTrack{
			lastByRider: make(map[string]tracking.Sample),
			riderIDs:    make(map[string]kernel.UUID),
		}
		s.orders[orderKey] = track
	}
	if track.closed || s.terminal.IsTerminal(orderID) {
		s.mu.Unlock()
		return false, order.ErrOrderClosed
	}

	if last, seen := track.lastByRider[riderKey]; seen && !sample.IsNewerThan(last) {
		s.mu.Unlock()
		return false, nil
	}

	track.lastByRider[riderKey] = sample
	track.riderIDs[riderKey] = riderID

	update := newLocationUpdate(orderID, riderID, sample)
	now := s.now()

	if track.timer == nil && now.Sub(track.lastBroadcast) >= s.interval {
		track.lastBroadcast = now
		track.pending = nil
		s.mu.Unlock()

		s.broadcast(ctx, orderID, update)
		return true, nil
	}

	// Inside the throttle window: retain the freshest fix and arm a
	// trailing-edge flush for the window boundary if one is not armed yet.
	track.pending = &update
	if track.timer == nil {
		remaining := s.interval - now.Sub(track.lastBroadcast)
		track.timer = time.AfterFunc(remaining, func() {
			s.flush(orderID)
		})
	}
	s.mu.Unlock()

	return true, nil
}

// LastKnown returns the latest retained fix for each rider on the order,
// sorted by rider identifier. Empty once the order is terminal or unknown.
func (s *LocationStream) LastKnown(orderID kernel.UUID) []LocationUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, ok := s.orders[orderID.String()]
	if !ok || track.closed {
		return nil
	}

	updates := make([]LocationUpdate, 0, len(track.lastByRider))
	for riderKey, sample := range track.lastByRider {
		updates = append(updates, newLocationUpdate(orderID, track.riderIDs[riderKey], sample))
	}
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].RiderID < updates[j].RiderID
	})
	return updates
}

// CloseOrder stops ingestion for the order and discards its retained fixes.
// Invoked by the state machine on the terminal transition.
func (s *LocationStream) CloseOrder(orderID kernel.UUID, _ time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, ok := s.orders[orderID.String()]
	if !ok {
		// Remember the closure so a late fix cannot resurrect the order.
		s.orders[orderID.String()] = &orderTrack{closed: true}
		return
	}

	track.closed = true
	track.pending = nil
	track.lastByRider = nil
	track.riderIDs = nil
	if track.timer != nil {
		track.timer.Stop()
		track.timer = nil
	}
}

// Retire drops all state for a closed order.
func (s *LocationStream) Retire(orderID kernel.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orders, orderID.String())
}

// flush publishes the pending fix at the end of a throttle window.
func (s *LocationStream) flush(orderID kernel.UUID) {
	s.mu.Lock()

	track, ok := s.orders[orderID.String()]
	if !ok {
		s.mu.Unlock()
		return
	}
	track.timer = nil

	if track.closed || track.pending == nil {
		s.mu.Unlock()
		return
	}

	update := *track.pending
	track.pending = nil
	track.lastBroadcast = s.now()
	s.mu.Unlock()

	s.broadcast(context.Background(), orderID, update)
}

func (s *LocationStream) broadcast(ctx context.Context, orderID kernel.UUID, update LocationUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		s.logger.Error("marshal location update", "order_id", orderID, "error", err)
		return
	}

	if err = s.bus.Publish(ctx, LocationChannel(orderID), payload); err != nil {
		s.logger.Error("publish location update", "order_id", orderID, "error", err)
	}
}
