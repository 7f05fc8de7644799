package services_test

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordersync/internal/adapters/out/bus/membus"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/ports"
	"ordersync/internal/core/services"
	"ordersync/internal/pkg/errs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func storedOrder(t *testing.T, store *memStore) *order.Order {
	t.Helper()

	restaurant, err := kernel.NewGeoPoint(43.238949, 76.889709)
	require.NoError(t, err)
	customer, err := kernel.NewGeoPoint(43.222015, 76.851248)
	require.NoError(t, err)

	o, err := order.NewOrder(
		kernel.NewUUID(),
		kernel.NewUUID(),
		kernel.NewUUID(),
		kernel.NewUUID(),
		order.Waypoint{Name: "Napoli Pizza", Point: restaurant},
		order.Waypoint{Name: "Green Tower, apt 12", Point: customer},
		[]order.Item{{Name: "Margherita", Quantity: 2}},
	)
	require.NoError(t, err)

	repo := memOrderRepo{store: store}
	require.NoError(t, repo.Add(t.Context(), o))
	return o
}

func receiveStatus(t *testing.T, sub ports.Subscription) services.StatusUpdate {
	t.Helper()

	select {
	case env, ok := <-sub.Events():
		require.True(t, ok, "status subscription closed unexpectedly")
		var update services.StatusUpdate
		require.NoError(t, json.Unmarshal(env.Payload, &update))
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status update")
		return services.StatusUpdate{}
	}
}

func Test_OrderStateMachine_WalksTheWorkflowAndPublishesEachStep(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	o := storedOrder(t, store)

	sub, err := bus.Subscribe(services.StatusChannel(o.ID()), ports.SubscribeOptions{BufferSize: 16})
	require.NoError(t, err)

	// When / Then
	for _, target := range []order.Status{order.PickedUp, order.OnTheWay, order.Delivered} {
		status, err := sm.Transition(t.Context(), o.ID(), o.RiderID(), target)
		require.NoError(t, err)
		assert.Equal(t, target, status)

		update := receiveStatus(t, sub)
		assert.Equal(t, target.String(), update.Status)
		assert.Equal(t, o.ID().String(), update.OrderID)
		assert.Equal(t, o.RiderID().String(), update.RiderID)
		assert.False(t, update.UpdatedAt.IsZero())
	}

	stored, err := (&memOrderRepo{store: store}).Get(t.Context(), o.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Delivered, stored.Status())
	assert.True(t, sm.IsTerminal(o.ID()))
}

func Test_OrderStateMachine_RejectsIllegalJumpWithoutSideEffects(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	o := storedOrder(t, store)

	sub, err := bus.Subscribe(services.StatusChannel(o.ID()), ports.SubscribeOptions{BufferSize: 16})
	require.NoError(t, err)

	// When: skipping PickedUp is not a legal edge
	status, err := sm.Transition(t.Context(), o.ID(), o.RiderID(), order.OnTheWay)

	// Then
	require.ErrorIs(t, err, order.ErrInvalidTransition)
	assert.Equal(t, order.Assigned, status)

	stored, err := (&memOrderRepo{store: store}).Get(t.Context(), o.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Assigned, stored.Status())

	select {
	case env := <-sub.Events():
		t.Fatalf("rejected transition must not publish, got %s", env.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func Test_OrderStateMachine_RejectsAnyTransitionOnDeliveredOrder(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	o := storedOrder(t, store)

	for _, target := range []order.Status{order.PickedUp, order.OnTheWay, order.Delivered} {
		_, err := sm.Transition(t.Context(), o.ID(), o.RiderID(), target)
		require.NoError(t, err)
	}

	// When
	_, err := sm.Transition(t.Context(), o.ID(), o.RiderID(), order.PickedUp)

	// Then
	assert.ErrorIs(t, err, order.ErrOrderClosed)
}

func Test_OrderStateMachine_ConcurrentSameTransitionHasOneWinner(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	o := storedOrder(t, store)

	sub, err := bus.Subscribe(services.StatusChannel(o.ID()), ports.SubscribeOptions{BufferSize: 16})
	require.NoError(t, err)

	// When: two callers race on the same edge
	const racers = 2
	errors := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errors[i] = sm.Transition(t.Context(), o.ID(), o.RiderID(), order.PickedUp)
		}(i)
	}
	wg.Wait()

	// Then: exactly one winner, the loser fails against the winner's state
	var wins, losses int
	for _, err := range errors {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, order.ErrInvalidTransition)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	update := receiveStatus(t, sub)
	assert.Equal(t, order.PickedUp.String(), update.Status)

	select {
	case env := <-sub.Events():
		t.Fatalf("only the winner may publish, got extra %s", env.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func Test_OrderStateMachine_NotifiesClosersOnTerminalTransition(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	o := storedOrder(t, store)

	var closed []kernel.UUID
	sm.AddCloser(closerFunc(func(orderID kernel.UUID, _ time.Time) {
		closed = append(closed, orderID)
	}))

	// When
	for _, target := range []order.Status{order.PickedUp, order.OnTheWay} {
		_, err := sm.Transition(t.Context(), o.ID(), o.RiderID(), target)
		require.NoError(t, err)
	}
	require.Empty(t, closed)

	_, err := sm.Transition(t.Context(), o.ID(), o.RiderID(), order.Delivered)
	require.NoError(t, err)

	// Then
	require.Len(t, closed, 1)
	assert.True(t, closed[0].IsEqual(o.ID()))
}

func Test_OrderStateMachine_WarmUpSeedsOnlyActiveOrders(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	active := storedOrder(t, store)
	delivered := storedOrder(t, store)

	first := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	for _, target := range []order.Status{order.PickedUp, order.OnTheWay, order.Delivered} {
		_, err := first.Transition(t.Context(), delivered.ID(), delivered.RiderID(), target)
		require.NoError(t, err)
	}

	// When: a fresh process warms up from storage
	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	require.NoError(t, sm.WarmUp(t.Context()))

	// Then
	status, err := sm.Status(t.Context(), active.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Assigned, status)
}

func Test_OrderStateMachine_RetireAndSweep(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())
	o := storedOrder(t, store)

	for _, target := range []order.Status{order.PickedUp, order.OnTheWay, order.Delivered} {
		_, err := sm.Transition(t.Context(), o.ID(), o.RiderID(), target)
		require.NoError(t, err)
	}

	// When / Then
	assert.Empty(t, sm.TerminalBefore(time.Now().Add(-time.Hour)))

	due := sm.TerminalBefore(time.Now().Add(time.Hour))
	require.Len(t, due, 1)
	assert.True(t, due[0].IsEqual(o.ID()))

	sm.Retire(o.ID())
	assert.False(t, sm.IsTerminal(o.ID()))
	assert.Empty(t, sm.TerminalBefore(time.Now().Add(time.Hour)))
}

func Test_OrderStateMachine_UnknownOrder(t *testing.T) {
	// Given
	store := newMemStore()
	bus := membus.New()
	defer bus.Close()

	sm := services.NewOrderStateMachine(&memUoWFactory{store: store}, bus, testLogger())

	// When
	_, err := sm.Transition(t.Context(), kernel.NewUUID(), kernel.NewUUID(), order.PickedUp)

	// Then
	assert.ErrorIs(t, err, errs.ErrObjectNotFound)
}

// closerFunc adapts a function to the OrderCloser interface.
type closerFunc func(orderID kernel.UUID, at time.Time)

func (f closerFunc) CloseOrder(orderID kernel.UUID, at time.Time) {
	f(orderID, at)
}
