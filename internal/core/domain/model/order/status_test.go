package order_test

import (
	"fmt"
	"testing"

	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Constants(t *testing.T) {
	t.Run("should have correct enum values", func(t *testing.T) {
		assert.Equal(t, 0, int(order.Unknown))
		assert.Equal(t, 1, int(order.Assigned))
		assert.Equal(t, 2, int(order.PickedUp))
		assert.Equal(t, 3, int(order.OnTheWay))
		assert.Equal(t, 4, int(order.Delivered))
	})
}

func TestStatus_Validate(t *testing.T) {
	t.Run("should validate valid statuses", func(t *testing.T) {
		validStatuses := []order.Status{
			order.Assigned,
			order.PickedUp,
			order.OnTheWay,
			order.Delivered,
		}

		for _, status := range validStatuses {
			t.Run(fmt.Sprintf("should validate %s status", status.String()), func(t *testing.T) {
				require.NoError(t, status.Validate())
			})
		}
	})

	t.Run("should reject Unknown status", func(t *testing.T) {
		err := order.Unknown.Validate()

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject out of range status", func(t *testing.T) {
		err := order.Status(99).Validate()

		require.Error(t, err)
	})
}

func TestStatus_String(t *testing.T) {
	testCases := []struct {
		status   order.Status
		expected string
	}{
		{order.Unknown, "UNKNOWN"},
		{order.Assigned, "ASSIGNED"},
		{order.PickedUp, "PICKED_UP"},
		{order.OnTheWay, "ON_THE_WAY"},
		{order.Delivered, "DELIVERED"},
		{order.Status(42), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.String())
		})
	}
}

func TestParseStatus(t *testing.T) {
	t.Run("should parse wire names", func(t *testing.T) {
		testCases := map[string]order.Status{
			"ASSIGNED":   order.Assigned,
			"PICKED_UP":  order.PickedUp,
			"ON_THE_WAY": order.OnTheWay,
			"DELIVERED":  order.Delivered,
		}

		for wire, expected := range testCases {
			status, err := order.ParseStatus(wire)

			require.NoError(t, err)
			assert.Equal(t, expected, status)
		}
	})

	t.Run("should reject unknown names", func(t *testing.T) {
		_, err := order.ParseStatus("CANCELLED")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject empty string", func(t *testing.T) {
		_, err := order.ParseStatus("")

		require.Error(t, err)
	})
}

func TestStatus_TransitionTo(t *testing.T) {
	t.Run("should allow workflow edges", func(t *testing.T) {
		edges := []struct {
			from order.Status
			to   order.Status
		}{
			{order.Assigned, order.PickedUp},
			{order.PickedUp, order.OnTheWay},
			{order.OnTheWay, order.Delivered},
		}

		for _, edge := range edges {
			t.Run(fmt.Sprintf("%s_to_%s", edge.from, edge.to), func(t *testing.T) {
				newStatus, err := edge.from.TransitionTo(edge.to)

				require.NoError(t, err)
				assert.Equal(t, edge.to, newStatus)
			})
		}
	})

	t.Run("should reject skips reversals and no-ops", func(t *testing.T) {
		edges := []struct {
			name string
			from order.Status
			to   order.Status
		}{
			{"skip_to_delivered", order.Assigned, order.Delivered},
			{"skip_to_on_the_way", order.Assigned, order.OnTheWay},
			{"reversal", order.OnTheWay, order.PickedUp},
			{"no_op", order.PickedUp, order.PickedUp},
			{"from_terminal", order.Delivered, order.Assigned},
		}

		for _, edge := range edges {
			t.Run(edge.name, func(t *testing.T) {
				_, err := edge.from.TransitionTo(edge.to)

				require.Error(t, err)
				assert.ErrorIs(t, err, order.ErrInvalidTransition)
			})
		}
	})

	t.Run("should reject invalid target", func(t *testing.T) {
		_, err := order.Assigned.TransitionTo(order.Unknown)

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, order.Delivered.IsTerminal())
	assert.False(t, order.Assigned.IsTerminal())
	assert.False(t, order.PickedUp.IsTerminal())
	assert.False(t, order.OnTheWay.IsTerminal())
}

// Delivery statuses observed over any order's lifetime must form a
// subsequence of the full workflow with no repeats or skips.
func TestStatus_WorkflowIsSingleDirectedPath(t *testing.T) {
	all := []order.Status{order.Assigned, order.PickedUp, order.OnTheWay, order.Delivered}

	for i, from := range all {
		for j, to := range all {
			legal := from.CanTransitionTo(to)
			assert.Equal(t, j == i+1, legal, "edge %s -> %s", from, to)
		}
	}
}
