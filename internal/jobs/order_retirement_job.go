package jobs

import (
	"context"
	"log/slog"
	"time"

	"ordersync/internal/core/services"

	"github.com/robfig/cron/v3"
)

// DefaultRetention is how long a delivered order's realtime state is kept
// before the sweep reclaims it. It must exceed the chat grace period so
// goodbye messages are never cut short.
const DefaultRetention = 30 * time.Minute

// OrderRetirementJob periodically reclaims realtime state held for orders
// that were delivered long enough ago. For each such order it retires the
// state machine's cache and lock, the location stream's fixes, and the
// conversation registry's cache together with the message router's lock.
//
// Chat history and order records stay in storage; only in-memory realtime
// state is released.
type OrderRetirementJob struct {
	stateMachine *services.OrderStateMachine
	stream       *services.LocationStream
	registry     *services.ConversationRegistry
	router       *services.MessageRouter
	retention    time.Duration
	cron         *cron.Cron
	logger       *slog.Logger
}

// NewOrderRetirementJob creates the retirement sweep. A non-positive
// retention falls back to DefaultRetention.
func NewOrderRetirementJob(
	stateMachine *services.OrderStateMachine,
	stream *services.LocationStream,
	registry *services.ConversationRegistry,
	router *services.MessageRouter,
	retention time.Duration,
	logger *slog.Logger,
) *OrderRetirementJob {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &OrderRetirementJob{
		stateMachine: stateMachine,
		stream:       stream,
		registry:     registry,
		router:       router,
		retention:    retention,
		cron:         cron.New(),
		logger:       logger.With("component", "order_retirement_job"),
	}
}

// Start begins the retirement sweep, running every minute.
func (j *OrderRetirementJob) Start() error {
	_, err := j.cron.AddFunc("* * * * *", j.sweep)
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Order retirement job started", "retention", j.retention.String())
	return nil
}

// Stop stops the retirement sweep.
func (j *OrderRetirementJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Order retirement job stopped")
}

// sweep retires every order that went terminal before the retention cutoff.
func (j *OrderRetirementJob) sweep() {
	ctx := context.Background()
	cutoff := time.Now().Add(-j.retention)

	expired := j.stateMachine.TerminalBefore(cutoff)
	for _, orderID := range expired {
		j.stateMachine.Retire(orderID)
		j.stream.Retire(orderID)
		if conversationID, ok := j.registry.Retire(orderID); ok {
			j.router.RetireConversation(conversationID)
		}
		j.logger.InfoContext(ctx, "Order retired", "order_id", orderID)
	}
}
