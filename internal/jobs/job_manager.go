package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"ordersync/internal/core/services"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	orderRetirementJob *OrderRetirementJob
}

// NewJobManager creates a new job manager with all required jobs.
// Takes the realtime services as dependencies to wire up the sweeps.
func NewJobManager(
	stateMachine *services.OrderStateMachine,
	stream *services.LocationStream,
	registry *services.ConversationRegistry,
	router *services.MessageRouter,
	retention time.Duration,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		orderRetirementJob: NewOrderRetirementJob(stateMachine, stream, registry, router, retention, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.orderRetirementJob.Start(); err != nil {
		return fmt.Errorf("failed to start order retirement job: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.orderRetirementJob.Stop()
}
