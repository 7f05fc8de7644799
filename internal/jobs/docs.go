// Package jobs provides scheduled background tasks for the realtime core.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// to handle periodic housekeeping the synchronization services need.
//
// # Available Jobs
//
// 1. OrderRetirementJob - Runs every minute to release in-memory realtime
// state (status cache, location fixes, conversation cache, per-entity locks)
// held for orders delivered longer ago than the retention window.
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	// Create job manager with the realtime services
//	jobManager := jobs.NewJobManager(stateMachine, stream, registry, router, retention, logger)
//
//	// Start all jobs
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	// Stop all jobs when shutting down
//	defer jobManager.StopAll()
package jobs
