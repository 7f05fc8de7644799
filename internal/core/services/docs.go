// Package services implements the realtime order-synchronization core that
// keeps customers, restaurants and riders aligned on order progress.
//
// The package includes:
//   - OrderStateMachine: serialized delivery status transitions with fan-out
//   - LocationStream: rider GPS ingestion with staleness and throttle rules
//   - ConversationRegistry: one idempotent chat conversation per order
//   - MessageRouter: sequenced, persisted, ordered chat delivery
//   - SubscriptionManager: per-connection channel subscriptions and pumping
//
// All services fan out over the ports.EventBus abstraction and persist through
// the unit of work, so the same core runs against the in-process bus in a
// single node or Redis/RabbitMQ across nodes.
package services
