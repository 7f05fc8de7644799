// Package chat provides domain entities for the order-scoped chat thread.
//
// The package includes:
//   - Conversation: the single chat thread scoped to one order, with its participants
//   - Message: an immutable chat message carrying a per-conversation sequence number
//
// Key business rules:
//   - Exactly one conversation exists per order (enforced by the registry's
//     idempotent get-or-create and a unique storage constraint)
//   - Message sequence numbers are strictly increasing within a conversation
//     with no reuse, even across failed sends
//   - Messages are append-only and immutable once accepted
package chat
