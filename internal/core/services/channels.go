package services

import (
	"time"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/tracking"
)

// Channel name prefixes. A channel is a flat string "<prefix>/<id>" with no
// wildcard semantics: subscribers attach to exactly one order or conversation.
const (
	statusChannelPrefix   = "status"
	locationChannelPrefix = "location"
	chatChannelPrefix     = "chat"
)

// StatusChannel returns the bus channel carrying status updates for the order.
func StatusChannel(orderID kernel.UUID) string {
	return statusChannelPrefix + "/" + orderID.String()
}

// LocationChannel returns the bus channel carrying location fixes for the order.
func LocationChannel(orderID kernel.UUID) string {
	return locationChannelPrefix + "/" + orderID.String()
}

// ChatChannel returns the bus channel carrying messages for the conversation.
func ChatChannel(conversationID kernel.UUID) string {
	return chatChannelPrefix + "/" + conversationID.String()
}

// StatusUpdate is the wire payload published on a status channel after every
// successful transition.
type StatusUpdate struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	RiderID   string    `json:"riderId"`
	OrderID   string    `json:"orderId"`
}

// LocationUpdate is the wire payload published on a location channel.
// Accuracy is omitted when the device did not report one.
type LocationUpdate struct {
	RiderID  string    `json:"riderId"`
	OrderID  string    `json:"orderId"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Speed    float64   `json:"speed"`
	Bearing  float64   `json:"bearing"`
	Ts       time.Time `json:"ts"`
	Accuracy *float64  `json:"accuracy,omitempty"`
}

// newLocationUpdate flattens a domain sample into its wire shape.
func newLocationUpdate(orderID kernel.UUID, riderID kernel.UUID, sample tracking.Sample) LocationUpdate {
	return LocationUpdate{
		RiderID:  riderID.String(),
		OrderID:  orderID.String(),
		Lat:      sample.Point().Lat(),
		Lng:      sample.Point().Lng(),
		Speed:    sample.Speed(),
		Bearing:  sample.Bearing(),
		Ts:       sample.Ts(),
		Accuracy: sample.Accuracy(),
	}
}

// ChatEvent is the wire payload published on a chat channel for every
// accepted message, in sequence order.
type ChatEvent struct {
	ConversationID string    `json:"conversationId"`
	Sequence       int64     `json:"sequence"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sentAt"`
}

// newChatEvent flattens a domain message into its wire shape.
func newChatEvent(msg chat.Message) ChatEvent {
	return ChatEvent{
		ConversationID: msg.ConversationID().String(),
		Sequence:       msg.Sequence(),
		SenderID:       msg.SenderID().String(),
		Content:        msg.Content(),
		SentAt:         msg.SentAt(),
	}
}
