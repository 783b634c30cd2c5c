package netlog

import (
	"context"

	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
)

const (
	// EventClientConnected is emitted when a websocket session opens.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDisconnected is emitted when a websocket session ends.
	EventClientDisconnected logging.EventType = "network.client_disconnected"
	// EventMessageRejected is emitted when an inbound message fails validation.
	EventMessageRejected logging.EventType = "network.message_rejected"
	// EventCommandDropped is emitted when the simulation queue refuses a command.
	EventCommandDropped logging.EventType = "network.command_dropped"
	// EventSlowConsumer is emitted when a client cannot keep up with broadcasts.
	EventSlowConsumer logging.EventType = "network.slow_consumer"
)

// ClientConnectedPayload captures connection metadata.
type ClientConnectedPayload struct {
	RemoteAddr string `json:"remoteAddr,omitempty"`
}

// ClientDisconnectedPayload captures why the session ended.
type ClientDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// MessageRejectedPayload captures a validation failure.
type MessageRejectedPayload struct {
	MessageType string `json:"messageType"`
	Reason      string `json:"reason"`
}

// CommandDroppedPayload captures queue backpressure drops.
type CommandDroppedPayload struct {
	CommandType string `json:"commandType"`
	Reason      string `json:"reason"`
}

// SlowConsumerPayload captures the backlog that forced a disconnect.
type SlowConsumerPayload struct {
	QueueLength int `json:"queueLength"`
}

// ClientConnected publishes a connection event.
func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClientConnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventClientConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ClientDisconnected publishes a disconnect event.
func ClientDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClientDisconnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventClientDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// MessageRejected publishes a validation warning.
func MessageRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MessageRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMessageRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// CommandDropped publishes a backpressure warning.
func CommandDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandDroppedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventCommandDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// SlowConsumer publishes a slow-consumer warning.
func SlowConsumer(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SlowConsumerPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSlowConsumer,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
