package lifecycle

import (
	"context"

	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
)

const (
	// EventPlayerJoined is emitted when a player joins a room.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player leaves or is pruned.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventPlayerRespawned is emitted when a dead player re-enters play.
	EventPlayerRespawned logging.EventType = "lifecycle.player_respawned"
	// EventRoomOpened is emitted when a room spins up its simulation loop.
	EventRoomOpened logging.EventType = "lifecycle.room_opened"
	// EventRoomClosed is emitted when a room shuts down.
	EventRoomClosed logging.EventType = "lifecycle.room_closed"
)

// PlayerJoinedPayload captures spawn metadata for a new player.
type PlayerJoinedPayload struct {
	Team   string  `json:"team"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// PlayerLeftPayload captures the reason a player left.
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

// PlayerRespawnedPayload captures where a player came back.
type PlayerRespawnedPayload struct {
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// RoomClosedPayload captures why a room shut down.
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// PlayerLeft publishes a player departure event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerLeftPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// PlayerRespawned publishes a respawn event.
func PlayerRespawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerRespawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerRespawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// RoomOpened publishes a room startup event.
func RoomOpened(ctx context.Context, pub logging.Publisher, room logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRoomOpened,
		Actor:    room,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// RoomClosed publishes a room shutdown event.
func RoomClosed(ctx context.Context, pub logging.Publisher, room logging.EntityRef, payload RoomClosedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRoomClosed,
		Actor:    room,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
