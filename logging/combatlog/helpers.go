package combatlog

import (
	"context"

	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
)

const (
	// EventDamage is emitted when a shot or blast damages a player.
	EventDamage logging.EventType = "combat.damage"
	// EventKill is emitted when damage drops a player to zero health.
	EventKill logging.EventType = "combat.kill"
	// EventWallDestroyed is emitted when the last slice of a wall falls.
	EventWallDestroyed logging.EventType = "combat.wall_destroyed"
	// EventExplosion is emitted when a warhead or thrown munition detonates.
	EventExplosion logging.EventType = "combat.explosion"
)

// DamagePayload captures a single damage application.
type DamagePayload struct {
	Weapon       string  `json:"weapon,omitempty"`
	Amount       float64 `json:"amount"`
	TargetHealth float64 `json:"targetHealth"`
	Headshot     bool    `json:"headshot,omitempty"`
}

// KillPayload describes the fatal blow.
type KillPayload struct {
	Weapon string  `json:"weapon,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// WallDestroyedPayload names the wall that collapsed.
type WallDestroyedPayload struct {
	Material string `json:"material"`
}

// ExplosionPayload records the blast parameters.
type ExplosionPayload struct {
	Weapon string  `json:"weapon,omitempty"`
	Radius float64 `json:"radius"`
	Damage float64 `json:"damage"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Damage publishes a combat damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload DamagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Kill publishes a combat kill event for the eliminated player.
func Kill(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload KillPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventKill,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// WallDestroyed publishes the collapse of a destructible wall.
func WallDestroyed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, wall logging.EntityRef, payload WallDestroyedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventWallDestroyed,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{wall},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Explosion publishes a detonation event.
func Explosion(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ExplosionPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventExplosion,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
