package intake

import (
	"math"
	"time"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/proto"
)

// Rejection reasons produced at the intake edge. Queue-side reasons come
// from the sim package and pass through untouched.
const (
	CommandRejectUnknownActor  = "unknown_actor"
	CommandRejectInvalidAction = "invalid_action"
	CommandRejectRoomClosed    = "room_closed"
)

// CommandContext is the slice of a room the intake needs: a membership
// check, the staging queue, and the clock. Plain funcs keep this package
// ignorant of room internals and trivial to fake in tests.
type CommandContext struct {
	Enqueue   func(game.Command) (bool, string)
	HasPlayer func(string) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand validates one decoded client frame, shapes it into a
// simulation command, and stages it. It returns the staged command, whether
// it was accepted, and the rejection reason when it was not.
func StageClientCommand(ctx CommandContext, playerID string, msg proto.ClientMessage) (game.Command, bool, string) {
	var zero game.Command

	cmd, ok := clientCommand(msg)
	if !ok {
		return zero, false, CommandRejectInvalidAction
	}

	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, CommandRejectUnknownActor
	}

	cmd.ActorID = playerID
	if ctx.Tick != nil {
		cmd.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		cmd.IssuedAt = ctx.Now()
	} else {
		cmd.IssuedAt = time.Now()
	}

	if cmd.Type == game.CommandHeartbeat {
		cmd.Heartbeat.ReceivedAt = cmd.IssuedAt
		cmd.Heartbeat.RTT = HeartbeatRTT(cmd.Heartbeat.ClientSent, cmd.IssuedAt)
	}

	if ctx.Enqueue == nil {
		return zero, false, CommandRejectRoomClosed
	}
	if ok, reason := ctx.Enqueue(cmd); !ok {
		return zero, false, reason
	}

	return cmd, true, ""
}

// HeartbeatRTT derives a round-trip estimate from the client-reported send
// time. Clock skew beyond five seconds marks the sample useless; negative
// deltas clamp to zero rather than poisoning diagnostics.
func HeartbeatRTT(clientSent int64, receivedAt time.Time) time.Duration {
	if clientSent <= 0 {
		return 0
	}
	clientTime := time.UnixMilli(clientSent)
	if clientTime.After(receivedAt.Add(5 * time.Second)) {
		return 0
	}
	rtt := receivedAt.Sub(clientTime)
	if rtt < 0 {
		return 0
	}
	return rtt
}

func clientCommand(msg proto.ClientMessage) (game.Command, bool) {
	var zero game.Command

	switch msg.Type {
	case proto.TypeInput:
		if !finite(msg.DX) || !finite(msg.DY) || !finite(msg.AimX) || !finite(msg.AimY) {
			return zero, false
		}
		return game.Command{
			Type: game.CommandInput,
			Input: &game.InputCommand{
				DX:       msg.DX,
				DY:       msg.DY,
				Aim:      game.Vector2{X: msg.AimX, Y: msg.AimY},
				Movement: game.MovementState(msg.Movement),
				ADS:      msg.ADS,
				Sequence: msg.Seq,
			},
		}, true
	case proto.TypeFire:
		if !finite(msg.AimX) || !finite(msg.AimY) {
			return zero, false
		}
		return game.Command{
			Type: game.CommandFire,
			Fire: &game.FireCommand{
				Sequence:  msg.Seq,
				ClientAim: game.Vector2{X: msg.AimX, Y: msg.AimY},
			},
		}, true
	case proto.TypeReload:
		return game.Command{Type: game.CommandReload, Reload: &game.ReloadCommand{}}, true
	case proto.TypeSwitch:
		weapon := game.WeaponType(msg.Weapon)
		if _, ok := game.WeaponSpecFor(weapon); !ok {
			return zero, false
		}
		return game.Command{Type: game.CommandSwitch, Switch: &game.SwitchCommand{Weapon: weapon}}, true
	case proto.TypeThrow:
		if msg.Charge < 0 {
			return zero, false
		}
		return game.Command{Type: game.CommandThrow, Throw: &game.ThrowCommand{Charge: msg.Charge}}, true
	case proto.TypeHeartbeat:
		return game.Command{
			Type:      game.CommandHeartbeat,
			Heartbeat: &game.HeartbeatCommand{ClientSent: msg.SentAt},
		}, true
	default:
		return zero, false
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
