package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/proto"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/sim"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging/combatlog"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging/lifecycle"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging/netlog"
)

var (
	// ErrRoomClosed reports a join or attach against a room that is shutting
	// down or already gone.
	ErrRoomClosed = errors.New("room closed")
	// ErrJoinTimeout reports that the simulation never answered a join,
	// which means the loop is stalled or stopped.
	ErrJoinTimeout = errors.New("join timed out")
	// ErrUnknownPlayer reports an attach for an ID that never joined.
	ErrUnknownPlayer = errors.New("unknown player")
)

const defaultJoinTimeout = 2 * time.Second

// Subscriber is the transport-side handle a room fans state out to. Send
// must be safe for concurrent use; Close must be idempotent.
type Subscriber interface {
	Send(data []byte) error
	Close(reason string)
}

// RoomConfig assembles everything one room needs: identity, world tuning,
// loop tuning, and the arena layout.
type RoomConfig struct {
	ID          string
	World       game.Config
	Loop        sim.Config
	Layout      game.Layout
	JoinTimeout time.Duration
}

// Deps carries the shared infrastructure every room borrows from the app.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
}

func (d Deps) normalized() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.NopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	return d
}

// RoomStatus is the last published diagnostic view of a room. It is written
// by the loop goroutine and read lock-free by the diagnostics endpoint.
type RoomStatus struct {
	ID          string                `json:"id"`
	Tick        uint64                `json:"tick"`
	Players     int                   `json:"players"`
	Projectiles int                   `json:"projectiles"`
	Destruction game.DestructionStats `json:"destruction"`
	UpdatedAt   int64                 `json:"updatedAt"`
}

// MemberDiagnostics is the per-player liveness view for /diagnostics.
type MemberDiagnostics struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Team          string `json:"team"`
	JoinedAt      int64  `json:"joinedAt"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rtt"`
	Connected     bool   `json:"connected"`
}

type member struct {
	name          string
	team          game.Team
	joinedAt      time.Time
	lastHeartbeat time.Time
	rtt           time.Duration
}

// Room owns one match: a world, the loop that steps it, and the transport
// roster. World state is confined to the loop goroutine; everything the
// edge needs crosses through the command queue, the member map, or the
// published status pointer.
type Room struct {
	id   string
	cfg  RoomConfig
	deps Deps
	pub  logging.Publisher

	world *game.World
	loop  *sim.Loop

	subMu         sync.Mutex
	members       map[string]*member
	subs          map[string]Subscriber
	everJoined    bool
	emptyNotified bool

	status   atomic.Pointer[RoomStatus]
	lastSnap atomic.Pointer[game.Snapshot]

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	stopOne sync.Once

	onEmpty func(*Room)
}

// NewRoom builds the world from the layout and wires the tick loop around
// it. Layout errors abort construction; a half-built arena never runs.
func NewRoom(cfg RoomConfig, deps Deps) (*Room, error) {
	deps = deps.normalized()

	world, err := game.NewWorld(cfg.World, cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", cfg.ID, err)
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = defaultJoinTimeout
	}
	// The loop must tick at the world's rate or snapshot timestamps and
	// physics deltas drift apart.
	cfg.Loop.TickRate = world.Config().TickRate

	r := &Room{
		id:      cfg.ID,
		cfg:     cfg,
		deps:    deps,
		pub:     logging.ForRoom(deps.Publisher, cfg.ID),
		world:   world,
		members: make(map[string]*member),
		subs:    make(map[string]Subscriber),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.loop = sim.NewLoop(cfg.Loop, sim.Deps{
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
		Clock:   deps.Clock,
	}, sim.Hooks{
		Step:           r.step,
		Broadcast:      r.broadcast,
		OnCommandDrop:  r.onCommandDrop,
		OnQueueWarning: r.onQueueWarning,
	})
	r.storeStatus(0)
	snap := world.Snapshot(0, deps.Clock.Now())
	r.lastSnap.Store(&snap)

	lifecycle.RoomOpened(context.Background(), r.pub, r.ref(), map[string]any{
		"tickRate":  world.Config().TickRate,
		"broadcast": r.loop.Config().BroadcastEvery,
		"walls":     world.Destruction().Walls,
	})
	return r, nil
}

// ID returns the room code.
func (r *Room) ID() string { return r.id }

// Start launches the tick loop goroutine. Calling it twice is a no-op.
func (r *Room) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(r.done)
		r.loop.Run(r.stop)
	}()
}

// Stop shuts the loop down, waits for the final drain, and closes every
// remaining connection. Safe to call more than once and from any goroutine
// except the loop's own.
func (r *Room) Stop(reason string) {
	r.stopOne.Do(func() {
		close(r.stop)
		if r.started.Load() {
			<-r.done
		}
		r.closeAll(reason)
		lifecycle.RoomClosed(context.Background(), r.pub, r.ref(), lifecycle.RoomClosedPayload{Reason: reason}, nil)
	})
}

// Join stages a join command and waits for the authoritative answer. A
// result with OK=false is a rejection by the simulation (full room,
// duplicate ID); an error means the room could not answer at all.
func (r *Room) Join(playerID, name string) (game.JoinResult, error) {
	select {
	case <-r.stop:
		return game.JoinResult{}, ErrRoomClosed
	default:
	}

	reply := make(chan game.JoinResult, 1)
	cmd := game.Command{
		Type:       game.CommandJoin,
		ActorID:    playerID,
		OriginTick: r.loop.Tick(),
		IssuedAt:   r.deps.Clock.Now(),
		Join:       &game.JoinCommand{Name: name, Reply: reply},
	}
	if ok, reason := r.loop.Enqueue(cmd); !ok {
		return game.JoinResult{Reason: reason}, nil
	}

	timer := time.NewTimer(r.cfg.JoinTimeout)
	defer timer.Stop()
	select {
	case result := <-reply:
		if result.OK {
			r.registerMember(playerID, name, result.Team, cmd.IssuedAt)
		}
		return result, nil
	case <-timer.C:
		return game.JoinResult{}, ErrJoinTimeout
	case <-r.stop:
		return game.JoinResult{}, ErrRoomClosed
	}
}

// Leave removes a player: roster and socket immediately, world state on the
// next tick via a leave command.
func (r *Room) Leave(playerID, reason string) {
	r.subMu.Lock()
	_, known := r.members[playerID]
	delete(r.members, playerID)
	sub := r.subs[playerID]
	delete(r.subs, playerID)
	r.subMu.Unlock()

	if sub != nil {
		sub.Close(reason)
	}
	if known {
		r.loop.Enqueue(game.Command{
			Type:     game.CommandLeave,
			ActorID:  playerID,
			IssuedAt: r.deps.Clock.Now(),
			Leave:    &game.LeaveCommand{Reason: reason},
		})
	}
	r.maybeNotifyEmpty()
}

// Enqueue stages a simulation command from the transport.
func (r *Room) Enqueue(cmd game.Command) (bool, string) {
	select {
	case <-r.stop:
		return false, "room_closed"
	default:
	}
	return r.loop.Enqueue(cmd)
}

// Tick returns the most recently completed tick number.
func (r *Room) Tick() uint64 { return r.loop.Tick() }

// HasPlayer reports transport-side membership. The simulation may lag one
// tick behind; command application tolerates that.
func (r *Room) HasPlayer(playerID string) bool {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	_, ok := r.members[playerID]
	return ok
}

// MemberCount returns the transport-side player count.
func (r *Room) MemberCount() int {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	return len(r.members)
}

// Attach binds a subscriber to a joined player, replacing any previous
// connection for the same ID.
func (r *Room) Attach(playerID string, sub Subscriber) error {
	select {
	case <-r.stop:
		return ErrRoomClosed
	default:
	}

	r.subMu.Lock()
	if _, ok := r.members[playerID]; !ok {
		r.subMu.Unlock()
		return ErrUnknownPlayer
	}
	prev := r.subs[playerID]
	r.subs[playerID] = sub
	r.subMu.Unlock()

	if prev != nil && prev != sub {
		prev.Close("replaced")
	}
	return nil
}

// Detach unbinds a subscriber if it is still the active one for the player
// and reports whether it did. A stale read pump exiting after a reconnect
// must not tear down the new session.
func (r *Room) Detach(playerID string, sub Subscriber) bool {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if current, ok := r.subs[playerID]; ok && current == sub {
		delete(r.subs, playerID)
		return true
	}
	return false
}

// RecordHeartbeat refreshes the transport-side liveness view used by
// /diagnostics. The simulation keeps its own copy via the heartbeat command.
func (r *Room) RecordHeartbeat(playerID string, at time.Time, rtt time.Duration) {
	r.subMu.Lock()
	if m, ok := r.members[playerID]; ok {
		m.lastHeartbeat = at
		m.rtt = rtt
	}
	r.subMu.Unlock()
}

// LatestSnapshot returns the most recent world snapshot published by the
// loop. Fresh connections get it as their first frame so a reconnecting
// client is in sync before the next broadcast lands.
func (r *Room) LatestSnapshot() game.Snapshot {
	return *r.lastSnap.Load()
}

// Status returns the last status published by the loop goroutine.
func (r *Room) Status() RoomStatus {
	if s := r.status.Load(); s != nil {
		return *s
	}
	return RoomStatus{ID: r.id}
}

// Diagnostics lists per-member liveness data.
func (r *Room) Diagnostics() []MemberDiagnostics {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	out := make([]MemberDiagnostics, 0, len(r.members))
	for id, m := range r.members {
		_, connected := r.subs[id]
		out = append(out, MemberDiagnostics{
			ID:            id,
			Name:          m.name,
			Team:          string(m.team),
			JoinedAt:      m.joinedAt.UnixMilli(),
			LastHeartbeat: m.lastHeartbeat.UnixMilli(),
			RTTMillis:     m.rtt.Milliseconds(),
			Connected:     connected,
		})
	}
	return out
}

func (r *Room) registerMember(playerID, name string, team game.Team, at time.Time) {
	r.subMu.Lock()
	r.members[playerID] = &member{
		name:          name,
		team:          team,
		joinedAt:      at,
		lastHeartbeat: at,
	}
	r.everJoined = true
	r.subMu.Unlock()
}

func (r *Room) ref() logging.EntityRef {
	return logging.EntityRef{ID: r.id, Kind: logging.EntityKindRoom}
}

// step runs on the loop goroutine: apply the tick, then evict players the
// world pruned for missed heartbeats.
func (r *Room) step(ctx sim.TickContext, commands []game.Command) {
	result := r.world.Step(ctx.Tick, ctx.Now, ctx.Delta, commands)

	for _, id := range result.Removed {
		r.subMu.Lock()
		delete(r.members, id)
		sub := r.subs[id]
		delete(r.subs, id)
		r.subMu.Unlock()

		if sub != nil {
			sub.Close("heartbeat-timeout")
		}
		netlog.ClientDisconnected(context.Background(), r.pub, ctx.Tick,
			logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer},
			netlog.ClientDisconnectedPayload{Reason: "heartbeat-timeout"}, nil)
	}

	r.storeStatus(ctx.Tick)
	if len(result.Removed) > 0 {
		r.maybeNotifyEmpty()
	}
}

// broadcast runs on the loop goroutine every Nth tick: snapshot, drain
// events, marshal once, fan out to every subscriber.
func (r *Room) broadcast(ctx sim.TickContext) {
	snap := r.world.Snapshot(ctx.Tick, ctx.Now)
	r.lastSnap.Store(&snap)
	events := r.world.DrainEvents()

	msg := proto.StateFromSnapshot(snap, events, ctx.Now.UnixMilli())
	data, err := json.Marshal(msg)
	if err != nil {
		// Undrain so the events ride the next broadcast instead of vanishing.
		r.world.RestoreEvents(events)
		r.deps.Logger.Printf("room %s: failed to marshal state: %v", r.id, err)
		return
	}

	r.publishEvents(snap, events)

	r.subMu.Lock()
	targets := make(map[string]Subscriber, len(r.subs))
	for id, sub := range r.subs {
		targets[id] = sub
	}
	r.subMu.Unlock()

	r.deps.Metrics.Add(telemetry.KeyBroadcastsTotal, 1)
	r.deps.Metrics.Add(telemetry.KeyBroadcastBytesTotal, uint64(len(data))*uint64(len(targets)))
	r.deps.Metrics.Add(telemetry.KeyEntitiesBroadcast, uint64(len(snap.Players)+len(snap.Projectiles)))

	for id, sub := range targets {
		if err := sub.Send(data); err != nil {
			r.deps.Logger.Printf("room %s: dropping %s: %v", r.id, id, err)
			r.Detach(id, sub)
			sub.Close("write-failed")
			netlog.ClientDisconnected(context.Background(), r.pub, ctx.Tick,
				logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer},
				netlog.ClientDisconnectedPayload{Reason: "write-failed"}, nil)
		}
	}
}

// publishEvents bridges simulation events onto the structured log bus.
// High-frequency fire and projectile traffic stays wire-only.
func (r *Room) publishEvents(snap game.Snapshot, events []game.Event) {
	ctx := context.Background()
	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case game.PlayerJoinedPayload:
			lifecycle.PlayerJoined(ctx, r.pub, ev.Tick,
				logging.EntityRef{ID: p.PlayerID, Kind: logging.EntityKindPlayer},
				lifecycle.PlayerJoinedPayload{Team: string(p.Team), SpawnX: p.Position.X, SpawnY: p.Position.Y}, nil)
		case game.PlayerLeftPayload:
			lifecycle.PlayerLeft(ctx, r.pub, ev.Tick,
				logging.EntityRef{ID: p.PlayerID, Kind: logging.EntityKindPlayer},
				lifecycle.PlayerLeftPayload{Reason: p.Reason}, nil)
		case game.PlayerRespawnedPayload:
			lifecycle.PlayerRespawned(ctx, r.pub, ev.Tick,
				logging.EntityRef{ID: p.PlayerID, Kind: logging.EntityKindPlayer},
				lifecycle.PlayerRespawnedPayload{SpawnX: p.Position.X, SpawnY: p.Position.Y}, nil)
		case game.PlayerDamagedPayload:
			combatlog.Damage(ctx, r.pub, ev.Tick,
				logging.EntityRef{ID: p.AttackerID, Kind: logging.EntityKindPlayer},
				logging.EntityRef{ID: p.PlayerID, Kind: logging.EntityKindPlayer},
				combatlog.DamagePayload{
					Weapon:       string(p.Weapon),
					Amount:       p.Damage,
					TargetHealth: p.NewHealth,
					Headshot:     p.Headshot,
				}, nil)
		case game.PlayerKilledPayload:
			combatlog.Kill(ctx, r.pub, ev.Tick,
				logging.EntityRef{ID: p.KillerID, Kind: logging.EntityKindPlayer},
				logging.EntityRef{ID: p.PlayerID, Kind: logging.EntityKindPlayer},
				combatlog.KillPayload{Weapon: string(p.Weapon), X: p.Position.X, Y: p.Position.Y}, nil)
		case game.WallDestroyedPayload:
			material := ""
			if wall, ok := snap.Walls[p.WallID]; ok {
				material = string(wall.Material)
			}
			combatlog.WallDestroyed(ctx, r.pub, ev.Tick,
				logging.EntityRef{ID: p.AttackerID, Kind: logging.EntityKindPlayer},
				logging.EntityRef{ID: p.WallID, Kind: logging.EntityKindWall},
				combatlog.WallDestroyedPayload{Material: material}, nil)
		case game.ExplosionCreatedPayload:
			combatlog.Explosion(ctx, r.pub, ev.Tick,
				logging.EntityRef{ID: p.OwnerID, Kind: logging.EntityKindPlayer},
				combatlog.ExplosionPayload{
					Radius: p.Radius,
					Damage: p.Damage,
					X:      p.Position.X,
					Y:      p.Position.Y,
				}, map[string]any{"source": p.SourceID})
		}
	}
}

func (r *Room) onCommandDrop(reason string, cmd game.Command) {
	netlog.CommandDropped(context.Background(), r.pub, r.loop.Tick(),
		logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindPlayer},
		netlog.CommandDroppedPayload{CommandType: string(cmd.Type), Reason: reason}, nil)
}

func (r *Room) onQueueWarning(length int) {
	r.deps.Logger.Printf("room %s: command queue depth %d", r.id, length)
}

func (r *Room) storeStatus(tick uint64) {
	status := RoomStatus{
		ID:          r.id,
		Tick:        tick,
		Players:     r.world.PlayerCount(),
		Projectiles: r.world.ProjectileCount(),
		Destruction: r.world.Destruction(),
		UpdatedAt:   r.deps.Clock.Now().UnixMilli(),
	}
	r.status.Store(&status)
}

func (r *Room) resetEmptyNotice() {
	r.subMu.Lock()
	r.emptyNotified = false
	r.subMu.Unlock()
}

func (r *Room) maybeNotifyEmpty() {
	r.subMu.Lock()
	fire := r.everJoined && len(r.members) == 0 && !r.emptyNotified
	if fire {
		r.emptyNotified = true
	}
	r.subMu.Unlock()

	if fire && r.onEmpty != nil {
		r.onEmpty(r)
	}
}

func (r *Room) closeAll(reason string) {
	r.subMu.Lock()
	subs := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[string]Subscriber)
	r.members = make(map[string]*member)
	r.subMu.Unlock()

	for _, sub := range subs {
		sub.Close(reason)
	}
}
