package game

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Layout describes the static arena a world is built from: destructible
// walls, per-team spawn points, and light fixtures.
type Layout struct {
	Walls  []WallSpec
	Spawns map[Team][]Vector2
	Lights []Vector2
}

// World is the authoritative simulation state for one match. It is not safe
// for concurrent use: exactly one goroutine calls Step, and everything else
// reads through snapshots.
type World struct {
	config      Config
	players     map[string]*PlayerState
	playerOrder []string
	walls       *WallSet
	projectiles *ProjectileSet
	lights      []Vector2

	spawns      map[Team][]Vector2
	spawnCounts map[Team]int
	weapons     map[WeaponType]WeaponSpec

	pending   []Event
	weaponRNG *rand.Rand

	rectBuf []Rect
	liveBuf []*PlayerState
}

// StepResult reports side effects of one tick the caller must act on.
type StepResult struct {
	// Removed lists players pruned this tick for missed heartbeats. The
	// transport should drop their connections.
	Removed []string
}

// NewWorld builds a world from a layout. Wall construction errors are fatal:
// a half-built arena is worse than no arena.
func NewWorld(cfg Config, layout Layout) (*World, error) {
	cfg = cfg.normalized()

	walls := NewWallSet()
	for _, spec := range layout.Walls {
		if _, err := walls.CreateWall(spec); err != nil {
			return nil, fmt.Errorf("build layout: %w", err)
		}
	}

	spawns := make(map[Team][]Vector2, len(layout.Spawns))
	for team, points := range layout.Spawns {
		spawns[team] = append([]Vector2(nil), points...)
	}
	if len(spawns[TeamRed]) == 0 {
		spawns[TeamRed] = []Vector2{{X: worldWidth * 0.1, Y: worldHeight / 2}}
	}
	if len(spawns[TeamBlue]) == 0 {
		spawns[TeamBlue] = []Vector2{{X: worldWidth * 0.9, Y: worldHeight / 2}}
	}

	w := &World{
		config:      cfg,
		players:     make(map[string]*PlayerState),
		walls:       walls,
		projectiles: NewProjectileSet(),
		lights:      append([]Vector2(nil), layout.Lights...),
		spawns:      spawns,
		spawnCounts: make(map[Team]int),
		weapons:     catalogWith(cfg.WeaponTuning),
	}
	w.weaponRNG = w.subsystemRNG("weapons")
	return w, nil
}

// Config returns the world's normalized tuning.
func (w *World) Config() Config {
	return w.config
}

// PlayerCount reports how many players are currently in the world.
func (w *World) PlayerCount() int {
	return len(w.players)
}

// ProjectileCount reports how many projectiles are in flight.
func (w *World) ProjectileCount() int {
	return w.projectiles.Len()
}

// Destruction reports aggregate wall damage for diagnostics.
func (w *World) Destruction() DestructionStats {
	return w.walls.Stats()
}

// Step advances the simulation one fixed tick: staged commands first, then
// projectiles, weapon timers, movement, respawns, and liveness pruning.
func (w *World) Step(tick uint64, now time.Time, dt float64, commands []Command) StepResult {
	for i := range commands {
		w.applyCommand(&commands[i], tick, now)
	}

	w.advanceProjectiles(tick, now, dt)
	w.tickWeapons(tick, now, dt)

	w.liveBuf = w.liveBuf[:0]
	for _, id := range w.playerOrder {
		if p := w.players[id]; p != nil && p.Alive {
			w.liveBuf = append(w.liveBuf, p)
		}
	}
	w.rectBuf = w.walls.collisionRects(w.rectBuf[:0])
	stepMovement(w.liveBuf, w.rectBuf, dt)

	w.handleRespawns(tick, now)
	return StepResult{Removed: w.pruneStale(tick, now)}
}

func (w *World) applyCommand(cmd *Command, tick uint64, now time.Time) {
	switch cmd.Type {
	case CommandJoin:
		if cmd.Join != nil {
			w.applyJoin(cmd.ActorID, cmd.Join, tick, now)
		}
	case CommandLeave:
		reason := "leave"
		if cmd.Leave != nil && cmd.Leave.Reason != "" {
			reason = cmd.Leave.Reason
		}
		w.removePlayer(cmd.ActorID, reason, tick, now)
	case CommandHeartbeat:
		if p, ok := w.players[cmd.ActorID]; ok && cmd.Heartbeat != nil {
			at := cmd.Heartbeat.ReceivedAt
			if at.IsZero() {
				at = now
			}
			p.lastHeartbeat = at
			p.lastRTT = cmd.Heartbeat.RTT
		}
	case CommandInput:
		if cmd.Input != nil {
			w.applyInput(cmd.ActorID, cmd.Input)
		}
	case CommandFire:
		if p, ok := w.alivePlayer(cmd.ActorID); ok {
			w.resolveFire(p, tick, now)
		}
	case CommandReload:
		if p, ok := w.alivePlayer(cmd.ActorID); ok {
			w.resolveReload(p, now)
		}
	case CommandSwitch:
		if p, ok := w.alivePlayer(cmd.ActorID); ok && cmd.Switch != nil {
			w.resolveSwitch(p, cmd.Switch.Weapon, tick, now)
		}
	case CommandThrow:
		if p, ok := w.alivePlayer(cmd.ActorID); ok && cmd.Throw != nil {
			w.resolveThrow(p, cmd.Throw.Charge, tick, now)
		}
	}
}

func (w *World) applyJoin(actorID string, join *JoinCommand, tick uint64, now time.Time) {
	if actorID == "" {
		w.replyJoin(join, JoinResult{Reason: "missing-id"})
		return
	}
	if _, exists := w.players[actorID]; exists {
		w.replyJoin(join, JoinResult{Reason: "already-joined"})
		return
	}
	if len(w.players) >= w.config.MaxPlayers {
		w.replyJoin(join, JoinResult{Reason: "room-full"})
		return
	}

	team := w.pickTeam()
	position := w.nextSpawn(team)
	p := newPlayerState(actorID, join.Name, team, position, now, w.weapons)
	w.players[actorID] = p
	w.playerOrder = append(w.playerOrder, actorID)

	w.appendEvent(tick, now, EventPlayerJoined, PlayerJoinedPayload{
		PlayerID: actorID,
		Name:     p.Name,
		Team:     team,
		Position: position,
	})
	w.replyJoin(join, JoinResult{
		OK:       true,
		Player:   p.snapshot(),
		Team:     team,
		Snapshot: w.Snapshot(tick, now),
	})
}

// replyJoin hands the result back without ever blocking the tick. A client
// that stopped listening simply misses its answer.
func (w *World) replyJoin(join *JoinCommand, result JoinResult) {
	if join == nil || join.Reply == nil {
		return
	}
	select {
	case join.Reply <- result:
	default:
	}
}

// pickTeam balances by head count, red winning ties.
func (w *World) pickTeam() Team {
	var red, blue int
	for _, id := range w.playerOrder {
		switch w.players[id].Team {
		case TeamRed:
			red++
		case TeamBlue:
			blue++
		}
	}
	if blue < red {
		return TeamBlue
	}
	return TeamRed
}

// nextSpawn cycles through the team's spawn points in order.
func (w *World) nextSpawn(team Team) Vector2 {
	points := w.spawns[team]
	if len(points) == 0 {
		return Vector2{X: worldWidth / 2, Y: worldHeight / 2}
	}
	idx := w.spawnCounts[team] % len(points)
	w.spawnCounts[team]++
	return points[idx]
}

func (w *World) applyInput(actorID string, input *InputCommand) {
	p, ok := w.alivePlayer(actorID)
	if !ok {
		return
	}
	p.intentX = clamp(input.DX, -1, 1)
	p.intentY = clamp(input.DY, -1, 1)
	if input.Movement.Valid() {
		p.Movement = input.Movement
	}
	p.IsADS = input.ADS
	if !input.Aim.IsZero() {
		p.Transform.Rotation = math.Atan2(input.Aim.Y, input.Aim.X)
	}
	if input.Sequence > p.LastProcessedInput {
		p.LastProcessedInput = input.Sequence
	}
}

func (w *World) removePlayer(actorID, reason string, tick uint64, now time.Time) bool {
	if _, ok := w.players[actorID]; !ok {
		return false
	}
	delete(w.players, actorID)
	for i, id := range w.playerOrder {
		if id == actorID {
			w.playerOrder = append(w.playerOrder[:i], w.playerOrder[i+1:]...)
			break
		}
	}
	w.appendEvent(tick, now, EventPlayerLeft, PlayerLeftPayload{
		PlayerID: actorID,
		Reason:   reason,
	})
	return true
}

// tickWeapons sheds heat and completes elapsed reloads for every weapon, in
// a stable order so replays emit identical event streams.
func (w *World) tickWeapons(tick uint64, now time.Time, dt float64) {
	for _, id := range w.playerOrder {
		p := w.players[id]
		for _, weaponType := range weaponKeys(p.Weapons) {
			weapon := p.Weapons[weaponType]
			weapon.coolDown(now, dt)
			if weapon.IsReloading && !now.Before(weapon.reloadDoneAt) {
				weapon.finishReload()
				w.appendEvent(tick, now, EventWeaponReloaded, WeaponReloadedPayload{
					PlayerID:    id,
					Weapon:      weapon.Type,
					CurrentAmmo: weapon.CurrentAmmo,
					ReserveAmmo: weapon.ReserveAmmo,
				})
			}
		}
	}
}

func weaponKeys(weapons map[WeaponType]*WeaponState) []WeaponType {
	keys := make([]WeaponType, 0, len(weapons))
	for weaponType := range weapons {
		keys = append(keys, weaponType)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (w *World) handleRespawns(tick uint64, now time.Time) {
	for _, id := range w.playerOrder {
		p := w.players[id]
		if p.Alive || p.respawnAt.IsZero() || now.Before(p.respawnAt) {
			continue
		}
		p.restock(w.weapons)
		position := w.nextSpawn(p.Team)
		p.Transform = defaultTransform(position)
		w.appendEvent(tick, now, EventPlayerRespawned, PlayerRespawnedPayload{
			PlayerID: id,
			Position: position,
		})
	}
}

// pruneStale drops players whose heartbeats went quiet for longer than the
// configured timeout. A zero timeout disables pruning.
func (w *World) pruneStale(tick uint64, now time.Time) []string {
	if w.config.HeartbeatTimeout <= 0 {
		return nil
	}
	var stale []string
	for _, id := range w.playerOrder {
		p := w.players[id]
		if now.Sub(p.lastHeartbeat) > w.config.HeartbeatTimeout {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		w.removePlayer(id, "timeout", tick, now)
	}
	return stale
}

// applyPlayerDamage routes damage through armor into health and handles the
// death transition. A player already at zero health absorbs nothing more, so
// the kill event fires exactly once no matter how much damage lands later in
// the same tick.
func (w *World) applyPlayerDamage(target *PlayerState, attackerID string, weapon WeaponType, amount float64, damageType DamageType, headshot bool, tick uint64, now time.Time) {
	if target == nil || !target.Alive || amount <= 0 {
		return
	}

	if target.Armor > 0 {
		soaked := math.Min(target.Armor, amount)
		target.Armor -= soaked
		amount -= soaked
	}
	target.Health -= amount
	target.LastDamageTime = now
	target.lastAttackerID = attackerID
	target.lastHitWeapon = weapon

	killed := target.Health <= 0
	if killed {
		target.Health = 0
	}

	w.appendEvent(tick, now, EventPlayerDamaged, PlayerDamagedPayload{
		PlayerID:   target.ID,
		AttackerID: attackerID,
		Weapon:     weapon,
		DamageType: damageType,
		Damage:     amount,
		NewHealth:  target.Health,
		Headshot:   headshot,
		IsKilled:   killed,
	})
	if !killed {
		return
	}

	target.Alive = false
	target.Deaths++
	target.Movement = MovementIdle
	target.IsADS = false
	target.intentX = 0
	target.intentY = 0
	target.respawnAt = now.Add(w.config.RespawnDelay)
	if attacker, ok := w.players[attackerID]; ok && attackerID != target.ID {
		attacker.Kills++
	}
	w.appendEvent(tick, now, EventPlayerKilled, PlayerKilledPayload{
		PlayerID: target.ID,
		KillerID: attackerID,
		Weapon:   weapon,
		Position: target.Transform.Position,
	})
}

func (w *World) alivePlayer(id string) (*PlayerState, bool) {
	p, ok := w.players[id]
	if !ok || !p.Alive {
		return nil, false
	}
	return p, true
}

func (w *World) playerTeam(id string) (Team, bool) {
	p, ok := w.players[id]
	if !ok {
		return "", false
	}
	return p.Team, true
}

// PlayerRTT reports the round-trip time recorded by the player's most recent
// heartbeat.
func (w *World) PlayerRTT(id string) (time.Duration, bool) {
	p, ok := w.players[id]
	if !ok {
		return 0, false
	}
	return p.lastRTT, true
}

// Snapshot deep-copies the wire-visible world. The result shares nothing
// with live state.
func (w *World) Snapshot(tick uint64, now time.Time) Snapshot {
	players := make(map[string]Player, len(w.players))
	for id, p := range w.players {
		players[id] = p.snapshot()
	}
	return Snapshot{
		Tick:        tick,
		Timestamp:   now.UnixMilli(),
		TickRate:    w.config.TickRate,
		Players:     players,
		Walls:       w.walls.snapshot(),
		Projectiles: w.projectiles.snapshot(),
		Lights:      append([]Vector2(nil), w.lights...),
	}
}

func (w *World) appendEvent(tick uint64, now time.Time, eventType EventType, payload any) {
	w.pending = append(w.pending, Event{
		Type:      eventType,
		Tick:      tick,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	})
}

func (w *World) eventsSince(mark int) []Event {
	if mark >= len(w.pending) {
		return nil
	}
	return append([]Event(nil), w.pending[mark:]...)
}

// DrainEvents returns the pending event journal and clears it.
func (w *World) DrainEvents() []Event {
	events := w.pending
	w.pending = nil
	return events
}

// SnapshotEvents copies the pending journal without clearing it.
func (w *World) SnapshotEvents() []Event {
	return append([]Event(nil), w.pending...)
}

// RestoreEvents puts drained events back at the front of the journal, for
// callers whose downstream delivery failed after draining.
func (w *World) RestoreEvents(events []Event) {
	if len(events) == 0 {
		return
	}
	w.pending = append(append([]Event(nil), events...), w.pending...)
}
