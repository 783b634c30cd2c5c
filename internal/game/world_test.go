package game

import (
	"math"
	"strings"
	"testing"
	"time"
)

func joinViaStep(t *testing.T, w *World, tick uint64, now time.Time, id, name string) JoinResult {
	t.Helper()
	reply := make(chan JoinResult, 1)
	w.Step(tick, now, 1.0/60, []Command{{
		Type:    CommandJoin,
		ActorID: id,
		Join:    &JoinCommand{Name: name, Reply: reply},
	}})
	select {
	case res := <-reply:
		return res
	default:
		t.Fatalf("join %q: no reply delivered", id)
		return JoinResult{}
	}
}

func TestJoinBalancesTeamsAndCyclesSpawns(t *testing.T) {
	w := newCombatWorld(t, Layout{Spawns: map[Team][]Vector2{
		TeamRed:  {{X: 50, Y: 50}, {X: 50, Y: 100}},
		TeamBlue: {{X: 400, Y: 50}},
	}})
	now := time.Unix(0, 0)

	cases := []struct {
		id       string
		team     Team
		position Vector2
	}{
		{"p1", TeamRed, Vector2{X: 50, Y: 50}},
		{"p2", TeamBlue, Vector2{X: 400, Y: 50}},
		{"p3", TeamRed, Vector2{X: 50, Y: 100}},
		{"p4", TeamBlue, Vector2{X: 400, Y: 50}},
	}
	for i, tc := range cases {
		res := joinViaStep(t, w, uint64(i+1), now, tc.id, "player "+tc.id)
		if !res.OK {
			t.Fatalf("join %s rejected: %q", tc.id, res.Reason)
		}
		if res.Team != tc.team {
			t.Fatalf("join %s: expected team %s, got %s", tc.id, tc.team, res.Team)
		}
		if res.Player.Position != tc.position {
			t.Fatalf("join %s: expected spawn %+v, got %+v", tc.id, tc.position, res.Player.Position)
		}
		if _, ok := res.Snapshot.Players[tc.id]; !ok {
			t.Fatalf("join %s: reply snapshot missing the new player", tc.id)
		}
	}
	if w.PlayerCount() != 4 {
		t.Fatalf("expected 4 players, got %d", w.PlayerCount())
	}

	joined := eventsOfType(w.DrainEvents(), EventPlayerJoined)
	if len(joined) != 4 {
		t.Fatalf("expected 4 join events, got %d", len(joined))
	}
}

func TestJoinRejections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatTimeout = 0
	cfg.MaxPlayers = 1
	w, err := NewWorld(cfg, Layout{})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	now := time.Unix(0, 0)

	if res := joinViaStep(t, w, 1, now, "solo", "Solo"); !res.OK {
		t.Fatalf("first join rejected: %q", res.Reason)
	}
	if res := joinViaStep(t, w, 2, now, "solo", "Solo"); res.OK || res.Reason != "already-joined" {
		t.Fatalf("expected already-joined, got %+v", res)
	}
	if res := joinViaStep(t, w, 3, now, "late", "Late"); res.OK || res.Reason != "room-full" {
		t.Fatalf("expected room-full, got %+v", res)
	}
	if res := joinViaStep(t, w, 4, now, "", "Ghost"); res.OK || res.Reason != "missing-id" {
		t.Fatalf("expected missing-id, got %+v", res)
	}
	if w.PlayerCount() != 1 {
		t.Fatalf("rejected joins must not add players, got %d", w.PlayerCount())
	}
}

func TestFallbackSpawnsWithoutLayout(t *testing.T) {
	w := newCombatWorld(t, Layout{})
	now := time.Unix(0, 0)

	red := joinViaStep(t, w, 1, now, "red-1", "")
	blue := joinViaStep(t, w, 2, now, "blue-1", "")
	if !almostEqual(red.Player.Position.X, worldWidth*0.1) || !almostEqual(red.Player.Position.Y, worldHeight/2) {
		t.Fatalf("unexpected red fallback spawn %+v", red.Player.Position)
	}
	if !almostEqual(blue.Player.Position.X, worldWidth*0.9) {
		t.Fatalf("unexpected blue fallback spawn %+v", blue.Player.Position)
	}
}

func TestLeaveRemovesPlayer(t *testing.T) {
	w := newCombatWorld(t, Layout{})
	now := time.Unix(0, 0)
	joinViaStep(t, w, 1, now, "ghost", "Ghost")
	w.DrainEvents()

	w.Step(2, now, 1.0/60, []Command{{
		Type:    CommandLeave,
		ActorID: "ghost",
		Leave:   &LeaveCommand{Reason: "quit"},
	}})
	if w.PlayerCount() != 0 {
		t.Fatalf("expected the player removed, got %d", w.PlayerCount())
	}
	left := eventsOfType(w.DrainEvents(), EventPlayerLeft)
	if len(left) != 1 || left[0].Payload.(PlayerLeftPayload).Reason != "quit" {
		t.Fatalf("expected one quit event, got %+v", left)
	}
}

func TestInputSetsIntentAimAndSequence(t *testing.T) {
	w := newCombatWorld(t, Layout{})
	now := time.Unix(0, 0)
	joinViaStep(t, w, 1, now, "pilot", "Pilot")
	p := w.players["pilot"]

	w.Step(2, now, 1.0/60, []Command{{
		Type:    CommandInput,
		ActorID: "pilot",
		Input: &InputCommand{
			DX: 2, DY: -0.5,
			Aim:      Vector2{X: 0, Y: 1},
			Movement: MovementRunning,
			ADS:      true,
			Sequence: 5,
		},
	}})
	if p.intentX != 1 || p.intentY != -0.5 {
		t.Fatalf("expected clamped intent (1,-0.5), got (%v,%v)", p.intentX, p.intentY)
	}
	if !almostEqual(p.Transform.Rotation, math.Pi/2) {
		t.Fatalf("expected rotation pi/2 from the aim vector, got %v", p.Transform.Rotation)
	}
	if p.Movement != MovementRunning || !p.IsADS {
		t.Fatalf("expected running ADS state, got %s ads=%v", p.Movement, p.IsADS)
	}
	if p.LastProcessedInput != 5 {
		t.Fatalf("expected sequence 5 acknowledged, got %d", p.LastProcessedInput)
	}

	// Stale sequence numbers never roll the acknowledgement backwards, and a
	// garbage movement mode is ignored.
	w.Step(3, now, 1.0/60, []Command{{
		Type:    CommandInput,
		ActorID: "pilot",
		Input: &InputCommand{
			Aim:      Vector2{X: 1, Y: 0},
			Movement: MovementState("moonwalking"),
			Sequence: 3,
		},
	}})
	if p.LastProcessedInput != 5 {
		t.Fatalf("stale input must not rewind the sequence, got %d", p.LastProcessedInput)
	}
	if p.Movement != MovementRunning {
		t.Fatalf("invalid movement mode must be ignored, got %s", p.Movement)
	}
	if !almostEqual(p.Transform.Rotation, 0) {
		t.Fatalf("expected rotation updated to 0, got %v", p.Transform.Rotation)
	}
}

func TestDeadPlayersIgnoreCombatAndInput(t *testing.T) {
	w := newCombatWorld(t, Layout{})
	now := time.Unix(0, 0)
	victim := placePlayer(t, w, "victim", TeamBlue, Vector2{X: 200, Y: 135})
	placePlayer(t, w, "enemy", TeamRed, Vector2{X: 300, Y: 135})
	w.applyPlayerDamage(victim, "enemy", WeaponRifle, 200, DamageBullet, false, 1, now)
	if victim.Alive {
		t.Fatalf("expected the victim dead")
	}
	w.DrainEvents()

	w.Step(2, now, 1.0/60, []Command{
		{Type: CommandFire, ActorID: "victim", Fire: &FireCommand{}},
		{Type: CommandInput, ActorID: "victim", Input: &InputCommand{DX: 1, Sequence: 9}},
		{Type: CommandReload, ActorID: "victim", Reload: &ReloadCommand{}},
	})
	if fired := eventsOfType(w.DrainEvents(), EventWeaponFired); len(fired) != 0 {
		t.Fatalf("dead players must not fire, got %d events", len(fired))
	}
	if victim.intentX != 0 || victim.LastProcessedInput != 0 {
		t.Fatalf("dead players must not accept input, got intent %v seq %d", victim.intentX, victim.LastProcessedInput)
	}
}

func TestKillRespawnCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatTimeout = 0
	cfg.RespawnDelay = 120 * time.Millisecond
	w, err := NewWorld(cfg, Layout{})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	now := time.Unix(0, 0)
	killer := placePlayer(t, w, "killer", TeamRed, Vector2{X: 100, Y: 100})
	victim := placePlayer(t, w, "victim", TeamBlue, Vector2{X: 200, Y: 200})

	w.applyPlayerDamage(victim, "killer", WeaponRifle, 150, DamageBullet, false, 1, now)
	// More damage in the same tick lands on a corpse and does nothing.
	w.applyPlayerDamage(victim, "killer", WeaponRifle, 50, DamageBullet, false, 1, now)

	if victim.Alive || victim.Health != 0 {
		t.Fatalf("expected a dead victim at 0 health, got alive=%v health=%v", victim.Alive, victim.Health)
	}
	if victim.Deaths != 1 || killer.Kills != 1 {
		t.Fatalf("expected 1 death and 1 kill, got %d/%d", victim.Deaths, killer.Kills)
	}
	events := w.DrainEvents()
	if killed := eventsOfType(events, EventPlayerKilled); len(killed) != 1 {
		t.Fatalf("expected exactly one kill event, got %d", len(killed))
	}
	damaged := eventsOfType(events, EventPlayerDamaged)
	if len(damaged) != 1 {
		t.Fatalf("overkill must not emit extra damage events, got %d", len(damaged))
	}
	if payload := damaged[0].Payload.(PlayerDamagedPayload); !payload.IsKilled {
		t.Fatalf("expected the lethal damage event to carry isKilled, got %+v", payload)
	}

	victim.Weapons[WeaponRifle].CurrentAmmo = 3
	stepTicks(w, 10, now)

	if !victim.Alive || victim.Health != playerMaxHealth {
		t.Fatalf("expected the victim respawned at full health, got alive=%v health=%v", victim.Alive, victim.Health)
	}
	if victim.Weapons[WeaponRifle].CurrentAmmo != victim.Weapons[WeaponRifle].MaxAmmo {
		t.Fatalf("expected restocked weapons, got %d rounds", victim.Weapons[WeaponRifle].CurrentAmmo)
	}
	if victim.Deaths != 1 {
		t.Fatalf("respawn must keep the scoreboard, got %d deaths", victim.Deaths)
	}
	if !almostEqual(victim.Transform.Position.X, worldWidth*0.9) {
		t.Fatalf("expected respawn at the blue spawn, got %+v", victim.Transform.Position)
	}
	if respawned := eventsOfType(w.DrainEvents(), EventPlayerRespawned); len(respawned) != 1 {
		t.Fatalf("expected one respawn event, got %d", len(respawned))
	}
}

func TestArmorSoaksBeforeHealth(t *testing.T) {
	w := newCombatWorld(t, Layout{})
	now := time.Unix(0, 0)
	target := placePlayer(t, w, "target", TeamBlue, Vector2{X: 200, Y: 135})
	target.Armor = 50

	w.applyPlayerDamage(target, "attacker", WeaponRifle, 60, DamageBullet, false, 1, now)
	if target.Armor != 0 || target.Health != 90 {
		t.Fatalf("expected armor 0 and health 90, got %v/%v", target.Armor, target.Health)
	}
	damaged := eventsOfType(w.DrainEvents(), EventPlayerDamaged)
	if len(damaged) != 1 {
		t.Fatalf("expected one damage event, got %d", len(damaged))
	}
	payload := damaged[0].Payload.(PlayerDamagedPayload)
	if !almostEqual(payload.Damage, 10) || !almostEqual(payload.NewHealth, 90) {
		t.Fatalf("expected 10 through to health, got %+v", payload)
	}
}

func TestHeartbeatsKeepPlayersAliveAndSilenceKills(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatTimeout = 100 * time.Millisecond
	w, err := NewWorld(cfg, Layout{})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	dt := 1.0 / 60
	now := time.Unix(50, 0)

	alphaReply := make(chan JoinResult, 1)
	betaReply := make(chan JoinResult, 1)
	w.Step(1, now, dt, []Command{
		{Type: CommandJoin, ActorID: "alpha", Join: &JoinCommand{Reply: alphaReply}},
		{Type: CommandJoin, ActorID: "beta", Join: &JoinCommand{Reply: betaReply}},
	})

	var removed []string
	for i := 0; i < 10 && len(removed) == 0; i++ {
		now = now.Add(time.Duration(dt * float64(time.Second)))
		res := w.Step(uint64(i+2), now, dt, []Command{{
			Type:      CommandHeartbeat,
			ActorID:   "alpha",
			Heartbeat: &HeartbeatCommand{RTT: 30 * time.Millisecond},
		}})
		removed = append(removed, res.Removed...)
	}

	if len(removed) != 1 || removed[0] != "beta" {
		t.Fatalf("expected beta pruned, got %v", removed)
	}
	if w.PlayerCount() != 1 {
		t.Fatalf("expected one survivor, got %d", w.PlayerCount())
	}
	if rtt, ok := w.PlayerRTT("alpha"); !ok || rtt != 30*time.Millisecond {
		t.Fatalf("expected 30ms RTT recorded, got %v ok=%v", rtt, ok)
	}
	if _, ok := w.PlayerRTT("beta"); ok {
		t.Fatalf("expected no RTT for a pruned player")
	}

	left := eventsOfType(w.DrainEvents(), EventPlayerLeft)
	var timeouts int
	for _, ev := range left {
		if ev.Payload.(PlayerLeftPayload).Reason == "timeout" {
			timeouts++
		}
	}
	if timeouts != 1 {
		t.Fatalf("expected one timeout departure, got %d", timeouts)
	}
}

func TestReloadCompletesDuringStep(t *testing.T) {
	w := newCombatWorld(t, Layout{})
	now := time.Unix(0, 0)
	p := placePlayer(t, w, "loader", TeamRed, Vector2{X: 100, Y: 135})
	rifle := p.Weapons[WeaponRifle]
	rifle.CurrentAmmo = 10

	w.Step(1, now, 1.0/60, []Command{{Type: CommandReload, ActorID: "loader", Reload: &ReloadCommand{}}})
	if !rifle.IsReloading {
		t.Fatalf("expected the reload started")
	}

	stepTicks(w, 155, now)
	if rifle.IsReloading {
		t.Fatalf("expected the reload finished after 2.5s")
	}
	if rifle.CurrentAmmo != rifle.MaxAmmo || rifle.ReserveAmmo != 70 {
		t.Fatalf("expected 30/70 after the reload, got %d/%d", rifle.CurrentAmmo, rifle.ReserveAmmo)
	}
	reloaded := eventsOfType(w.DrainEvents(), EventWeaponReloaded)
	if len(reloaded) != 1 {
		t.Fatalf("expected one reload event, got %d", len(reloaded))
	}
	payload := reloaded[0].Payload.(WeaponReloadedPayload)
	if payload.CurrentAmmo != 30 || payload.ReserveAmmo != 70 {
		t.Fatalf("unexpected reload payload %+v", payload)
	}
}

func TestSnapshotSharesNothingWithLiveState(t *testing.T) {
	w := newCombatWorld(t, Layout{
		Walls:  []WallSpec{{ID: "wall-1", X: 100, Y: 100, Width: 50, Height: 10, Material: MaterialWood}},
		Lights: []Vector2{{X: 240, Y: 10}},
	})
	placePlayer(t, w, "watcher", TeamRed, Vector2{X: 50, Y: 50})

	snap := w.Snapshot(7, time.Unix(200, 0))
	if snap.Tick != 7 || snap.TickRate != 60 {
		t.Fatalf("unexpected snapshot header %d/%d", snap.Tick, snap.TickRate)
	}
	if len(snap.Players) != 1 || len(snap.Walls) != 1 || len(snap.Lights) != 1 {
		t.Fatalf("unexpected snapshot contents: %d players, %d walls, %d lights",
			len(snap.Players), len(snap.Walls), len(snap.Lights))
	}

	snap.Walls["wall-1"].Slices[0].Health = -1
	snap.Lights[0].X = -1
	if got := w.walls.walls["wall-1"].Slices[0].Health; got != sliceMaxHealth {
		t.Fatalf("snapshot mutation leaked into the live wall: %v", got)
	}
	if w.lights[0].X != 240 {
		t.Fatalf("snapshot mutation leaked into the live lights: %v", w.lights[0].X)
	}

	player := snap.Players["watcher"]
	if player.Weapons[WeaponRifle].CurrentAmmo != 30 {
		t.Fatalf("expected a stocked rifle in the snapshot, got %d", player.Weapons[WeaponRifle].CurrentAmmo)
	}
}

func TestEventJournalDrainAndRestore(t *testing.T) {
	w := newCombatWorld(t, Layout{})
	now := time.Unix(0, 0)
	for i := 1; i <= 3; i++ {
		w.appendEvent(uint64(i), now, EventWeaponMiss, WeaponMissPayload{PlayerID: "p"})
	}

	drained := w.DrainEvents()
	if len(drained) != 3 || len(w.SnapshotEvents()) != 0 {
		t.Fatalf("expected 3 drained and none pending, got %d/%d", len(drained), len(w.SnapshotEvents()))
	}

	// A failed delivery puts its batch back in front of anything newer.
	w.RestoreEvents(drained[:2])
	w.appendEvent(4, now, EventWeaponMiss, WeaponMissPayload{PlayerID: "p"})

	pending := w.SnapshotEvents()
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}
	for i, wantTick := range []uint64{1, 2, 4} {
		if pending[i].Tick != wantTick {
			t.Fatalf("pending[%d]: expected tick %d, got %d", i, wantTick, pending[i].Tick)
		}
	}

	// The snapshot is a copy; scribbling on it must not touch the journal.
	pending[0].Tick = 99
	if w.SnapshotEvents()[0].Tick != 1 {
		t.Fatalf("snapshot mutation leaked into the journal")
	}

	w.RestoreEvents(nil)
	if got := w.DrainEvents(); len(got) != 3 {
		t.Fatalf("expected 3 drained after no-op restore, got %d", len(got))
	}
}

func TestWorldNormalizesConfig(t *testing.T) {
	w, err := NewWorld(Config{}, Layout{})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	cfg := w.Config()
	if cfg.TickRate != defaultTickRate || cfg.MaxPlayers != 16 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Seed != DefaultSeed || cfg.RespawnDelay != defaultRespawnWait {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestNewWorldRejectsBrokenLayout(t *testing.T) {
	_, err := NewWorld(DefaultConfig(), Layout{
		Walls: []WallSpec{{ID: "bad", X: 0, Y: 0, Width: -5, Height: 10, Material: MaterialWood}},
	})
	if err == nil || !strings.Contains(err.Error(), "build layout") {
		t.Fatalf("expected a layout error, got %v", err)
	}
}
