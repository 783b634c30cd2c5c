package game

import (
	"math"
	"sort"
	"time"
)

// CommandOutcome reports how a combat command resolved. Rejected commands
// carry a short machine-readable reason; accepted ones carry the events the
// resolution appended, in order.
type CommandOutcome struct {
	Success bool
	Reason  string
	Events  []Event
}

func reject(reason string) CommandOutcome {
	return CommandOutcome{Reason: reason}
}

// resolveFire handles a trigger pull on the shooter's active weapon. The ray
// or projectile always leaves along the server-held rotation; client aim
// claims are never trusted.
func (w *World) resolveFire(shooter *PlayerState, tick uint64, now time.Time) CommandOutcome {
	weapon, ok := shooter.activeWeapon()
	if !ok {
		return reject("no-weapon")
	}
	if weapon.Spec().Class == ClassThrown {
		// A plain trigger pull on a grenade is an uncharged throw.
		return w.resolveThrow(shooter, 1, tick, now)
	}
	if out, ok := w.checkFireGates(weapon, now); !ok {
		return out
	}

	mark := len(w.pending)
	spec := weapon.Spec()
	w.consumeShot(weapon, now)

	origin := shooter.Transform.Position.Add(angleVector(shooter.Transform.Rotation).Scale(muzzleOffset))
	w.appendEvent(tick, now, EventWeaponFired, WeaponFiredPayload{
		PlayerID:  shooter.ID,
		Weapon:    weapon.Type,
		Ammo:      weapon.CurrentAmmo,
		Position:  origin,
		Direction: shooter.Transform.Rotation,
	})

	switch spec.Class {
	case ClassHitscan:
		w.castHitscan(shooter, weapon, origin, tick, now)
	case ClassProjectile:
		dir := angleVector(shooter.Transform.Rotation + w.aimJitter(weapon, shooter.IsADS))
		p := w.projectiles.spawn(projectileSpawn{
			Type:            spec.Projectile,
			OwnerID:         shooter.ID,
			Weapon:          weapon.Type,
			Origin:          origin,
			Velocity:        dir.Scale(spec.ProjectileSpeed),
			Damage:          weapon.Damage,
			Range:           weapon.Range,
			ExplosionRadius: spec.ExplosionRadius,
		}, now)
		w.appendEvent(tick, now, EventProjectileCreated, ProjectileCreatedPayload{
			ProjectileID: p.ID,
			Type:         p.Type,
			OwnerID:      p.OwnerID,
			Position:     p.Position,
			Velocity:     p.Velocity,
		})
	}

	return CommandOutcome{Success: true, Events: w.eventsSince(mark)}
}

// resolveThrow lobs the active thrown weapon. Charge scales launch speed and
// is clamped to the allowed levels.
func (w *World) resolveThrow(shooter *PlayerState, charge int, tick uint64, now time.Time) CommandOutcome {
	weapon, ok := shooter.activeWeapon()
	if !ok {
		return reject("no-weapon")
	}
	spec := weapon.Spec()
	if spec.Class != ClassThrown {
		return reject("not-throwable")
	}
	if out, ok := w.checkFireGates(weapon, now); !ok {
		return out
	}

	if charge < 1 {
		charge = 1
	} else if charge > maxChargeLevel {
		charge = maxChargeLevel
	}

	mark := len(w.pending)
	w.consumeShot(weapon, now)

	origin := shooter.Transform.Position.Add(angleVector(shooter.Transform.Rotation).Scale(muzzleOffset))
	speed := spec.ThrowSpeedBase + spec.ThrowSpeedBonus*float64(charge)
	dir := angleVector(shooter.Transform.Rotation)

	w.appendEvent(tick, now, EventWeaponFired, WeaponFiredPayload{
		PlayerID:  shooter.ID,
		Weapon:    weapon.Type,
		Ammo:      weapon.CurrentAmmo,
		Position:  origin,
		Direction: shooter.Transform.Rotation,
	})

	p := w.projectiles.spawn(projectileSpawn{
		Type:            spec.Projectile,
		OwnerID:         shooter.ID,
		Weapon:          weapon.Type,
		Origin:          origin,
		Velocity:        dir.Scale(speed),
		Damage:          weapon.Damage,
		Range:           weapon.Range,
		ExplosionRadius: spec.ExplosionRadius,
		ChargeLevel:     charge,
		Fuse:            spec.FuseTime,
	}, now)
	w.appendEvent(tick, now, EventProjectileCreated, ProjectileCreatedPayload{
		ProjectileID: p.ID,
		Type:         p.Type,
		OwnerID:      p.OwnerID,
		Position:     p.Position,
		Velocity:     p.Velocity,
		ChargeLevel:  charge,
	})

	return CommandOutcome{Success: true, Events: w.eventsSince(mark)}
}

// resolveReload starts a reload on the active weapon. Ammo moves only when
// the timer completes during a later tick.
func (w *World) resolveReload(shooter *PlayerState, now time.Time) CommandOutcome {
	weapon, ok := shooter.activeWeapon()
	if !ok {
		return reject("no-weapon")
	}
	if weapon.IsReloading {
		return reject("reloading")
	}
	if weapon.CurrentAmmo >= weapon.MaxAmmo {
		return reject("magazine-full")
	}
	if weapon.ReserveAmmo <= 0 {
		return reject("no-reserve")
	}
	weapon.IsReloading = true
	weapon.reloadDoneAt = now.Add(weapon.ReloadTime)
	return CommandOutcome{Success: true}
}

// resolveSwitch changes the active weapon. Switching abandons any reload in
// progress on the weapon being holstered.
func (w *World) resolveSwitch(shooter *PlayerState, target WeaponType, tick uint64, now time.Time) CommandOutcome {
	if _, held := shooter.Weapons[target]; !held {
		return reject("not-held")
	}
	if target == shooter.ActiveWeapon {
		return reject("already-active")
	}

	mark := len(w.pending)
	if current, ok := shooter.activeWeapon(); ok && current.IsReloading {
		current.cancelReload()
	}
	from := shooter.ActiveWeapon
	shooter.ActiveWeapon = target
	w.appendEvent(tick, now, EventWeaponSwitched, WeaponSwitchedPayload{
		PlayerID: shooter.ID,
		From:     from,
		To:       target,
	})
	return CommandOutcome{Success: true, Events: w.eventsSince(mark)}
}

// checkFireGates applies the shared reject rules for firing: reload in
// progress, heat lockout, rate of fire, and an empty magazine.
func (w *World) checkFireGates(weapon *WeaponState, now time.Time) (CommandOutcome, bool) {
	if weapon.IsReloading {
		return reject("reloading"), false
	}
	if weapon.overheated(now) {
		return reject("overheated"), false
	}
	if interval := weapon.Spec().fireInterval(); interval > 0 && !weapon.LastFireTime.IsZero() {
		if now.Sub(weapon.LastFireTime) < interval {
			return reject("cooldown"), false
		}
	}
	if weapon.CurrentAmmo <= 0 {
		return reject("no-ammo"), false
	}
	return CommandOutcome{}, true
}

// consumeShot spends one round, stamps the fire time, and accumulates heat.
// Hitting the heat limit locks the weapon out for the catalog penalty.
func (w *World) consumeShot(weapon *WeaponState, now time.Time) {
	weapon.CurrentAmmo--
	weapon.LastFireTime = now
	spec := weapon.Spec()
	if spec.HeatPerShot > 0 {
		weapon.Heat += spec.HeatPerShot
		if weapon.Heat >= spec.HeatLimit {
			weapon.Heat = spec.HeatLimit
			weapon.overheatedUntil = now.Add(spec.OverheatPenalty)
		}
	}
}

// aimJitter draws a deterministic angular error for one shot, scaled by the
// weapon's accuracy and halved while aiming down sights.
func (w *World) aimJitter(weapon *WeaponState, ads bool) float64 {
	spread := (1 - weapon.Accuracy) * baseSpreadRadians
	if ads {
		spread *= adsSpreadScale
	}
	if spread <= 0 {
		return 0
	}
	return (w.weaponRNG.Float64()*2 - 1) * spread
}

// rayHit is one obstruction along a hitscan ray, ordered by distance.
type rayHit struct {
	t        float64
	point    Vector2
	player   *PlayerState
	perp     float64 // ray-to-centre distance, for headshot detection
	wall     *WallState
	sliceIdx int
}

// collectRayHits gathers every player and intact wall slice a ray crosses
// within maxDist, sorted near to far. The shooter, dead players, and (with
// friendly fire off) teammates are transparent.
func (w *World) collectRayHits(shooter *PlayerState, origin, dir Vector2, maxDist float64) []rayHit {
	var hits []rayHit

	for _, id := range w.playerOrder {
		target := w.players[id]
		if target == nil || !target.Alive || target.ID == shooter.ID {
			continue
		}
		if !w.config.FriendlyFire && target.Team == shooter.Team {
			continue
		}
		t, perp, ok := rayCircleIntersect(origin, dir, target.Transform.Position, playerHalf, maxDist)
		if !ok {
			continue
		}
		hits = append(hits, rayHit{
			t:      t,
			point:  origin.Add(dir.Scale(t)),
			player: target,
			perp:   perp,
		})
	}

	w.walls.forEachIntactSlice(func(wall *WallState, idx int, rect Rect) bool {
		t, ok := rayRectIntersect(origin, dir, rect, maxDist)
		if !ok {
			return true
		}
		hits = append(hits, rayHit{
			t:        t,
			point:    origin.Add(dir.Scale(t)),
			wall:     wall,
			sliceIdx: idx,
		})
		return true
	})

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].t != hits[j].t {
			return hits[i].t < hits[j].t
		}
		// Same distance: players soak the round before the wall behind them.
		return hits[i].player != nil && hits[j].player == nil
	})
	return hits
}

// pelletTally aggregates every pellet of one trigger pull so each target
// receives a single damage application and a single hit event.
type pelletTally struct {
	playerDamage map[string]float64
	playerPoint  map[string]Vector2
	playerHead   map[string]bool
	playerOrder  []string
	players      map[string]*PlayerState

	sliceDamage map[string]float64
	slicePoint  map[string]Vector2
	sliceWall   map[string]*WallState
	sliceIdx    map[string]int
	sliceOrder  []string
}

func newPelletTally() *pelletTally {
	return &pelletTally{
		playerDamage: make(map[string]float64),
		playerPoint:  make(map[string]Vector2),
		playerHead:   make(map[string]bool),
		players:      make(map[string]*PlayerState),
		sliceDamage:  make(map[string]float64),
		slicePoint:   make(map[string]Vector2),
		sliceWall:    make(map[string]*WallState),
		sliceIdx:     make(map[string]int),
	}
}

func (t *pelletTally) addPlayer(target *PlayerState, damage float64, headshot bool, point Vector2) {
	if _, seen := t.playerDamage[target.ID]; !seen {
		t.playerOrder = append(t.playerOrder, target.ID)
		t.players[target.ID] = target
		t.playerPoint[target.ID] = point
	}
	t.playerDamage[target.ID] += damage
	if headshot {
		t.playerHead[target.ID] = true
	}
}

func (t *pelletTally) addSlice(wall *WallState, idx int, damage float64, point Vector2) {
	key := sliceHitKey(wall.ID, idx)
	if _, seen := t.sliceDamage[key]; !seen {
		t.sliceOrder = append(t.sliceOrder, key)
		t.sliceWall[key] = wall
		t.sliceIdx[key] = idx
		t.slicePoint[key] = point
	}
	t.sliceDamage[key] += damage
}

func (t *pelletTally) empty() bool {
	return len(t.playerOrder) == 0 && len(t.sliceOrder) == 0
}

// castHitscan resolves every pellet of a hitscan shot and applies the
// aggregated damage. Heavy rifles with a penetration rating keep going
// through targets at reduced damage; everything else stops at the first.
func (w *World) castHitscan(shooter *PlayerState, weapon *WeaponState, origin Vector2, tick uint64, now time.Time) {
	spec := weapon.Spec()
	pellets := spec.Pellets
	if pellets < 1 {
		pellets = 1
	}
	budget := spec.Penetration
	if budget < 1 {
		budget = 1
	}

	tally := newPelletTally()
	for i := 0; i < pellets; i++ {
		angle := shooter.Transform.Rotation + w.aimJitter(weapon, shooter.IsADS)
		if pellets > 1 {
			// Fan the pellets evenly across the spread cone; jitter roughs
			// up the fan so the pattern is not a perfect comb.
			angle += spec.SpreadAngle * (float64(i)/float64(pellets-1) - 0.5)
		}
		w.castPellet(shooter, weapon, origin, angleVector(angle), budget, tally)
	}

	if tally.empty() {
		w.appendEvent(tick, now, EventWeaponMiss, WeaponMissPayload{
			PlayerID: shooter.ID,
			Weapon:   weapon.Type,
		})
		return
	}

	for _, id := range tally.playerOrder {
		target := tally.players[id]
		damage := tally.playerDamage[id]
		headshot := tally.playerHead[id]
		w.appendEvent(tick, now, EventWeaponHit, WeaponHitPayload{
			PlayerID:   shooter.ID,
			Weapon:     weapon.Type,
			TargetKind: TargetPlayer,
			TargetID:   id,
			Damage:     damage,
			Headshot:   headshot,
			Position:   tally.playerPoint[id],
		})
		w.applyPlayerDamage(target, shooter.ID, weapon.Type, damage, DamageBullet, headshot, tick, now)
	}

	for _, key := range tally.sliceOrder {
		wall := tally.sliceWall[key]
		result, ok := w.walls.applyDamageToSlice(wall.ID, tally.sliceIdx[key], tally.sliceDamage[key])
		if !ok {
			continue
		}
		w.appendEvent(tick, now, EventWeaponHit, WeaponHitPayload{
			PlayerID:   shooter.ID,
			Weapon:     weapon.Type,
			TargetKind: TargetWall,
			TargetID:   wall.ID,
			Damage:     tally.sliceDamage[key],
			Position:   tally.slicePoint[key],
		})
		w.emitWallDamage(result, shooter.ID, weapon.Type, tally.slicePoint[key], tick, now)
	}
}

// castPellet traces one ray and accumulates its damage into the tally.
// Each pierced layer keeps a fraction of the previous one's damage.
func (w *World) castPellet(shooter *PlayerState, weapon *WeaponState, origin, dir Vector2, budget int, tally *pelletTally) {
	layer := 0
	for _, hit := range w.collectRayHits(shooter, origin, dir, weapon.Range) {
		if layer >= budget {
			break
		}
		damage := falloffDamage(weapon.Damage, hit.t, weapon.Range) * math.Pow(penetrationRetain, float64(layer))
		if damage <= 0 {
			break
		}
		if hit.player != nil {
			headshot := hit.perp < headshotRadius
			if headshot {
				damage *= headshotMultiplier
			}
			tally.addPlayer(hit.player, damage, headshot, hit.point)
		} else {
			tally.addSlice(hit.wall, hit.sliceIdx, damage, hit.point)
		}
		layer++
	}
}

// falloffDamage applies distance falloff: full damage through half the
// weapon's range, then a linear slide down to the minimum fraction at
// exactly max range.
func falloffDamage(base, distance, weaponRange float64) float64 {
	if weaponRange <= 0 {
		return base
	}
	start := weaponRange * damageFalloffStart
	if distance <= start {
		return base
	}
	if distance >= weaponRange {
		return base * minDamageFraction
	}
	frac := (distance - start) / (weaponRange - start)
	return base * (1 - frac*(1-minDamageFraction))
}
