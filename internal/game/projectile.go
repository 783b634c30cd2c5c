package game

import (
	"fmt"
	"math"
	"time"
)

// ProjectileType identifies the ballistic behaviour of a simulated
// projectile.
type ProjectileType string

const (
	ProjectileBullet    ProjectileType = "bullet"
	ProjectileRocket    ProjectileType = "rocket"
	ProjectileShell     ProjectileType = "shell"
	ProjectileGrenade   ProjectileType = "grenade"
	ProjectileSmoke     ProjectileType = "smokegrenade"
	ProjectileFlashbang ProjectileType = "flashbang"
)

// explodesOnImpact reports whether the projectile detonates the moment it
// touches a player or wall rather than coming to rest.
func (t ProjectileType) explodesOnImpact() bool {
	return t == ProjectileRocket || t == ProjectileShell
}

// fused reports whether the projectile carries a timer and detonates when it
// expires instead of on contact.
func (t ProjectileType) fused() bool {
	switch t {
	case ProjectileGrenade, ProjectileSmoke, ProjectileFlashbang:
		return true
	default:
		return false
	}
}

// arcs reports whether gravity bends the projectile's flight path.
func (t ProjectileType) arcs() bool {
	return t == ProjectileShell || t.fused()
}

// ProjectileState is a live projectile owned by the world. Exported fields
// feed snapshots directly.
type ProjectileState struct {
	ID               string         `json:"id"`
	Type             ProjectileType `json:"type"`
	OwnerID          string         `json:"ownerId"`
	Weapon           WeaponType     `json:"weaponType"`
	Position         Vector2        `json:"position"`
	Velocity         Vector2        `json:"velocity"`
	Damage           float64        `json:"damage"`
	Range            float64        `json:"range"`
	TraveledDistance float64        `json:"traveledDistance"`
	ExplosionRadius  float64        `json:"explosionRadius,omitempty"`
	ChargeLevel      int            `json:"chargeLevel,omitempty"`
	Exploded         bool           `json:"exploded"`

	fuseAt    time.Time
	stopped   bool
	destroyed bool
	hits      map[string]struct{}
}

// MarkHit records that the projectile already interacted with the given
// target and reports whether this is the first contact. Used so penetrating
// rounds and resting grenades never touch the same player or wall slice
// twice.
func (p *ProjectileState) MarkHit(targetID string) bool {
	if p.hits == nil {
		p.hits = make(map[string]struct{})
	}
	if _, seen := p.hits[targetID]; seen {
		return false
	}
	p.hits[targetID] = struct{}{}
	return true
}

func (p *ProjectileState) alreadyHit(targetID string) bool {
	_, seen := p.hits[targetID]
	return seen
}

func (p *ProjectileState) finished() bool {
	return p.Exploded || p.destroyed
}

func sliceHitKey(wallID string, idx int) string {
	return fmt.Sprintf("%s#%d", wallID, idx)
}

// projectileSpawn carries everything needed to launch a projectile. The
// weapon resolver fills it from the firing weapon's spec.
type projectileSpawn struct {
	Type            ProjectileType
	OwnerID         string
	Weapon          WeaponType
	Origin          Vector2
	Velocity        Vector2
	Damage          float64
	Range           float64
	ExplosionRadius float64
	ChargeLevel     int
	Fuse            time.Duration
}

// ProjectileSet owns every in-flight projectile. IDs are sequential so runs
// with the same seed and inputs stay comparable tick by tick.
type ProjectileSet struct {
	active []*ProjectileState
	nextID uint64
}

// NewProjectileSet returns an empty projectile registry.
func NewProjectileSet() *ProjectileSet {
	return &ProjectileSet{}
}

// Len reports how many projectiles are currently in flight.
func (ps *ProjectileSet) Len() int {
	return len(ps.active)
}

// Clear removes every in-flight projectile without detonating anything.
func (ps *ProjectileSet) Clear() {
	ps.active = ps.active[:0]
}

func (ps *ProjectileSet) spawn(s projectileSpawn, now time.Time) *ProjectileState {
	ps.nextID++
	p := &ProjectileState{
		ID:              fmt.Sprintf("projectile-%d", ps.nextID),
		Type:            s.Type,
		OwnerID:         s.OwnerID,
		Weapon:          s.Weapon,
		Position:        s.Origin,
		Velocity:        s.Velocity,
		Damage:          s.Damage,
		Range:           s.Range,
		ExplosionRadius: s.ExplosionRadius,
		ChargeLevel:     s.ChargeLevel,
	}
	if s.Fuse > 0 {
		p.fuseAt = now.Add(s.Fuse)
	}
	ps.active = append(ps.active, p)
	return p
}

func (ps *ProjectileSet) snapshot() []Projectile {
	if len(ps.active) == 0 {
		return nil
	}
	out := make([]Projectile, 0, len(ps.active))
	for _, p := range ps.active {
		out = append(out, Projectile{
			ID:               p.ID,
			Type:             p.Type,
			OwnerID:          p.OwnerID,
			Position:         p.Position,
			Velocity:         p.Velocity,
			TraveledDistance: p.TraveledDistance,
			Exploded:         p.Exploded,
			ExplosionRadius:  p.ExplosionRadius,
			ChargeLevel:      p.ChargeLevel,
		})
	}
	return out
}

func (ps *ProjectileSet) prune() {
	kept := ps.active[:0]
	for _, p := range ps.active {
		if p.finished() {
			continue
		}
		kept = append(kept, p)
	}
	ps.active = kept
}

// advanceProjectiles moves every projectile through the elapsed slice of
// time, resolving fuse timers, impacts, and range expiry. Movement is cut
// into sub-steps no longer than half a wall cell so fast rounds cannot
// tunnel through thin geometry.
func (w *World) advanceProjectiles(tick uint64, now time.Time, dt float64) {
	for _, p := range w.projectiles.active {
		if p.finished() {
			continue
		}

		if p.Type.arcs() && !p.stopped {
			p.Velocity.Y += grenadeGravity * dt
		}

		if !p.fuseAt.IsZero() && !now.Before(p.fuseAt) {
			w.detonateProjectile(p, p.Position, tick, now)
			continue
		}

		if p.stopped {
			continue
		}

		speed := p.Velocity.Length()
		if speed <= 0 {
			continue
		}

		travel := speed * dt
		expired := false
		if remaining := p.Range - p.TraveledDistance; travel >= remaining {
			travel = remaining
			expired = true
		}

		dir := p.Velocity.Normalized()
		for travel > 1e-9 && !p.finished() && !p.stopped {
			step := travel
			if step > projectileMaxStep {
				step = projectileMaxStep
			}
			moved, ended := w.projectileSegment(p, dir, step, tick, now)
			p.TraveledDistance += moved
			travel -= moved
			if ended {
				break
			}
		}

		if expired && !p.finished() && !p.stopped {
			w.expireProjectile(p, tick, now)
		}
	}
	w.projectiles.prune()
}

// projectileSegment advances one sub-step, handling at most one collision.
// It returns the distance actually consumed and whether the projectile's
// flight ended inside this segment.
func (w *World) projectileSegment(p *ProjectileState, dir Vector2, step float64, tick uint64, now time.Time) (float64, bool) {
	origin := p.Position

	playerT, target := w.nearestProjectileTarget(p, origin, dir, step)
	wallT, wall, sliceIdx, wallHit := w.walls.nearestIntactSlice(origin, dir, step, p.alreadyHit)

	if target != nil && (!wallHit || playerT <= wallT) {
		return playerT, w.projectileHitPlayer(p, target, origin.Add(dir.Scale(playerT)), tick, now)
	}
	if wallHit {
		return w.projectileHitWall(p, wall, sliceIdx, origin, dir, wallT, tick, now)
	}

	p.Position = origin.Add(dir.Scale(step))
	return step, false
}

func (w *World) projectileHitPlayer(p *ProjectileState, target *PlayerState, at Vector2, tick uint64, now time.Time) bool {
	p.MarkHit(target.ID)
	p.Position = at

	switch {
	case p.Type.explodesOnImpact():
		w.detonateProjectile(p, at, tick, now)
		return true
	case p.Type.fused():
		// Fused munitions bounce off bodies and come to rest; the timer
		// finishes the job.
		w.stopProjectile(p, at, tick, now)
		return true
	default:
		w.appendEvent(tick, now, EventWeaponHit, WeaponHitPayload{
			PlayerID:   p.OwnerID,
			Weapon:     p.Weapon,
			TargetKind: TargetPlayer,
			TargetID:   target.ID,
			Damage:     p.Damage,
			Position:   at,
		})
		w.applyPlayerDamage(target, p.OwnerID, p.Weapon, p.Damage, DamageBullet, false, tick, now)
		w.destroyProjectile(p, at, "impact", tick, now)
		return true
	}
}

func (w *World) projectileHitWall(p *ProjectileState, wall *WallState, sliceIdx int, origin, dir Vector2, wallT float64, tick uint64, now time.Time) (float64, bool) {
	at := origin.Add(dir.Scale(wallT))

	switch {
	case p.Type.explodesOnImpact():
		p.Position = at
		w.detonateProjectile(p, at, tick, now)
		return wallT, true
	case p.Type.fused():
		rest := wallT - playerHalf/2
		if rest < 0 {
			rest = 0
		}
		w.stopProjectile(p, origin.Add(dir.Scale(rest)), tick, now)
		return rest, true
	}

	// Bullet: the struck slice soaks the round's remaining energy, then
	// soft materials let what is left continue through.
	p.MarkHit(sliceHitKey(wall.ID, sliceIdx))
	if result, ok := w.walls.applyDamageToSlice(wall.ID, sliceIdx, p.Damage); ok {
		w.emitWallDamage(result, p.OwnerID, p.Weapon, at, tick, now)
	}
	if wall.Material.bulletPenetrable() {
		p.Damage -= penetrationCost
		if p.Damage > 0 {
			p.Position = at
			w.appendEvent(tick, now, EventProjectileUpdated, ProjectileUpdatedPayload{
				ProjectileID: p.ID,
				Position:     p.Position,
				Velocity:     p.Velocity,
				Damage:       p.Damage,
			})
			return wallT, false
		}
	}
	w.destroyProjectile(p, at, "impact", tick, now)
	return wallT, true
}

// nearestProjectileTarget finds the closest live player the projectile can
// strike along the segment. The owner, players already struck, and (with
// friendly fire off) teammates are transparent.
func (w *World) nearestProjectileTarget(p *ProjectileState, origin, dir Vector2, maxDist float64) (float64, *PlayerState) {
	ownerTeam, ownerKnown := w.playerTeam(p.OwnerID)
	best := math.MaxFloat64
	var bestTarget *PlayerState
	for _, id := range w.playerOrder {
		target := w.players[id]
		if target == nil || !target.Alive || target.ID == p.OwnerID {
			continue
		}
		if p.alreadyHit(target.ID) {
			continue
		}
		if !w.config.FriendlyFire && ownerKnown && target.Team == ownerTeam {
			continue
		}
		t, ok := segmentCircleHit(origin, dir, maxDist, target.Transform.Position, playerHalf)
		if !ok || t >= best {
			continue
		}
		best = t
		bestTarget = target
	}
	if bestTarget == nil {
		return 0, nil
	}
	return best, bestTarget
}

// nearestIntactSlice finds the first intact wall slice a ray crosses within
// maxDist. skip lets callers ignore slices the projectile already punched
// through.
func (ws *WallSet) nearestIntactSlice(origin, dir Vector2, maxDist float64, skip func(string) bool) (float64, *WallState, int, bool) {
	best := math.MaxFloat64
	var bestWall *WallState
	bestIdx := -1
	for _, id := range ws.order {
		wall := ws.walls[id]
		if wall == nil || wall.Destroyed {
			continue
		}
		if _, ok := rayRectIntersect(origin, dir, wall.Rect(), maxDist); !ok {
			continue
		}
		for i := range wall.Slices {
			if wall.Slices[i].Destroyed {
				continue
			}
			if skip != nil && skip(sliceHitKey(wall.ID, i)) {
				continue
			}
			t, ok := rayRectIntersect(origin, dir, wall.SliceRect(i), maxDist)
			if !ok || t >= best {
				continue
			}
			best = t
			bestWall = wall
			bestIdx = i
		}
	}
	if bestWall == nil {
		return 0, nil, -1, false
	}
	return best, bestWall, bestIdx, true
}

func (w *World) stopProjectile(p *ProjectileState, at Vector2, tick uint64, now time.Time) {
	p.Position = at
	p.Velocity = Vector2{}
	p.stopped = true
	w.appendEvent(tick, now, EventProjectileUpdated, ProjectileUpdatedPayload{
		ProjectileID: p.ID,
		Position:     p.Position,
		Velocity:     p.Velocity,
		Damage:       p.Damage,
	})
}

func (w *World) destroyProjectile(p *ProjectileState, at Vector2, reason string, tick uint64, now time.Time) {
	p.Position = at
	p.destroyed = true
	w.appendEvent(tick, now, EventProjectileDestroyed, ProjectileDestroyedPayload{
		ProjectileID: p.ID,
		Position:     at,
		Reason:       reason,
	})
}

// expireProjectile handles a projectile reaching the end of its range:
// explosive types detonate in place, everything else just disappears.
func (w *World) expireProjectile(p *ProjectileState, tick uint64, now time.Time) {
	if p.ExplosionRadius > 0 {
		w.detonateProjectile(p, p.Position, tick, now)
		return
	}
	w.destroyProjectile(p, p.Position, "range", tick, now)
}

func (w *World) detonateProjectile(p *ProjectileState, at Vector2, tick uint64, now time.Time) {
	p.Position = at
	p.Velocity = Vector2{}
	p.Exploded = true
	w.appendEvent(tick, now, EventProjectileExploded, ProjectileExplodedPayload{
		ProjectileID: p.ID,
		Position:     at,
	})
	w.applyExplosion(p.ID, p.OwnerID, p.Weapon, at, p.ExplosionRadius, p.Damage, tick, now)
}

// applyExplosion deals radial damage around a detonation point. Damage
// scales with (1 - d/radius)^2 so the edge of the blast barely scratches.
// Players are measured by centre distance, wall slices by their closest
// point, and the owner is never exempt from their own blast.
func (w *World) applyExplosion(sourceID, ownerID string, weapon WeaponType, at Vector2, radius, damage float64, tick uint64, now time.Time) {
	w.appendEvent(tick, now, EventExplosionCreated, ExplosionCreatedPayload{
		SourceID: sourceID,
		OwnerID:  ownerID,
		Position: at,
		Radius:   radius,
		Damage:   damage,
	})
	if radius <= 0 || damage <= 0 {
		return
	}

	ownerTeam, ownerKnown := w.playerTeam(ownerID)
	for _, id := range w.playerOrder {
		target := w.players[id]
		if target == nil || !target.Alive {
			continue
		}
		if !w.config.FriendlyFire && ownerKnown && target.ID != ownerID && target.Team == ownerTeam {
			continue
		}
		d := target.Transform.Position.Distance(at)
		amount := explosionDamage(damage, d, radius)
		if amount <= 0 {
			continue
		}
		w.applyPlayerDamage(target, ownerID, weapon, amount, DamageExplosion, false, tick, now)
	}

	for _, wallID := range w.walls.order {
		wall := w.walls.walls[wallID]
		if wall == nil || wall.Destroyed {
			continue
		}
		for i := range wall.Slices {
			if wall.Slices[i].Destroyed {
				continue
			}
			d := wall.SliceRect(i).ClosestPoint(at).Distance(at)
			amount := explosionDamage(damage, d, radius)
			if amount <= 0 {
				continue
			}
			result, ok := w.walls.applyDamageToSlice(wallID, i, amount)
			if !ok {
				continue
			}
			w.emitWallDamage(result, ownerID, weapon, at, tick, now)
		}
	}
}

// explosionDamage computes the damage delivered at distance d from a blast
// of the given base damage and radius.
func explosionDamage(base, d, radius float64) float64 {
	if d >= radius {
		return 0
	}
	falloff := 1 - clamp(d/radius, 0, 1)
	return base * math.Pow(falloff, explosionFalloffPower)
}

func (w *World) emitWallDamage(result WallDamageResult, attackerID string, weapon WeaponType, at Vector2, tick uint64, now time.Time) {
	w.appendEvent(tick, now, EventWallDamaged, WallDamagedPayload{
		WallID:         result.WallID,
		Material:       result.Material,
		SliceIndex:     result.SliceIndex,
		Damage:         result.Applied,
		NewHealth:      result.NewHealth,
		SliceDestroyed: result.SliceDestroyed,
		AttackerID:     attackerID,
		Weapon:         weapon,
		Position:       at,
	})
	if result.WallDestroyed {
		w.appendEvent(tick, now, EventWallDestroyed, WallDestroyedPayload{
			WallID:     result.WallID,
			AttackerID: attackerID,
		})
	}
}
