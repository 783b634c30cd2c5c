package game

import "time"

// Team is the side a player fights for.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// MovementState is the client-declared locomotion mode. It scales speed and,
// indirectly, how loud the player is to the vision/audio layer client-side.
type MovementState string

const (
	MovementIdle     MovementState = "idle"
	MovementWalking  MovementState = "walking"
	MovementRunning  MovementState = "running"
	MovementSneaking MovementState = "sneaking"
)

// Valid reports whether the movement state is one of the known modes.
func (m MovementState) Valid() bool {
	switch m {
	case MovementIdle, MovementWalking, MovementRunning, MovementSneaking:
		return true
	}
	return false
}

// speed returns base movement speed in units per second.
func (m MovementState) speed() float64 {
	switch m {
	case MovementSneaking:
		return sneakSpeed
	case MovementRunning:
		return runSpeed
	case MovementWalking:
		return walkSpeed
	}
	return 0
}

// PlayerState is the authoritative server-side record for one player. Only
// the world's tick goroutine touches it.
type PlayerState struct {
	ID                 string
	Name               string
	Transform          Transform
	Health             float64
	Armor              float64
	Team               Team
	Alive              bool
	Weapons            map[WeaponType]*WeaponState
	ActiveWeapon       WeaponType
	Movement           MovementState
	IsADS              bool
	LastDamageTime     time.Time
	Kills              int
	Deaths             int
	LastProcessedInput uint64

	intentX, intentY float64
	respawnAt        time.Time
	lastAttackerID   string
	lastHitWeapon    WeaponType
	lastHeartbeat    time.Time
	lastRTT          time.Duration
}

// newPlayerState spawns a player with the default loadout at full health,
// drawing weapon numbers from the world's tuned catalog.
func newPlayerState(id, name string, team Team, position Vector2, now time.Time, catalog map[WeaponType]WeaponSpec) *PlayerState {
	weapons := make(map[WeaponType]*WeaponState, len(defaultLoadout))
	for _, weaponType := range defaultLoadout {
		if state, err := newWeaponStateFrom(catalog, weaponType); err == nil {
			weapons[weaponType] = state
		}
	}
	return &PlayerState{
		ID:            id,
		Name:          name,
		Transform:     defaultTransform(position),
		Health:        playerMaxHealth,
		Team:          team,
		Alive:         true,
		Weapons:       weapons,
		ActiveWeapon:  defaultLoadout[0],
		Movement:      MovementIdle,
		lastHeartbeat: now,
	}
}

// activeWeapon returns the currently held weapon, if any.
func (p *PlayerState) activeWeapon() (*WeaponState, bool) {
	weapon, ok := p.Weapons[p.ActiveWeapon]
	return weapon, ok
}

// restock resets health, armor, and every weapon to its fresh state. Used on
// respawn; kill and death tallies are kept.
func (p *PlayerState) restock(catalog map[WeaponType]WeaponSpec) {
	p.Health = playerMaxHealth
	p.Armor = 0
	p.Alive = true
	p.Movement = MovementIdle
	p.IsADS = false
	p.intentX = 0
	p.intentY = 0
	p.respawnAt = time.Time{}
	p.lastAttackerID = ""
	p.lastHitWeapon = ""
	for weaponType := range p.Weapons {
		if fresh, err := newWeaponStateFrom(catalog, weaponType); err == nil {
			p.Weapons[weaponType] = fresh
		}
	}
	p.ActiveWeapon = defaultLoadout[0]
}

// snapshot copies the wire-visible fields, including a deep copy of weapons.
func (p *PlayerState) snapshot() Player {
	weapons := make(map[WeaponType]Weapon, len(p.Weapons))
	for weaponType, state := range p.Weapons {
		weapons[weaponType] = state.snapshot()
	}
	return Player{
		ID:                 p.ID,
		Name:               p.Name,
		Position:           p.Transform.Position,
		Rotation:           p.Transform.Rotation,
		Health:             p.Health,
		Armor:              p.Armor,
		Team:               p.Team,
		Alive:              p.Alive,
		Weapons:            weapons,
		ActiveWeapon:       p.ActiveWeapon,
		Movement:           p.Movement,
		IsADS:              p.IsADS,
		Kills:              p.Kills,
		Deaths:             p.Deaths,
		LastProcessedInput: p.LastProcessedInput,
	}
}
