package game

// EventType discriminates the outbound event union. The set is closed;
// consumers switch exhaustively and ignore nothing.
type EventType string

const (
	EventPlayerJoined    EventType = "player-joined"
	EventPlayerLeft      EventType = "player-left"
	EventPlayerDamaged   EventType = "player-damaged"
	EventPlayerKilled    EventType = "player-killed"
	EventPlayerRespawned EventType = "player-respawned"

	EventWeaponFired    EventType = "weapon-fired"
	EventWeaponHit      EventType = "weapon-hit"
	EventWeaponMiss     EventType = "weapon-miss"
	EventWeaponReloaded EventType = "weapon-reloaded"
	EventWeaponSwitched EventType = "weapon-switched"

	EventWallDamaged   EventType = "wall-damaged"
	EventWallDestroyed EventType = "wall-destroyed"

	EventProjectileCreated   EventType = "projectile-created"
	EventProjectileUpdated   EventType = "projectile-updated"
	EventProjectileExploded  EventType = "projectile-exploded"
	EventProjectileDestroyed EventType = "projectile-destroyed"
	EventExplosionCreated    EventType = "explosion-created"
)

// Event is a discrete occurrence appended during a simulation tick and
// drained by the network tick. Payload holds the typed struct for Type.
type Event struct {
	Type      EventType `json:"type"`
	Tick      uint64    `json:"tick"`
	Timestamp int64     `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// DamageType labels where damage came from.
type DamageType string

const (
	DamageBullet    DamageType = "bullet"
	DamageExplosion DamageType = "explosion"
)

// TargetKind labels what a hitscan ray stopped on.
type TargetKind string

const (
	TargetPlayer TargetKind = "player"
	TargetWall   TargetKind = "wall"
)

type PlayerJoinedPayload struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name,omitempty"`
	Team     Team    `json:"team"`
	Position Vector2 `json:"position"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason,omitempty"`
}

type PlayerDamagedPayload struct {
	PlayerID   string     `json:"playerId"`
	AttackerID string     `json:"attackerId,omitempty"`
	Weapon     WeaponType `json:"weapon,omitempty"`
	DamageType DamageType `json:"damageType"`
	Damage     float64    `json:"damage"`
	NewHealth  float64    `json:"newHealth"`
	Headshot   bool       `json:"headshot,omitempty"`
	IsKilled   bool       `json:"isKilled"`
}

type PlayerKilledPayload struct {
	PlayerID string     `json:"playerId"`
	KillerID string     `json:"killerId,omitempty"`
	Weapon   WeaponType `json:"weapon,omitempty"`
	Position Vector2    `json:"position"`
}

type PlayerRespawnedPayload struct {
	PlayerID string  `json:"playerId"`
	Position Vector2 `json:"position"`
}

type WeaponFiredPayload struct {
	PlayerID  string     `json:"playerId"`
	Weapon    WeaponType `json:"weapon"`
	Ammo      int        `json:"ammo"`
	Position  Vector2    `json:"position"`
	Direction float64    `json:"direction"`
}

type WeaponHitPayload struct {
	PlayerID   string     `json:"playerId"`
	Weapon     WeaponType `json:"weapon"`
	TargetKind TargetKind `json:"targetKind"`
	TargetID   string     `json:"targetId"`
	Damage     float64    `json:"damage"`
	Headshot   bool       `json:"headshot,omitempty"`
	Position   Vector2    `json:"position"`
}

type WeaponMissPayload struct {
	PlayerID string     `json:"playerId"`
	Weapon   WeaponType `json:"weapon"`
}

type WeaponReloadedPayload struct {
	PlayerID    string     `json:"playerId"`
	Weapon      WeaponType `json:"weapon"`
	CurrentAmmo int        `json:"currentAmmo"`
	ReserveAmmo int        `json:"reserveAmmo"`
}

type WeaponSwitchedPayload struct {
	PlayerID string     `json:"playerId"`
	From     WeaponType `json:"from"`
	To       WeaponType `json:"to"`
}

type WallDamagedPayload struct {
	WallID         string       `json:"wallId"`
	Material       WallMaterial `json:"material"`
	SliceIndex     int          `json:"sliceIndex"`
	Damage         float64      `json:"damage"`
	NewHealth      float64      `json:"newHealth"`
	SliceDestroyed bool         `json:"sliceDestroyed"`
	AttackerID     string       `json:"attackerId,omitempty"`
	Weapon         WeaponType   `json:"weapon,omitempty"`
	Position       Vector2      `json:"position"`
}

type WallDestroyedPayload struct {
	WallID     string `json:"wallId"`
	AttackerID string `json:"attackerId,omitempty"`
}

type ProjectileCreatedPayload struct {
	ProjectileID string         `json:"projectileId"`
	Type         ProjectileType `json:"projectileType"`
	OwnerID      string         `json:"ownerId"`
	Position     Vector2        `json:"position"`
	Velocity     Vector2        `json:"velocity"`
	ChargeLevel  int            `json:"chargeLevel,omitempty"`
}

type ProjectileUpdatedPayload struct {
	ProjectileID string  `json:"projectileId"`
	Position     Vector2 `json:"position"`
	Velocity     Vector2 `json:"velocity"`
	Damage       float64 `json:"damage"`
}

type ProjectileExplodedPayload struct {
	ProjectileID string  `json:"projectileId"`
	Position     Vector2 `json:"position"`
}

type ProjectileDestroyedPayload struct {
	ProjectileID string  `json:"projectileId"`
	Position     Vector2 `json:"position"`
	Reason       string  `json:"reason"`
}

type ExplosionCreatedPayload struct {
	SourceID string  `json:"sourceId"`
	OwnerID  string  `json:"ownerId,omitempty"`
	Position Vector2 `json:"position"`
	Radius   float64 `json:"radius"`
	Damage   float64 `json:"damage"`
}
