package game

// Player is the wire-visible view of a player.
type Player struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name,omitempty"`
	Position           Vector2               `json:"position"`
	Rotation           float64               `json:"rotation"`
	Health             float64               `json:"health"`
	Armor              float64               `json:"armor"`
	Team               Team                  `json:"team"`
	Alive              bool                  `json:"alive"`
	Weapons            map[WeaponType]Weapon `json:"weapons"`
	ActiveWeapon       WeaponType            `json:"activeWeapon"`
	Movement           MovementState         `json:"movement"`
	IsADS              bool                  `json:"isADS"`
	Kills              int                   `json:"kills"`
	Deaths             int                   `json:"deaths"`
	LastProcessedInput uint64                `json:"lastProcessedInput"`
}

// Weapon is the wire-visible view of one weapon slot.
type Weapon struct {
	Type         WeaponType `json:"type"`
	CurrentAmmo  int        `json:"currentAmmo"`
	ReserveAmmo  int        `json:"reserveAmmo"`
	MaxAmmo      int        `json:"maxAmmo"`
	MaxReserve   int        `json:"maxReserve"`
	Damage       float64    `json:"damage"`
	FireRate     float64    `json:"fireRate"`
	ReloadTimeMs int64      `json:"reloadTimeMs"`
	IsReloading  bool       `json:"isReloading"`
	Accuracy     float64    `json:"accuracy"`
	Range        float64    `json:"range"`
	Heat         float64    `json:"heat,omitempty"`
}

// Projectile is the wire-visible view of a live projectile.
type Projectile struct {
	ID               string         `json:"id"`
	Type             ProjectileType `json:"type"`
	OwnerID          string         `json:"ownerId"`
	Position         Vector2        `json:"position"`
	Velocity         Vector2        `json:"velocity"`
	TraveledDistance float64        `json:"traveledDistance"`
	Exploded         bool           `json:"exploded"`
	ExplosionRadius  float64        `json:"explosionRadius,omitempty"`
	ChargeLevel      int            `json:"chargeLevel,omitempty"`
}

// Snapshot is a deep copy of everything a client may see. Mutating a
// snapshot never touches live state.
type Snapshot struct {
	Tick        uint64               `json:"tick"`
	Timestamp   int64                `json:"timestamp"`
	TickRate    int                  `json:"tickRate"`
	Players     map[string]Player    `json:"players"`
	Walls       map[string]WallState `json:"walls"`
	Projectiles []Projectile         `json:"projectiles"`
	Lights      []Vector2            `json:"lights,omitempty"`
}
