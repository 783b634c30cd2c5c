package game

import "time"

const (
	// worldWidth and worldHeight match the authored map resolution. The
	// collision grid is the same space divided into 10-unit cells.
	worldWidth  = 480.0
	worldHeight = 270.0
	cellSize    = 10.0

	playerHalf      = 4.0 // collision radius in world units
	headshotRadius  = 1.4 // ray offset from center that still counts as a head hit
	playerMaxHealth = 100.0

	sneakSpeed   = 55.0  // units per second
	walkSpeed    = 110.0 // units per second
	runSpeed     = 160.0 // units per second
	adsMoveScale = 0.6   // movement penalty while aiming down sights

	headshotMultiplier = 2.0
	damageFalloffStart = 0.5 // fraction of range with full damage
	minDamageFraction  = 0.3 // damage fraction at exactly max range

	baseSpreadRadians = 0.35 // cone at accuracy 0, before ADS scaling
	adsSpreadScale    = 0.5

	// MaxWallSlices caps how many destructible segments a wall is divided
	// into. Shorter walls get one slice per grid cell.
	MaxWallSlices  = 5
	sliceMaxHealth = 100.0

	explosionFalloffPower = 2.0
	grenadeGravity        = 60.0        // arc acceleration for thrown munitions
	projectileMaxStep     = cellSize / 2 // sub-step ceiling so nothing tunnels a wall
	penetrationCost       = 25.0         // damage a bullet spends punching through soft walls
	penetrationRetain     = 0.6          // damage kept per target pierced by heavy rifles
	muzzleOffset          = playerHalf + 1.0

	maxChargeLevel = 5

	defaultTickRate    = 60
	heartbeatInterval  = 2 * time.Second
	disconnectAfter    = 3 * heartbeatInterval
	defaultRespawnWait = 5 * time.Second

	// DefaultSeed feeds the deterministic RNG tree when no seed is configured.
	DefaultSeed = "trespasser-dev"
)
