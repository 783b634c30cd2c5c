package game

import "time"

// Config tunes a single world instance. Every room owns its own value; there
// is no shared global configuration.
type Config struct {
	Seed             string
	TickRate         int
	MaxPlayers       int
	RespawnDelay     time.Duration
	HeartbeatTimeout time.Duration
	FriendlyFire     bool

	// WeaponTuning replaces catalog entries for the listed weapon types.
	// Entries for types the catalog does not know are ignored. Nil keeps
	// the built-in numbers.
	WeaponTuning []WeaponSpec
}

// DefaultConfig returns the tuning used when a room does not override it.
func DefaultConfig() Config {
	return Config{
		Seed:             DefaultSeed,
		TickRate:         defaultTickRate,
		MaxPlayers:       16,
		RespawnDelay:     defaultRespawnWait,
		HeartbeatTimeout: disconnectAfter,
		FriendlyFire:     true,
	}
}

// normalized fills zero values with defaults so the simulation never divides
// by a zero tick rate or spawns an unseeded RNG.
func (c Config) normalized() Config {
	if c.Seed == "" {
		c.Seed = DefaultSeed
	}
	if c.TickRate <= 0 {
		c.TickRate = defaultTickRate
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 16
	}
	if c.RespawnDelay <= 0 {
		c.RespawnDelay = defaultRespawnWait
	}
	if c.HeartbeatTimeout < 0 {
		c.HeartbeatTimeout = 0
	}
	return c
}
