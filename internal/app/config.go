package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
)

// Config is the process configuration, read from the environment. Zero
// values for the simulation knobs defer to the world defaults; a negative
// heartbeat timeout disables the stale-player prune entirely.
type Config struct {
	Addr             string        `env:"TRESPASSER_ADDR" envDefault:":8080"`
	TickRate         int           `env:"TRESPASSER_TICK_RATE" envDefault:"60"`
	BroadcastEvery   int           `env:"TRESPASSER_BROADCAST_EVERY" envDefault:"3"`
	MaxPlayers       int           `env:"TRESPASSER_MAX_PLAYERS" envDefault:"16"`
	MaxRooms         int           `env:"TRESPASSER_MAX_ROOMS" envDefault:"64"`
	Seed             string        `env:"TRESPASSER_SEED"`
	FriendlyFire     bool          `env:"TRESPASSER_FRIENDLY_FIRE" envDefault:"true"`
	RespawnDelay     time.Duration `env:"TRESPASSER_RESPAWN_DELAY"`
	HeartbeatTimeout time.Duration `env:"TRESPASSER_HEARTBEAT_TIMEOUT"`
	MapPath          string        `env:"TRESPASSER_MAP"`
	WeaponsPath      string        `env:"TRESPASSER_WEAPONS"`
	ClientDir        string        `env:"TRESPASSER_CLIENT_DIR"`
	LogSeverity      string        `env:"TRESPASSER_LOG_SEVERITY"`
	LogJSONPath      string        `env:"TRESPASSER_LOG_JSON"`
	EnablePprofTrace bool          `env:"TRESPASSER_PPROF" envDefault:"false"`

	Logger telemetry.Logger `env:"-"`
}

// LoadConfig populates a Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
