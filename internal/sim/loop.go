package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

const (
	// DefaultBroadcastEvery publishes state every third simulation tick,
	// turning the 60 Hz step into a 20 Hz network cadence.
	DefaultBroadcastEvery = 3

	defaultTickRate        = 60
	defaultCatchupMaxTicks = 4
	defaultCommandCapacity = 1024
	defaultPerActorLimit   = 32
	defaultWarningStep     = 256
)

// Config tunes the command buffer and tick loop orchestration.
type Config struct {
	TickRate        int
	BroadcastEvery  int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

func (c Config) normalized() Config {
	if c.TickRate <= 0 {
		c.TickRate = defaultTickRate
	}
	if c.BroadcastEvery <= 0 {
		c.BroadcastEvery = DefaultBroadcastEvery
	}
	if c.CatchupMaxTicks <= 0 {
		c.CatchupMaxTicks = defaultCatchupMaxTicks
	}
	if c.CommandCapacity <= 0 {
		c.CommandCapacity = defaultCommandCapacity
	}
	// PerActorLimit and WarningStep stay as given: zero disables them.
	return c
}

// DefaultConfig returns the loop tuning used when a room does not override it.
func DefaultConfig() Config {
	return Config{
		TickRate:        defaultTickRate,
		BroadcastEvery:  DefaultBroadcastEvery,
		CatchupMaxTicks: defaultCatchupMaxTicks,
		CommandCapacity: defaultCommandCapacity,
		PerActorLimit:   defaultPerActorLimit,
		WarningStep:     defaultWarningStep,
	}
}

// TickContext describes one scheduled simulation step.
type TickContext struct {
	Tick    uint64
	Now     time.Time
	Delta   float64
	Clamped bool
}

// TickResult reports what one step cost.
type TickResult struct {
	TickContext
	Commands  int
	Broadcast bool
	Duration  time.Duration
	Budget    time.Duration
}

// Hooks connect the loop to the state owner. Step receives the drained
// commands once per tick; Broadcast fires on the configured cadence after
// the step. Both run on the loop goroutine.
type Hooks struct {
	Step           func(TickContext, []game.Command)
	Broadcast      func(TickContext)
	OnCommandDrop  func(reason string, cmd game.Command)
	OnQueueWarning func(length int)
}

// Deps carries shared infrastructure dependencies required by the loop.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}

// Loop owns the fixed-timestep scheduler: a single goroutine drains the
// command buffer, steps the simulation, and broadcasts every Nth tick. It
// replaces a pair of free-running timers with one clock so the step and the
// broadcast can never interleave.
type Loop struct {
	config Config
	deps   Deps
	buffer *CommandBuffer
	hooks  Hooks

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64

	tick atomic.Uint64
}

// NewLoop wires a command buffer and scheduler around the provided hooks.
func NewLoop(cfg Config, deps Deps, hooks Hooks) *Loop {
	cfg = cfg.normalized()
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	return &Loop{
		config:        cfg,
		deps:          deps,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Config returns the normalized tuning the loop runs with.
func (l *Loop) Config() Config {
	if l == nil {
		return Config{}
	}
	return l.config
}

// Tick reports the last executed tick number.
func (l *Loop) Tick() uint64 {
	if l == nil {
		return 0
	}
	return l.tick.Load()
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command for the next tick, enforcing per-actor throttling
// and global capacity. It is the only cross-goroutine entry point.
func (l *Loop) Enqueue(cmd game.Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands. Tests
// and the shutdown path call it directly; Run calls it on the ticker.
func (l *Loop) Advance(now time.Time, dt float64) TickResult {
	if l == nil {
		return TickResult{}
	}
	if dt <= 0 {
		dt = 1.0 / float64(l.config.TickRate)
	}
	tick := l.tick.Add(1)
	return l.advance(TickContext{Tick: tick, Now: now, Delta: dt})
}

// Run drives the fixed-timestep loop until the stop channel closes, then
// performs one final step so commands staged during shutdown still apply.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	interval := time.Second / time.Duration(l.config.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	clock := l.deps.Clock
	last := clock.Now()
	budgetSeconds := 1.0 / float64(l.config.TickRate)
	maxDt := budgetSeconds * float64(l.config.CatchupMaxTicks)

	for {
		select {
		case <-stop:
			if l.Pending() > 0 {
				l.Advance(clock.Now(), budgetSeconds)
			}
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			tick := l.tick.Add(1)
			l.advance(TickContext{Tick: tick, Now: now, Delta: dt, Clamped: clamped})
		}
	}
}

func (l *Loop) advance(ctx TickContext) TickResult {
	commands := l.drainCommands()
	clock := l.deps.Clock
	start := clock.Now()
	if l.hooks.Step != nil {
		l.hooks.Step(ctx, commands)
	}
	duration := clock.Now().Sub(start)
	budget := time.Second / time.Duration(l.config.TickRate)
	if l.deps.Metrics != nil {
		l.deps.Metrics.Store(telemetry.KeyTickDurationMicros, uint64(duration.Microseconds()))
		if duration > budget {
			l.deps.Metrics.Add(telemetry.KeyTickOverBudgetTotal, 1)
		}
	}

	broadcast := false
	if l.hooks.Broadcast != nil && ctx.Tick%uint64(l.config.BroadcastEvery) == 0 {
		l.hooks.Broadcast(ctx)
		broadcast = true
	}

	return TickResult{
		TickContext: ctx,
		Commands:    len(commands),
		Broadcast:   broadcast,
		Duration:    duration,
		Budget:      budget,
	}
}

func (l *Loop) drainCommands() []game.Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd game.Command, count uint64) {
	if l.deps.Metrics != nil {
		l.deps.Metrics.Add(telemetry.KeyCommandDropsTotal, 1)
	}
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	// Log on powers of two so a spamming client cannot flood the log.
	if reason == CommandRejectQueueLimit && count > 0 && count&(count-1) == 0 {
		if l.deps.Logger != nil {
			l.deps.Logger.Printf(
				"[backpressure] dropping command actor=%s type=%s count=%d limit=%d",
				cmd.ActorID,
				cmd.Type,
				count,
				l.config.PerActorLimit,
			)
		}
	}
}
