package game

import "time"

// CommandType discriminates the command union. The set is closed; Step
// switches over every member and drops anything else.
type CommandType string

const (
	CommandJoin      CommandType = "join"
	CommandLeave     CommandType = "leave"
	CommandInput     CommandType = "input"
	CommandFire      CommandType = "fire"
	CommandReload    CommandType = "reload"
	CommandSwitch    CommandType = "switch"
	CommandThrow     CommandType = "throw"
	CommandHeartbeat CommandType = "heartbeat"
)

// Command is the tagged union staged by the transport and applied at the
// start of a tick. Exactly the payload matching Type is non-nil.
type Command struct {
	Type       CommandType
	ActorID    string
	OriginTick uint64
	IssuedAt   time.Time

	Join      *JoinCommand
	Leave     *LeaveCommand
	Input     *InputCommand
	Fire      *FireCommand
	Reload    *ReloadCommand
	Switch    *SwitchCommand
	Throw     *ThrowCommand
	Heartbeat *HeartbeatCommand
}

// JoinCommand spawns a player. Reply, when set, receives the authoritative
// result once the join tick runs; the send never blocks the simulation.
type JoinCommand struct {
	Name  string
	Reply chan JoinResult
}

// JoinResult is what the transport hands back to a joining client.
type JoinResult struct {
	OK       bool
	Reason   string
	Player   Player
	Team     Team
	Snapshot Snapshot
}

// LeaveCommand removes a player from the world.
type LeaveCommand struct {
	Reason string
}

// InputCommand carries movement and aim intent. Axes are normalized server
// side; the aim vector sets rotation. Positions are never accepted from the
// client.
type InputCommand struct {
	DX       float64
	DY       float64
	Aim      Vector2
	Movement MovementState
	ADS      bool
	Sequence uint64
}

// FireCommand requests a trigger pull. ClientAim is the client's claimed aim
// point, kept for diagnostics only; resolution uses server-held rotation.
type FireCommand struct {
	Sequence  uint64
	ClientAim Vector2
}

// ReloadCommand requests a reload of the active weapon.
type ReloadCommand struct{}

// SwitchCommand changes the active weapon.
type SwitchCommand struct {
	Weapon WeaponType
}

// ThrowCommand lobs the active thrown weapon with the given charge level.
type ThrowCommand struct {
	Charge int
}

// HeartbeatCommand refreshes liveness bookkeeping for a player.
type HeartbeatCommand struct {
	ClientSent int64
	ReceivedAt time.Time
	RTT        time.Duration
}
