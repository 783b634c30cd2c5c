package proto

import (
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeInput     = "input"
	TypeFire      = "fire"
	TypeReload    = "reload"
	TypeSwitch    = "switch"
	TypeThrow     = "throw"
	TypeHeartbeat = "heartbeat"
)

// Server message type identifiers.
const (
	TypeState         = "state"
	TypeJoined        = "joined"
	TypeCommandAck    = "commandAck"
	TypeCommandReject = "commandReject"
)

// ClientMessage is the one inbound frame shape. Type selects which fields
// matter; extra fields are ignored so clients can evolve independently.
type ClientMessage struct {
	Ver      int     `json:"ver,omitempty"`
	Type     string  `json:"type"`
	Seq      uint64  `json:"seq,omitempty"`
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	AimX     float64 `json:"aimX"`
	AimY     float64 `json:"aimY"`
	Movement string  `json:"movement,omitempty"`
	ADS      bool    `json:"ads,omitempty"`
	Weapon   string  `json:"weapon,omitempty"`
	Charge   int     `json:"charge,omitempty"`
	SentAt   int64   `json:"sentAt,omitempty"`
}

// StateMessage is the periodic broadcast: the full authoritative snapshot
// plus every event recorded since the previous broadcast.
type StateMessage struct {
	Ver         int                       `json:"ver"`
	Type        string                    `json:"type"`
	Tick        uint64                    `json:"tick"`
	ServerTime  int64                     `json:"serverTime"`
	Players     map[string]game.Player    `json:"players"`
	Walls       map[string]game.WallState `json:"walls"`
	Projectiles []game.Projectile         `json:"projectiles"`
	Events      []game.Event              `json:"events,omitempty"`
}

// StateFromSnapshot shapes a snapshot and drained events into the broadcast
// frame. The snapshot is already a deep copy; no aliasing with live state.
func StateFromSnapshot(snap game.Snapshot, events []game.Event, serverTime int64) StateMessage {
	return StateMessage{
		Ver:         Version,
		Type:        TypeState,
		Tick:        snap.Tick,
		ServerTime:  serverTime,
		Players:     snap.Players,
		Walls:       snap.Walls,
		Projectiles: snap.Projectiles,
		Events:      events,
	}
}

// JoinResponse answers POST /join with everything a client needs before it
// opens the websocket: identity, team, room code, and the first snapshot
// (which carries the wall layout and light placeholders).
type JoinResponse struct {
	Ver   int           `json:"ver"`
	Type  string        `json:"type"`
	ID    string        `json:"id"`
	Name  string        `json:"name,omitempty"`
	Team  game.Team     `json:"team"`
	Room  string        `json:"room"`
	State game.Snapshot `json:"state"`
}

// CommandAck confirms a sequenced client command was staged.
type CommandAck struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick,omitempty"`
}

// CommandReject reports why a sequenced client command was not staged.
// Retry marks transient congestion; everything else is a client bug.
type CommandReject struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
}

// HeartbeatAck echoes a heartbeat with the measured round-trip time.
type HeartbeatAck struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}
