package proto

import (
	"encoding/json"
	"testing"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
)

func TestStateFromSnapshot(t *testing.T) {
	snap := game.Snapshot{
		Tick:     42,
		TickRate: 60,
		Players: map[string]game.Player{
			"p1": {ID: "p1", Team: game.TeamRed},
		},
		Walls: map[string]game.WallState{
			"wall-1": {ID: "wall-1", Material: game.MaterialConcrete},
		},
		Projectiles: []game.Projectile{{ID: "proj-1"}},
	}
	events := []game.Event{{Type: game.EventWeaponFired, Tick: 41}}

	msg := StateFromSnapshot(snap, events, 1234)
	if msg.Ver != Version || msg.Type != TypeState {
		t.Fatalf("unexpected envelope: ver=%d type=%q", msg.Ver, msg.Type)
	}
	if msg.Tick != 42 || msg.ServerTime != 1234 {
		t.Fatalf("unexpected tick/serverTime: %d/%d", msg.Tick, msg.ServerTime)
	}
	if len(msg.Players) != 1 || len(msg.Walls) != 1 || len(msg.Projectiles) != 1 {
		t.Fatalf("snapshot contents dropped: %+v", msg)
	}
	if len(msg.Events) != 1 || msg.Events[0].Type != game.EventWeaponFired {
		t.Fatalf("events dropped: %+v", msg.Events)
	}
}

func TestClientMessageRoundTrip(t *testing.T) {
	raw := []byte(`{"type":"input","seq":7,"dx":1,"dy":-0.5,"aimX":0.2,"aimY":0.8,"movement":"running","ads":true}`)

	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal client message: %v", err)
	}
	if msg.Type != TypeInput || msg.Seq != 7 {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	if msg.DX != 1 || msg.DY != -0.5 || msg.AimX != 0.2 || msg.AimY != 0.8 {
		t.Fatalf("unexpected vectors: %+v", msg)
	}
	if msg.Movement != "running" || !msg.ADS {
		t.Fatalf("unexpected modifiers: %+v", msg)
	}

	// Unknown fields must not break decoding.
	raw = []byte(`{"type":"heartbeat","sentAt":99,"extra":"ignored"}`)
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal with unknown field: %v", err)
	}
	if msg.Type != TypeHeartbeat || msg.SentAt != 99 {
		t.Fatalf("unexpected heartbeat: %+v", msg)
	}
}
