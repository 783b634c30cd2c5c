package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/proto"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/sim"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging"
	"github.com/BritishAmericqn/trespasser-backend-sub006/logging/lifecycle"
)

type fakeSub struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed []string
}

func (f *fakeSub) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSub) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, reason)
}

func (f *fakeSub) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSub) lastFrame(t *testing.T) []byte {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		t.Fatalf("expected at least one frame")
	}
	return f.frames[len(f.frames)-1]
}

func (f *fakeSub) closeReasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

type capturedEvents struct {
	mu     sync.Mutex
	events []logging.Event
}

func (c *capturedEvents) publisher() logging.Publisher {
	return logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	})
}

func (c *capturedEvents) byType(eventType logging.EventType) []logging.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []logging.Event
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func testLayout() game.Layout {
	return game.Layout{
		Walls: []game.WallSpec{
			{X: 200, Y: 100, Width: 50, Height: 10, Material: game.MaterialWood, SliceCount: 5},
		},
		Spawns: map[game.Team][]game.Vector2{
			game.TeamRed:  {{X: 60, Y: 135}},
			game.TeamBlue: {{X: 420, Y: 135}},
		},
	}
}

func testRoom(t *testing.T, worldCfg game.Config, loopCfg sim.Config, pub logging.Publisher) (*Room, *logging.Metrics) {
	t.Helper()
	metrics := &logging.Metrics{}
	room, err := NewRoom(RoomConfig{
		ID:     "TESTROOM",
		World:  worldCfg,
		Loop:   loopCfg,
		Layout: testLayout(),
	}, Deps{
		Metrics:   telemetry.WrapMetrics(metrics),
		Publisher: pub,
		Clock:     logging.ClockFunc(func() time.Time { return time.Unix(1000, 0) }),
	})
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	return room, metrics
}

// joinRoom drives a join to completion by advancing the loop manually.
func joinRoom(t *testing.T, room *Room, playerID, name string, now time.Time, dt float64) game.JoinResult {
	t.Helper()

	type outcome struct {
		result game.JoinResult
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		result, err := room.Join(playerID, name)
		ch <- outcome{result, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for room.loop.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("join command never staged")
		}
		time.Sleep(time.Millisecond)
	}
	room.loop.Advance(now, dt)

	select {
	case out := <-ch:
		if out.err != nil {
			t.Fatalf("join failed: %v", out.err)
		}
		return out.result
	case <-time.After(2 * time.Second):
		t.Fatalf("join reply never arrived")
		return game.JoinResult{}
	}
}

func TestRoomJoinAttachAndBroadcast(t *testing.T) {
	captured := &capturedEvents{}
	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 0
	room, metrics := testRoom(t, worldCfg, sim.Config{BroadcastEvery: 2}, captured.publisher())

	start := time.Unix(1000, 0)
	dt := 1.0 / 60.0

	result := joinRoom(t, room, "p1", "Ana", start.Add(time.Second/60), dt)
	if !result.OK {
		t.Fatalf("expected join to succeed, got %+v", result)
	}
	if result.Team != game.TeamRed {
		t.Fatalf("first player joins red, got %q", result.Team)
	}
	if result.Snapshot.Players["p1"].ID != "p1" {
		t.Fatalf("join snapshot missing player: %+v", result.Snapshot.Players)
	}
	if len(result.Snapshot.Walls) != 1 {
		t.Fatalf("join snapshot missing walls: %+v", result.Snapshot.Walls)
	}
	if !room.HasPlayer("p1") {
		t.Fatalf("member roster missing p1")
	}

	sub := &fakeSub{}
	if err := room.Attach("p1", sub); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// Tick 2 is a broadcast tick and carries the events since the join.
	room.loop.Advance(start.Add(2*time.Second/60), dt)
	if sub.frameCount() != 1 {
		t.Fatalf("expected one broadcast frame, got %d", sub.frameCount())
	}

	var state proto.StateMessage
	if err := json.Unmarshal(sub.lastFrame(t), &state); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if state.Type != proto.TypeState || state.Tick != 2 {
		t.Fatalf("unexpected state envelope: type=%q tick=%d", state.Type, state.Tick)
	}
	if _, ok := state.Players["p1"]; !ok {
		t.Fatalf("state missing player: %+v", state.Players)
	}
	joined := false
	for _, ev := range state.Events {
		if ev.Type == game.EventPlayerJoined {
			joined = true
		}
	}
	if !joined {
		t.Fatalf("expected player-joined event in first broadcast, got %+v", state.Events)
	}

	snapshot := metrics.Snapshot()
	if snapshot[telemetry.KeyBroadcastsTotal] != 1 {
		t.Fatalf("expected one broadcast counted, got %d", snapshot[telemetry.KeyBroadcastsTotal])
	}
	if snapshot[telemetry.KeyBroadcastBytesTotal] == 0 {
		t.Fatalf("expected broadcast bytes counted")
	}

	if events := captured.byType(lifecycle.EventPlayerJoined); len(events) != 1 {
		t.Fatalf("expected one join log event, got %d", len(events))
	} else if events[0].RoomID != "TESTROOM" {
		t.Fatalf("expected room stamp, got %q", events[0].RoomID)
	}
}

func TestRoomDropsSubscriberOnWriteFailure(t *testing.T) {
	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 0
	room, _ := testRoom(t, worldCfg, sim.Config{BroadcastEvery: 1}, nil)

	start := time.Unix(1000, 0)
	dt := 1.0 / 60.0
	joinRoom(t, room, "p1", "", start.Add(time.Second/60), dt)

	sub := &fakeSub{fail: true}
	if err := room.Attach("p1", sub); err != nil {
		t.Fatalf("attach: %v", err)
	}

	room.loop.Advance(start.Add(2*time.Second/60), dt)

	reasons := sub.closeReasons()
	if len(reasons) != 1 || reasons[0] != "write-failed" {
		t.Fatalf("expected write-failed close, got %v", reasons)
	}
	// The socket is gone but the player survives until heartbeats lapse.
	if !room.HasPlayer("p1") {
		t.Fatalf("broken socket must not evict the player")
	}

	// A reconnect may attach a fresh subscriber.
	if err := room.Attach("p1", &fakeSub{}); err != nil {
		t.Fatalf("reattach after drop: %v", err)
	}
}

func TestRoomHeartbeatTimeoutEvictsMember(t *testing.T) {
	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 50 * time.Millisecond
	room, _ := testRoom(t, worldCfg, sim.Config{BroadcastEvery: 1000}, nil)

	var emptied []string
	room.onEmpty = func(r *Room) { emptied = append(emptied, r.ID()) }

	start := time.Unix(1000, 0)
	dt := 1.0 / 60.0
	joinRoom(t, room, "p1", "", start.Add(time.Second/60), dt)

	sub := &fakeSub{}
	if err := room.Attach("p1", sub); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// Advance well past the heartbeat window in one clamped tick.
	room.loop.Advance(start.Add(time.Second), dt)

	if room.HasPlayer("p1") {
		t.Fatalf("expected stale player to be evicted")
	}
	reasons := sub.closeReasons()
	if len(reasons) != 1 || reasons[0] != "heartbeat-timeout" {
		t.Fatalf("expected heartbeat-timeout close, got %v", reasons)
	}
	if len(emptied) != 1 || emptied[0] != "TESTROOM" {
		t.Fatalf("expected one empty notification, got %v", emptied)
	}
}

func TestRoomJoinRejectsWhenFull(t *testing.T) {
	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 0
	worldCfg.MaxPlayers = 1
	room, _ := testRoom(t, worldCfg, sim.Config{}, nil)

	start := time.Unix(1000, 0)
	dt := 1.0 / 60.0
	if result := joinRoom(t, room, "p1", "", start.Add(time.Second/60), dt); !result.OK {
		t.Fatalf("first join should succeed: %+v", result)
	}
	second := joinRoom(t, room, "p2", "", start.Add(2*time.Second/60), dt)
	if second.OK || second.Reason != "room-full" {
		t.Fatalf("expected room-full rejection, got %+v", second)
	}
	if room.HasPlayer("p2") {
		t.Fatalf("rejected join must not register a member")
	}
}

func TestRoomAttachRequiresJoin(t *testing.T) {
	worldCfg := game.DefaultConfig()
	room, _ := testRoom(t, worldCfg, sim.Config{}, nil)

	if err := room.Attach("ghost", &fakeSub{}); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestRoomAttachReplacesPreviousSubscriber(t *testing.T) {
	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 0
	room, _ := testRoom(t, worldCfg, sim.Config{}, nil)

	start := time.Unix(1000, 0)
	joinRoom(t, room, "p1", "", start.Add(time.Second/60), 1.0/60.0)

	first := &fakeSub{}
	second := &fakeSub{}
	if err := room.Attach("p1", first); err != nil {
		t.Fatalf("attach first: %v", err)
	}
	if err := room.Attach("p1", second); err != nil {
		t.Fatalf("attach second: %v", err)
	}
	if reasons := first.closeReasons(); len(reasons) != 1 || reasons[0] != "replaced" {
		t.Fatalf("expected first subscriber replaced, got %v", reasons)
	}

	// A stale detach from the first session must not unbind the second.
	room.Detach("p1", first)
	room.subMu.Lock()
	current := room.subs["p1"]
	room.subMu.Unlock()
	if current != second {
		t.Fatalf("stale detach removed the active subscriber")
	}
}

func TestRoomLeaveRemovesPlayerAndNotifiesEmpty(t *testing.T) {
	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 0
	room, _ := testRoom(t, worldCfg, sim.Config{}, nil)

	var emptied int
	room.onEmpty = func(*Room) { emptied++ }

	start := time.Unix(1000, 0)
	dt := 1.0 / 60.0
	joinRoom(t, room, "p1", "", start.Add(time.Second/60), dt)

	sub := &fakeSub{}
	if err := room.Attach("p1", sub); err != nil {
		t.Fatalf("attach: %v", err)
	}

	room.Leave("p1", "quit")
	if room.HasPlayer("p1") {
		t.Fatalf("leave must clear the roster immediately")
	}
	if reasons := sub.closeReasons(); len(reasons) != 1 || reasons[0] != "quit" {
		t.Fatalf("expected quit close, got %v", reasons)
	}
	if emptied != 1 {
		t.Fatalf("expected one empty notification, got %d", emptied)
	}

	// The staged leave command removes the player from the world.
	room.loop.Advance(start.Add(2*time.Second/60), dt)
	if got := room.Status().Players; got != 0 {
		t.Fatalf("expected world roster empty, got %d", got)
	}
}

func TestRoomStopClosesSubscribers(t *testing.T) {
	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 0
	room, _ := testRoom(t, worldCfg, sim.Config{}, nil)

	start := time.Unix(1000, 0)
	joinRoom(t, room, "p1", "", start.Add(time.Second/60), 1.0/60.0)
	sub := &fakeSub{}
	if err := room.Attach("p1", sub); err != nil {
		t.Fatalf("attach: %v", err)
	}

	room.Stop("shutdown")
	if reasons := sub.closeReasons(); len(reasons) != 1 || reasons[0] != "shutdown" {
		t.Fatalf("expected shutdown close, got %v", reasons)
	}
	if _, err := room.Join("p2", ""); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("expected ErrRoomClosed after stop, got %v", err)
	}
	if err := room.Attach("p1", &fakeSub{}); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("expected attach to fail after stop, got %v", err)
	}
}
