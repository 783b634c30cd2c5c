package net

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/net/proto"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/observability"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/server"
)

func testArena() game.Layout {
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

func newTestManager(t *testing.T, maxPlayers int) *server.Manager {
	t.Helper()

	worldCfg := game.DefaultConfig()
	worldCfg.HeartbeatTimeout = 0
	if maxPlayers > 0 {
		worldCfg.MaxPlayers = maxPlayers
	}

	manager := server.NewManager(server.ManagerConfig{
		World:  worldCfg,
		Layout: testArena(),
	}, server.Deps{})
	t.Cleanup(func() { manager.Shutdown("test-cleanup") })
	return manager
}

func postJoin(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/join", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func decodeJoin(t *testing.T, resp *httptest.ResponseRecorder) proto.JoinResponse {
	t.Helper()

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d: %s", resp.Code, resp.Body.String())
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var join proto.JoinResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &join); err != nil {
		t.Fatalf("failed to decode join payload: %v", err)
	}
	return join
}

func TestHTTPJoinMintsPlayerAndRoom(t *testing.T) {
	manager := newTestManager(t, 0)
	handler := NewHTTPHandler(manager, HTTPHandlerConfig{})

	join := decodeJoin(t, postJoin(t, handler, `{"name":"Ana"}`))

	if join.Type != proto.TypeJoined {
		t.Fatalf("expected joined payload, got %q", join.Type)
	}
	if join.ID == "" {
		t.Fatalf("expected a minted player id")
	}
	if len(join.Room) != 6 {
		t.Fatalf("expected a generated 6-char room code, got %q", join.Room)
	}
	if join.Team != game.TeamRed && join.Team != game.TeamBlue {
		t.Fatalf("expected a team assignment, got %q", join.Team)
	}
	player, ok := join.State.Players[join.ID]
	if !ok {
		t.Fatalf("expected joining player in snapshot, got %v", join.State.Players)
	}
	if player.Name != "Ana" {
		t.Fatalf("expected player name Ana, got %q", player.Name)
	}
	if len(join.State.Walls) != 1 {
		t.Fatalf("expected arena walls in snapshot, got %d", len(join.State.Walls))
	}
}

func TestHTTPJoinSharesNamedRoom(t *testing.T) {
	manager := newTestManager(t, 0)
	handler := NewHTTPHandler(manager, HTTPHandlerConfig{})

	first := decodeJoin(t, postJoin(t, handler, `{"room":"squad1"}`))
	second := decodeJoin(t, postJoin(t, handler, `{"room":"SQUAD1"}`))

	if first.Room != "SQUAD1" || second.Room != "SQUAD1" {
		t.Fatalf("expected both joins in SQUAD1, got %q and %q", first.Room, second.Room)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct player ids")
	}
	if first.Team == second.Team {
		t.Fatalf("expected team balancing to split the pair, got %q twice", first.Team)
	}
	if _, ok := second.State.Players[first.ID]; !ok {
		t.Fatalf("expected the second snapshot to include the first player")
	}
	if manager.RoomCount() != 1 {
		t.Fatalf("expected one room, got %d", manager.RoomCount())
	}
}

func TestHTTPJoinRejectsBadRequests(t *testing.T) {
	manager := newTestManager(t, 0)
	handler := NewHTTPHandler(manager, HTTPHandlerConfig{})

	if resp := postJoin(t, handler, `{"room":"no!"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid room code, got %d", resp.Code)
	}
	if resp := postJoin(t, handler, `{`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/join", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /join, got %d", resp.Code)
	}
}

func TestHTTPJoinReportsFullRoom(t *testing.T) {
	manager := newTestManager(t, 1)
	handler := NewHTTPHandler(manager, HTTPHandlerConfig{})

	first := decodeJoin(t, postJoin(t, handler, `{"room":"tiny22"}`))
	if first.Room != "TINY22" {
		t.Fatalf("expected room TINY22, got %q", first.Room)
	}

	resp := postJoin(t, handler, `{"room":"tiny22"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a full room, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "room-full") {
		t.Fatalf("expected room-full reason, got %q", resp.Body.String())
	}
}

func TestHTTPHealth(t *testing.T) {
	manager := newTestManager(t, 0)
	handler := NewHTTPHandler(manager, HTTPHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if resp.Body.String() != "ok" {
		t.Fatalf("expected ok body, got %q", resp.Body.String())
	}
}

func TestHTTPDiagnostics(t *testing.T) {
	manager := newTestManager(t, 0)
	handler := NewHTTPHandler(manager, HTTPHandlerConfig{
		Telemetry: func() map[string]uint64 {
			return map[string]uint64{"broadcasts_total": 12}
		},
	})

	decodeJoin(t, postJoin(t, handler, `{"name":"Ana","room":"stats1"}`))

	req := httptest.NewRequest(http.MethodGet, "/diagnostics", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}

	var payload struct {
		Status     string                   `json:"status"`
		ServerTime int64                    `json:"serverTime"`
		Rooms      []server.RoomDiagnostics `json:"rooms"`
		Telemetry  map[string]uint64        `json:"telemetry"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}

	if payload.Status != "ok" || payload.ServerTime == 0 {
		t.Fatalf("expected ok status with a server time, got %+v", payload)
	}
	if len(payload.Rooms) != 1 {
		t.Fatalf("expected one room in diagnostics, got %d", len(payload.Rooms))
	}
	room := payload.Rooms[0]
	if room.ID != "STATS1" {
		t.Fatalf("expected room STATS1, got %q", room.ID)
	}
	if len(room.Members) != 1 {
		t.Fatalf("expected one member, got %d", len(room.Members))
	}
	if payload.Telemetry["broadcasts_total"] != 12 {
		t.Fatalf("expected telemetry passthrough, got %v", payload.Telemetry)
	}
}

func TestHTTPPprofToggle(t *testing.T) {
	manager := newTestManager(t, 0)

	enabled := NewHTTPHandler(manager, HTTPHandlerConfig{
		Observability: observability.Config{EnablePprofTrace: true},
	})
	rec := httptest.NewRecorder()
	enabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pprof index when tracing is enabled, got %d", rec.Code)
	}

	disabled := NewHTTPHandler(manager, HTTPHandlerConfig{})
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected pprof to stay off by default, got %d", rec.Code)
	}
}
