package server

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/sim"
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/telemetry"
)

// Room codes are generated from an alphabet without 0/O and 1/I so they
// survive being read aloud.
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
	maxRoomCodeLen   = 16
)

var (
	// ErrManagerClosed reports room operations after Shutdown.
	ErrManagerClosed = errors.New("manager closed")
	// ErrTooManyRooms reports that the room cap is reached.
	ErrTooManyRooms = errors.New("too many rooms")
	// ErrInvalidRoomCode reports a malformed client-supplied code.
	ErrInvalidRoomCode = errors.New("invalid room code")
)

// ManagerConfig is the template every room is stamped from.
type ManagerConfig struct {
	World       game.Config
	Loop        sim.Config
	Layout      game.Layout
	MaxRooms    int
	JoinTimeout time.Duration
}

func (c ManagerConfig) normalized() ManagerConfig {
	if c.MaxRooms <= 0 {
		c.MaxRooms = 64
	}
	return c
}

// Manager owns the room registry. Rooms are created on demand, removed when
// their last player leaves, and stopped together at shutdown.
type Manager struct {
	cfg  ManagerConfig
	deps Deps

	mu     sync.Mutex
	rooms  map[string]*Room
	rng    *rand.Rand
	closed bool
}

// NewManager builds an empty registry around the shared dependencies.
func NewManager(cfg ManagerConfig, deps Deps) *Manager {
	return &Manager{
		cfg:   cfg.normalized(),
		deps:  deps.normalized(),
		rooms: make(map[string]*Room),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NormalizeRoomCode uppercases and validates a client-supplied code. Empty
// is allowed and means "generate one for me".
func NormalizeRoomCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", nil
	}
	if len(code) > maxRoomCodeLen {
		return "", ErrInvalidRoomCode
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}

// GetOrCreate returns the room for the code, creating it when absent. An
// empty code mints a fresh room under a generated code.
func (m *Manager) GetOrCreate(code string) (*Room, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if code != "" {
		if room, ok := m.rooms[code]; ok {
			return room, nil
		}
	} else {
		code = m.newCodeLocked()
	}
	if len(m.rooms) >= m.cfg.MaxRooms {
		return nil, ErrTooManyRooms
	}

	room, err := NewRoom(RoomConfig{
		ID:          code,
		World:       m.cfg.World,
		Loop:        m.cfg.Loop,
		Layout:      m.cfg.Layout,
		JoinTimeout: m.cfg.JoinTimeout,
	}, m.deps)
	if err != nil {
		return nil, err
	}
	room.onEmpty = m.handleEmpty
	m.rooms[code] = room
	m.deps.Metrics.Store(telemetry.KeyRoomsOpen, uint64(len(m.rooms)))
	room.Start()
	return room, nil
}

// Get looks up an existing room without creating one.
func (m *Manager) Get(code string) (*Room, bool) {
	normalized, err := NormalizeRoomCode(code)
	if err != nil || normalized == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[normalized]
	return room, ok
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Shutdown stops every room and refuses further creation.
func (m *Manager) Shutdown(reason string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.rooms = make(map[string]*Room)
	m.deps.Metrics.Store(telemetry.KeyRoomsOpen, 0)
	m.mu.Unlock()

	for _, room := range rooms {
		room.Stop(reason)
	}
}

// RoomDiagnostics couples a room's published status with its roster.
type RoomDiagnostics struct {
	RoomStatus
	Members []MemberDiagnostics `json:"members"`
}

// Diagnostics collects every room's status for the diagnostics endpoint and
// refreshes the occupancy gauges on the way through.
func (m *Manager) Diagnostics() []RoomDiagnostics {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.Unlock()

	out := make([]RoomDiagnostics, 0, len(rooms))
	online := 0
	for _, room := range rooms {
		members := room.Diagnostics()
		online += len(members)
		out = append(out, RoomDiagnostics{
			RoomStatus: room.Status(),
			Members:    members,
		})
	}
	m.deps.Metrics.Store(telemetry.KeyPlayersOnline, uint64(online))
	return out
}

// handleEmpty runs when a room reports its last member gone. The recheck
// under the registry lock closes the race against a concurrent join: if a
// player slipped in, the room stays.
func (m *Manager) handleEmpty(r *Room) {
	m.mu.Lock()
	current, ok := m.rooms[r.ID()]
	if ok && current == r && r.MemberCount() > 0 {
		m.mu.Unlock()
		// A join won the race; rearm so the next empty fires again.
		r.resetEmptyNotice()
		return
	}
	if !ok || current != r {
		m.mu.Unlock()
		return
	}
	delete(m.rooms, r.ID())
	m.deps.Metrics.Store(telemetry.KeyRoomsOpen, uint64(len(m.rooms)))
	m.mu.Unlock()

	// Stop waits for the loop goroutine, and this callback can arrive on
	// that same goroutine. Never block it.
	go r.Stop("empty")
}

func (m *Manager) newCodeLocked() string {
	for {
		var b [roomCodeLength]byte
		for i := range b {
			b[i] = roomCodeAlphabet[m.rng.Intn(len(roomCodeAlphabet))]
		}
		code := string(b[:])
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}
