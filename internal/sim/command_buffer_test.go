package sim

import (
	"testing"

	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
)

type recordingMetrics struct {
	added  map[string]uint64
	stored map[string]uint64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{added: make(map[string]uint64), stored: make(map[string]uint64)}
}

func (m *recordingMetrics) Add(key string, delta uint64)   { m.added[key] += delta }
func (m *recordingMetrics) Store(key string, value uint64) { m.stored[key] = value }

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []game.Command{
		{ActorID: "a"},
		{ActorID: "b"},
		{ActorID: "c"},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(game.Command{ActorID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.ActorID != cmds[i].ActorID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].ActorID, cmd.ActorID)
		}
	}
	// Push again to ensure the indices wrap correctly.
	for _, cmd := range []game.Command{{ActorID: "d"}, {ActorID: "e"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 commands after wraparound, got %d", len(wrapped))
	}
	if wrapped[0].ActorID != "d" || wrapped[1].ActorID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferOverflowCountsDrops(t *testing.T) {
	metrics := newRecordingMetrics()
	buffer := NewCommandBuffer(1, metrics)
	if !buffer.Push(game.Command{ActorID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(game.Command{ActorID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	if metrics.added[commandBufferOverflowMetricKey] != 1 {
		t.Fatalf("expected one overflow recorded, got %d", metrics.added[commandBufferOverflowMetricKey])
	}
	if metrics.stored[commandBufferOccupancyMetricKey] != 1 {
		t.Fatalf("expected occupancy gauge 1, got %d", metrics.stored[commandBufferOccupancyMetricKey])
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].ActorID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
	if metrics.stored[commandBufferOccupancyMetricKey] != 0 {
		t.Fatalf("expected occupancy gauge reset, got %d", metrics.stored[commandBufferOccupancyMetricKey])
	}
}

func TestCommandBufferMinimumCapacity(t *testing.T) {
	buffer := NewCommandBuffer(0, nil)
	if got := buffer.Capacity(); got != 1 {
		t.Fatalf("expected capacity clamp to 1, got %d", got)
	}
}
