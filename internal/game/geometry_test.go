package game

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestRayRectSpanEntryAndExit(t *testing.T) {
	r := Rect{X: 10, Y: -5, Width: 4, Height: 10}
	enter, exit, ok := rayRectSpan(Vector2{}, Vector2{X: 1}, r, 100)
	if !ok {
		t.Fatalf("expected ray to cross the rect")
	}
	if !almostEqual(enter, 10) || !almostEqual(exit, 14) {
		t.Fatalf("expected span [10,14], got [%v,%v]", enter, exit)
	}
}

func TestRayRectSpanOriginInside(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	enter, exit, ok := rayRectSpan(Vector2{X: 5, Y: 5}, Vector2{X: 1}, r, 100)
	if !ok {
		t.Fatalf("expected hit from inside the rect")
	}
	if enter != 0 {
		t.Fatalf("expected zero entry from inside, got %v", enter)
	}
	if !almostEqual(exit, 5) {
		t.Fatalf("expected exit at 5, got %v", exit)
	}
}

func TestRayRectSpanMisses(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 4, Height: 4}
	if _, _, ok := rayRectSpan(Vector2{}, Vector2{X: 1}, r, 100); ok {
		t.Fatalf("expected horizontal ray at y=0 to miss rect at y=10")
	}
	// Rect entirely behind the ray.
	if _, _, ok := rayRectSpan(Vector2{X: 20, Y: 12}, Vector2{X: 1}, r, 100); ok {
		t.Fatalf("expected rect behind the origin to miss")
	}
	// Rect beyond maxDist.
	if _, _, ok := rayRectSpan(Vector2{Y: 12}, Vector2{X: 1}, r, 5); ok {
		t.Fatalf("expected rect beyond maxDist to miss")
	}
}

func TestRayCircleIntersectPerpendicularDistance(t *testing.T) {
	t.Run("dead center", func(t *testing.T) {
		hit, perp, ok := rayCircleIntersect(Vector2{}, Vector2{X: 1}, Vector2{X: 50}, 4, 100)
		if !ok {
			t.Fatalf("expected hit through circle center")
		}
		if !almostEqual(hit, 46) {
			t.Fatalf("expected entry at 46, got %v", hit)
		}
		if !almostEqual(perp, 0) {
			t.Fatalf("expected zero perpendicular distance, got %v", perp)
		}
	})

	t.Run("grazing", func(t *testing.T) {
		_, perp, ok := rayCircleIntersect(Vector2{}, Vector2{X: 1}, Vector2{X: 50, Y: 3}, 4, 100)
		if !ok {
			t.Fatalf("expected offset ray to still hit radius-4 circle")
		}
		if !almostEqual(perp, 3) {
			t.Fatalf("expected perpendicular distance 3, got %v", perp)
		}
	})

	t.Run("miss", func(t *testing.T) {
		if _, _, ok := rayCircleIntersect(Vector2{}, Vector2{X: 1}, Vector2{X: 50, Y: 5}, 4, 100); ok {
			t.Fatalf("expected ray 5 units off a radius-4 circle to miss")
		}
	})

	t.Run("origin inside", func(t *testing.T) {
		hit, _, ok := rayCircleIntersect(Vector2{X: 50}, Vector2{X: 1}, Vector2{X: 51}, 4, 100)
		if !ok || hit != 0 {
			t.Fatalf("expected immediate hit from inside, got t=%v ok=%v", hit, ok)
		}
	})
}

func TestCircleRectOverlap(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 10, Height: 10}
	if !circleRectOverlap(8, 15, 4, r) {
		t.Fatalf("expected circle overlapping left edge")
	}
	if circleRectOverlap(5, 15, 4, r) {
		t.Fatalf("expected circle 5 units from edge with radius 4 to be clear")
	}
	// Exact touch does not count as overlap.
	if circleRectOverlap(6, 15, 4, r) {
		t.Fatalf("expected tangent circle to be clear")
	}
}

func TestRectClosestPoint(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	got := r.ClosestPoint(Vector2{X: 15, Y: -3})
	if got.X != 10 || got.Y != 0 {
		t.Fatalf("expected corner (10,0), got %+v", got)
	}
	inside := Vector2{X: 4, Y: 6}
	if r.ClosestPoint(inside) != inside {
		t.Fatalf("expected interior point to map to itself")
	}
}

func TestAngleVector(t *testing.T) {
	right := angleVector(0)
	if !almostEqual(right.X, 1) || !almostEqual(right.Y, 0) {
		t.Fatalf("expected rotation 0 to face +X, got %+v", right)
	}
	down := angleVector(math.Pi / 2)
	if !almostEqual(down.X, 0) || !almostEqual(down.Y, 1) {
		t.Fatalf("expected rotation pi/2 to face +Y, got %+v", down)
	}
}
