package game

import "math"

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vector2 {
	return Vector2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// ClosestPoint returns the point inside the rectangle nearest to p.
func (r Rect) ClosestPoint(p Vector2) Vector2 {
	return Vector2{
		X: clamp(p.X, r.X, r.X+r.Width),
		Y: clamp(p.Y, r.Y, r.Y+r.Height),
	}
}

// Contains reports whether p lies inside the rectangle (inclusive edges).
func (r Rect) Contains(p Vector2) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// clamp limits value to the range [min, max].
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// circleRectOverlap reports whether a circle intersects a rectangle.
func circleRectOverlap(cx, cy, radius float64, r Rect) bool {
	closestX := clamp(cx, r.X, r.X+r.Width)
	closestY := clamp(cy, r.Y, r.Y+r.Height)
	dx := cx - closestX
	dy := cy - closestY
	return dx*dx+dy*dy < radius*radius
}

// rayRectSpan finds the entry and exit distances of a ray through a
// rectangle using the slab method. dir must be unit length. Entry is clamped
// to zero when the origin starts inside.
func rayRectSpan(origin, dir Vector2, r Rect, maxDist float64) (float64, float64, bool) {
	tMin := 0.0
	tMax := maxDist

	if dir.X == 0 {
		if origin.X < r.X || origin.X > r.X+r.Width {
			return 0, 0, false
		}
	} else {
		t1 := (r.X - origin.X) / dir.X
		t2 := (r.X + r.Width - origin.X) / dir.X
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
	}

	if dir.Y == 0 {
		if origin.Y < r.Y || origin.Y > r.Y+r.Height {
			return 0, 0, false
		}
	} else {
		t1 := (r.Y - origin.Y) / dir.Y
		t2 := (r.Y + r.Height - origin.Y) / dir.Y
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
	}

	if tMax < tMin {
		return 0, 0, false
	}
	return tMin, tMax, true
}

// rayRectIntersect finds the entry distance of a ray into a rectangle.
// Returns false when the ray misses or the entry lies beyond maxDist.
func rayRectIntersect(origin, dir Vector2, r Rect, maxDist float64) (float64, bool) {
	enter, _, ok := rayRectSpan(origin, dir, r, maxDist)
	return enter, ok
}

// rayCircleIntersect finds the entry distance of a ray into a circle. dir
// must be unit length. The second return value is the perpendicular distance
// from the circle center to the ray, used for headshot banding.
func rayCircleIntersect(origin, dir Vector2, center Vector2, radius, maxDist float64) (float64, float64, bool) {
	oc := center.Sub(origin)
	tca := oc.Dot(dir)
	d2 := oc.Dot(oc) - tca*tca
	r2 := radius * radius
	if d2 > r2 {
		return 0, 0, false
	}
	thc := math.Sqrt(r2 - d2)
	t := tca - thc
	if t < 0 {
		// Origin inside the circle counts as an immediate hit.
		if tca+thc < 0 {
			return 0, 0, false
		}
		t = 0
	}
	if t > maxDist {
		return 0, 0, false
	}
	return t, math.Sqrt(d2), true
}

// segmentCircleHit reports whether the segment from origin along dir for
// length hits the circle, returning the distance along the segment.
func segmentCircleHit(origin, dir Vector2, length float64, center Vector2, radius float64) (float64, bool) {
	t, _, ok := rayCircleIntersect(origin, dir, center, radius, length)
	return t, ok
}
