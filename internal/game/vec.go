package game

import "math"

// Vector2 is a 2D point or direction in world units.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the component-wise sum of two vectors.
func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns the component-wise difference of two vectors.
func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale multiplies both components by f.
func (v Vector2) Scale(f float64) Vector2 {
	return Vector2{X: v.X * f, Y: v.Y * f}
}

// Length reports the Euclidean magnitude.
func (v Vector2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dot returns the scalar product of two vectors.
func (v Vector2) Dot(o Vector2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Distance reports the Euclidean distance between two points.
func (v Vector2) Distance(o Vector2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// Normalized returns a unit-length copy, or the zero vector unchanged.
func (v Vector2) Normalized() Vector2 {
	length := v.Length()
	if length == 0 {
		return Vector2{}
	}
	return Vector2{X: v.X / length, Y: v.Y / length}
}

// IsZero reports whether both components are exactly zero.
func (v Vector2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// angleVector converts a rotation in radians into a unit direction.
func angleVector(rotation float64) Vector2 {
	return Vector2{X: math.Cos(rotation), Y: math.Sin(rotation)}
}

// Transform bundles the spatial state the server holds for an entity.
// Rotation is radians; clients submit aim intent but never write this directly.
type Transform struct {
	Position Vector2 `json:"position"`
	Rotation float64 `json:"rotation"`
	Scale    Vector2 `json:"scale"`
}

// defaultTransform centers an entity at the given point with unit scale.
func defaultTransform(position Vector2) Transform {
	return Transform{Position: position, Scale: Vector2{X: 1, Y: 1}}
}
