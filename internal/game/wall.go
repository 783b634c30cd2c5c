package game

// WallMaterial identifies what a destructible wall is made of. Harder
// materials divide incoming damage by a larger factor.
type WallMaterial string

const (
	MaterialConcrete WallMaterial = "concrete"
	MaterialWood     WallMaterial = "wood"
	MaterialMetal    WallMaterial = "metal"
	MaterialGlass    WallMaterial = "glass"
)

// DamageMultiplier is the divisor applied to raw damage before it reaches a
// slice. Glass soaks the least, metal the most.
func (m WallMaterial) DamageMultiplier() float64 {
	switch m {
	case MaterialConcrete:
		return 1.5
	case MaterialWood:
		return 1.0
	case MaterialMetal:
		return 2.0
	case MaterialGlass:
		return 0.5
	}
	return 1.0
}

// Valid reports whether the material is one of the known kinds.
func (m WallMaterial) Valid() bool {
	switch m {
	case MaterialConcrete, MaterialWood, MaterialMetal, MaterialGlass:
		return true
	}
	return false
}

// bulletPenetrable reports whether plain bullets punch through the material
// instead of stopping in it.
func (m WallMaterial) bulletPenetrable() bool {
	return m == MaterialGlass || m == MaterialWood
}

// WallOrientation names the long axis a wall is sliced along.
type WallOrientation string

const (
	OrientationHorizontal WallOrientation = "horizontal"
	OrientationVertical   WallOrientation = "vertical"
)

// WallSlice is one destructible segment of a wall. Destroyed slices stop
// colliding but stay in the record so indices remain stable.
type WallSlice struct {
	Health    float64 `json:"health"`
	Destroyed bool    `json:"destroyed"`
}

// WallState is a destructible wall. The slice list is fixed at creation;
// damage only ever lowers slice health, and the wall itself is destroyed
// exactly when every slice is.
type WallState struct {
	ID             string          `json:"id"`
	X              float64         `json:"x"`
	Y              float64         `json:"y"`
	Width          float64         `json:"width"`
	Height         float64         `json:"height"`
	Material       WallMaterial    `json:"material"`
	Orientation    WallOrientation `json:"orientation"`
	Slices         []WallSlice     `json:"slices"`
	Destroyed      bool            `json:"destroyed"`
	MaxSliceHealth float64         `json:"maxSliceHealth"`
}

// Rect returns the wall's full footprint.
func (w *WallState) Rect() Rect {
	return Rect{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height}
}

// SliceRect returns the footprint of slice i. Slices partition the long axis
// into equal segments; the short axis spans the whole wall.
func (w *WallState) SliceRect(i int) Rect {
	count := len(w.Slices)
	if count == 0 || i < 0 || i >= count {
		return w.Rect()
	}
	if w.Orientation == OrientationVertical {
		step := w.Height / float64(count)
		return Rect{X: w.X, Y: w.Y + float64(i)*step, Width: w.Width, Height: step}
	}
	step := w.Width / float64(count)
	return Rect{X: w.X + float64(i)*step, Y: w.Y, Width: step, Height: w.Height}
}

// SliceIndexAt projects a world point onto the long axis and returns the
// slice index covering it, clamped into range.
func (w *WallState) SliceIndexAt(p Vector2) int {
	count := len(w.Slices)
	if count == 0 {
		return 0
	}
	var offset, span float64
	if w.Orientation == OrientationVertical {
		offset = p.Y - w.Y
		span = w.Height
	} else {
		offset = p.X - w.X
		span = w.Width
	}
	if span <= 0 {
		return 0
	}
	idx := int(offset / span * float64(count))
	if idx < 0 {
		idx = 0
	}
	if idx >= count {
		idx = count - 1
	}
	return idx
}

// IntactSliceCount reports how many slices still collide.
func (w *WallState) IntactSliceCount() int {
	intact := 0
	for _, slice := range w.Slices {
		if !slice.Destroyed {
			intact++
		}
	}
	return intact
}

// clone deep-copies the wall for snapshots.
func (w *WallState) clone() WallState {
	copied := *w
	copied.Slices = append([]WallSlice(nil), w.Slices...)
	return copied
}
