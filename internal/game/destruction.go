package game

import (
	"fmt"
	"math"
)

// WallSpec describes a wall to create. A zero SliceCount means the maximum.
type WallSpec struct {
	ID         string
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Material   WallMaterial
	SliceCount int
}

// WallDamageResult reports what a single damage application changed.
type WallDamageResult struct {
	WallID         string
	Material       WallMaterial
	SliceIndex     int
	Applied        float64
	NewHealth      float64
	SliceDestroyed bool
	WallDestroyed  bool
}

// DestructionStats aggregates wall damage for diagnostics.
type DestructionStats struct {
	Walls           int     `json:"walls"`
	DestroyedWalls  int     `json:"destroyedWalls"`
	TotalSlices     int     `json:"totalSlices"`
	DestroyedSlices int     `json:"destroyedSlices"`
	DamageAbsorbed  float64 `json:"damageAbsorbed"`
}

// WallSet owns every destructible wall in a world. It is not goroutine safe;
// callers run on the room's tick goroutine.
type WallSet struct {
	walls          map[string]*WallState
	order          []string
	nextID         uint64
	damageAbsorbed float64
}

// NewWallSet returns an empty wall registry.
func NewWallSet() *WallSet {
	return &WallSet{walls: make(map[string]*WallState)}
}

// CreateWall registers a wall, partitioning its long axis into equal slices
// at full health. The slice count is clamped to [1, MaxWallSlices].
func (ws *WallSet) CreateWall(spec WallSpec) (*WallState, error) {
	if !spec.Material.Valid() {
		return nil, fmt.Errorf("unknown wall material %q", spec.Material)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("wall %q has non-positive size %gx%g", spec.ID, spec.Width, spec.Height)
	}

	id := spec.ID
	if id == "" {
		ws.nextID++
		id = fmt.Sprintf("wall-%d", ws.nextID)
	}
	if _, exists := ws.walls[id]; exists {
		return nil, fmt.Errorf("wall %q already exists", id)
	}

	count := spec.SliceCount
	if count <= 0 || count > MaxWallSlices {
		count = MaxWallSlices
	}

	orientation := OrientationHorizontal
	if spec.Height > spec.Width {
		orientation = OrientationVertical
	}

	slices := make([]WallSlice, count)
	for i := range slices {
		slices[i] = WallSlice{Health: sliceMaxHealth}
	}

	wall := &WallState{
		ID:             id,
		X:              spec.X,
		Y:              spec.Y,
		Width:          spec.Width,
		Height:         spec.Height,
		Material:       spec.Material,
		Orientation:    orientation,
		Slices:         slices,
		MaxSliceHealth: sliceMaxHealth,
	}
	ws.walls[id] = wall
	ws.order = append(ws.order, id)
	return wall, nil
}

// Wall looks up a wall by ID.
func (ws *WallSet) Wall(id string) (*WallState, bool) {
	wall, ok := ws.walls[id]
	return wall, ok
}

// Walls returns every wall in creation order.
func (ws *WallSet) Walls() []*WallState {
	walls := make([]*WallState, 0, len(ws.order))
	for _, id := range ws.order {
		walls = append(walls, ws.walls[id])
	}
	return walls
}

// ApplyDamage projects the impact point onto the wall's long axis and damages
// the covering slice, scaled by the material divisor. Damage to an unknown or
// already-destroyed wall, or to a destroyed slice, is a no-op.
func (ws *WallSet) ApplyDamage(wallID string, impact Vector2, raw float64) (WallDamageResult, bool) {
	wall, ok := ws.walls[wallID]
	if !ok {
		return WallDamageResult{}, false
	}
	return ws.applyDamageToSlice(wallID, wall.SliceIndexAt(impact), raw)
}

// applyDamageToSlice damages one slice directly. Explosions use this so a
// blast grazing the seam between two slices never doubles up on a neighbour.
func (ws *WallSet) applyDamageToSlice(wallID string, idx int, raw float64) (WallDamageResult, bool) {
	wall, ok := ws.walls[wallID]
	if !ok || wall.Destroyed || raw <= 0 || idx < 0 || idx >= len(wall.Slices) {
		return WallDamageResult{}, false
	}

	slice := &wall.Slices[idx]
	if slice.Destroyed {
		return WallDamageResult{}, false
	}

	effective := raw / wall.Material.DamageMultiplier()
	absorbed := math.Min(effective, slice.Health)
	slice.Health -= absorbed
	ws.damageAbsorbed += absorbed

	result := WallDamageResult{
		WallID:     wallID,
		Material:   wall.Material,
		SliceIndex: idx,
		Applied:    effective,
		NewHealth:  slice.Health,
	}

	if slice.Health <= 0 {
		slice.Health = 0
		slice.Destroyed = true
		result.SliceDestroyed = true
		if wall.IntactSliceCount() == 0 {
			// Edge-triggered: the transition happens at most once per wall.
			wall.Destroyed = true
			result.WallDestroyed = true
		}
	}
	return result, true
}

// ResetAll restores every slice to full health and clears destroyed flags.
func (ws *WallSet) ResetAll() {
	for _, id := range ws.order {
		wall := ws.walls[id]
		wall.Destroyed = false
		for i := range wall.Slices {
			wall.Slices[i] = WallSlice{Health: wall.MaxSliceHealth}
		}
	}
	ws.damageAbsorbed = 0
}

// Stats summarizes destruction progress across the set.
func (ws *WallSet) Stats() DestructionStats {
	stats := DestructionStats{DamageAbsorbed: ws.damageAbsorbed}
	for _, id := range ws.order {
		wall := ws.walls[id]
		stats.Walls++
		if wall.Destroyed {
			stats.DestroyedWalls++
		}
		stats.TotalSlices += len(wall.Slices)
		for _, slice := range wall.Slices {
			if slice.Destroyed {
				stats.DestroyedSlices++
			}
		}
	}
	return stats
}

// collisionRects appends the rects of every intact slice to buf and returns
// it. Physics and hitscan share this view; destroyed slices are absent.
func (ws *WallSet) collisionRects(buf []Rect) []Rect {
	for _, id := range ws.order {
		wall := ws.walls[id]
		if wall.Destroyed {
			continue
		}
		for i := range wall.Slices {
			if wall.Slices[i].Destroyed {
				continue
			}
			buf = append(buf, wall.SliceRect(i))
		}
	}
	return buf
}

// forEachIntactSlice visits every intact slice in creation order until the
// callback returns false.
func (ws *WallSet) forEachIntactSlice(fn func(wall *WallState, idx int, rect Rect) bool) {
	for _, id := range ws.order {
		wall := ws.walls[id]
		if wall.Destroyed {
			continue
		}
		for i := range wall.Slices {
			if wall.Slices[i].Destroyed {
				continue
			}
			if !fn(wall, i, wall.SliceRect(i)) {
				return
			}
		}
	}
}

// snapshot deep-copies every wall keyed by ID.
func (ws *WallSet) snapshot() map[string]WallState {
	walls := make(map[string]WallState, len(ws.walls))
	for id, wall := range ws.walls {
		walls[id] = wall.clone()
	}
	return walls
}
