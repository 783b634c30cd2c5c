package mapgrid

import (
	"github.com/BritishAmericqn/trespasser-backend-sub006/internal/game"
)

// Cell is one 10x10 tile of the arena grid.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellConcrete
	CellWood
	CellMetal
	CellGlass
	CellSpawnRed
	CellSpawnBlue
	CellLight
)

const (
	// GridWidth and GridHeight fix the arena at 48x27 cells; the world is
	// 480x270 units with 10-unit cells, so the grid covers it exactly.
	GridWidth  = 48
	GridHeight = 27
	CellSize   = 10.0

	// ImageWidth and ImageHeight are the only accepted map bitmap size.
	ImageWidth  = 480
	ImageHeight = 270
)

// Grid is a parsed arena: a fixed 48x27 field of cells.
type Grid struct {
	cells [GridHeight][GridWidth]Cell
}

// At returns the cell at the given column and row, or CellEmpty out of range.
func (g *Grid) At(col, row int) Cell {
	if g == nil || col < 0 || col >= GridWidth || row < 0 || row >= GridHeight {
		return CellEmpty
	}
	return g.cells[row][col]
}

func (c Cell) isWall() bool {
	switch c {
	case CellConcrete, CellWood, CellMetal, CellGlass:
		return true
	}
	return false
}

func (c Cell) material() game.WallMaterial {
	switch c {
	case CellConcrete:
		return game.MaterialConcrete
	case CellWood:
		return game.MaterialWood
	case CellMetal:
		return game.MaterialMetal
	case CellGlass:
		return game.MaterialGlass
	}
	return game.WallMaterial("")
}

// Layout merges the grid into wall runs, spawn lists, and light positions.
// Greedy horizontal runs win first, then vertical runs; leftover lone cells
// become single-slice pillars. Run length in cells sets the slice count,
// clamped to the per-wall maximum.
func (g *Grid) Layout() game.Layout {
	layout := game.Layout{
		Spawns: make(map[game.Team][]game.Vector2),
	}
	if g == nil {
		return layout
	}

	var visited [GridHeight][GridWidth]bool

	appendWall := func(col, row, runCols, runRows int, material game.WallMaterial) {
		run := runCols
		if runRows > runCols {
			run = runRows
		}
		layout.Walls = append(layout.Walls, game.WallSpec{
			X:          float64(col) * CellSize,
			Y:          float64(row) * CellSize,
			Width:      float64(runCols) * CellSize,
			Height:     float64(runRows) * CellSize,
			Material:   material,
			SliceCount: min(run, game.MaxWallSlices),
		})
	}

	// Horizontal runs of two or more same-material cells.
	for row := 0; row < GridHeight; row++ {
		for col := 0; col < GridWidth; col++ {
			cell := g.cells[row][col]
			if visited[row][col] || !cell.isWall() {
				continue
			}
			run := 1
			for col+run < GridWidth && !visited[row][col+run] && g.cells[row][col+run] == cell {
				run++
			}
			if run < 2 {
				continue
			}
			for i := 0; i < run; i++ {
				visited[row][col+i] = true
			}
			appendWall(col, row, run, 1, cell.material())
		}
	}

	// Vertical runs over whatever the horizontal pass left behind.
	for col := 0; col < GridWidth; col++ {
		for row := 0; row < GridHeight; row++ {
			cell := g.cells[row][col]
			if visited[row][col] || !cell.isWall() {
				continue
			}
			run := 1
			for row+run < GridHeight && !visited[row+run][col] && g.cells[row+run][col] == cell {
				run++
			}
			if run < 2 {
				continue
			}
			for i := 0; i < run; i++ {
				visited[row+i][col] = true
			}
			appendWall(col, row, 1, run, cell.material())
		}
	}

	// Lone leftovers become pillars; spawns and lights sit at cell centers.
	for row := 0; row < GridHeight; row++ {
		for col := 0; col < GridWidth; col++ {
			cell := g.cells[row][col]
			switch {
			case cell.isWall():
				if !visited[row][col] {
					appendWall(col, row, 1, 1, cell.material())
				}
			case cell == CellSpawnRed:
				layout.Spawns[game.TeamRed] = append(layout.Spawns[game.TeamRed], cellCenter(col, row))
			case cell == CellSpawnBlue:
				layout.Spawns[game.TeamBlue] = append(layout.Spawns[game.TeamBlue], cellCenter(col, row))
			case cell == CellLight:
				layout.Lights = append(layout.Lights, cellCenter(col, row))
			}
		}
	}

	return layout
}

func cellCenter(col, row int) game.Vector2 {
	return game.Vector2{
		X: float64(col)*CellSize + CellSize/2,
		Y: float64(row)*CellSize + CellSize/2,
	}
}
