package mapgrid

import "fmt"

// Tile alphabet for ASCII arenas: '.' empty, '#' concrete, 'W' wood,
// 'M' metal, 'G' glass, 'R' red spawn, 'B' blue spawn, 'L' light.
var runeCells = map[rune]Cell{
	'.': CellEmpty,
	'#': CellConcrete,
	'W': CellWood,
	'M': CellMetal,
	'G': CellGlass,
	'R': CellSpawnRed,
	'B': CellSpawnBlue,
	'L': CellLight,
}

// ParseASCII builds a grid from rune rows. The shape must match the grid
// exactly; a misdrawn arena is a configuration error, not a warning.
func ParseASCII(rows []string) (*Grid, error) {
	if len(rows) != GridHeight {
		return nil, fmt.Errorf("arena must have %d rows, got %d", GridHeight, len(rows))
	}
	grid := &Grid{}
	for row, line := range rows {
		if len(line) != GridWidth {
			return nil, fmt.Errorf("arena row %d must have %d tiles, got %d", row, GridWidth, len(line))
		}
		for col, r := range line {
			cell, ok := runeCells[r]
			if !ok {
				return nil, fmt.Errorf("arena row %d col %d: unknown tile %q", row, col, r)
			}
			grid.cells[row][col] = cell
		}
	}
	return grid, nil
}

// defaultArenaRows is the built-in map used when no bitmap is configured:
// two spawn columns, a pair of long cover walls, a bunker of metal and glass
// in the middle, and corner pillars.
var defaultArenaRows = []string{
	"................................................",
	"................................................",
	"................................................",
	"......#.....L......................L.....#......",
	"................................................",
	"..................WWWWWWWW......................",
	"..R..........................................B..",
	"................................................",
	"..........#.............G.......................",
	"..........#.............G.......................",
	"..........#.............G.......................",
	"..........#.....................................",
	"..........#.........MMMM.............#..........",
	"..R.......#..........................#.......B..",
	"..........#.............MMMM.........#..........",
	".....................................#..........",
	".......................G.............#..........",
	".......................G.............#..........",
	".......................G.............#..........",
	"................................................",
	"..R..........................................B..",
	"......................WWWWWWWW..................",
	"................................................",
	"......#.....L......................L.....#......",
	"................................................",
	"................................................",
	"................................................",
}

// DefaultGrid returns the built-in arena.
func DefaultGrid() *Grid {
	grid, err := ParseASCII(defaultArenaRows)
	if err != nil {
		// The rows above are a compile-time constant; failing to parse them
		// is a programming error on par with a bad regexp literal.
		panic(err)
	}
	return grid
}
