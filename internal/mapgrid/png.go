package mapgrid

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
)

type rgb struct {
	r, g, b uint8
}

// The map bitmap color table. Any pixel outside it aborts the load: a
// mis-painted map should fail loudly, not turn into an invisible wall.
var palette = map[rgb]Cell{
	{128, 128, 128}: CellConcrete,
	{139, 69, 19}:   CellWood,
	{192, 192, 192}: CellMetal,
	{135, 206, 235}: CellGlass,
	{255, 0, 0}:     CellSpawnRed,
	{0, 0, 255}:     CellSpawnBlue,
	{255, 255, 0}:   CellLight,
	{255, 255, 255}: CellEmpty,
	{0, 0, 0}:       CellEmpty,
}

// LoadPNG decodes a 480x270 map bitmap into a grid. Each 10x10 pixel block
// becomes one cell, classified by majority color.
func LoadPNG(r io.Reader) (*Grid, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode map image: %w", err)
	}
	return ParseImage(img)
}

// LoadFile reads a map bitmap from disk.
func LoadFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map %q: %w", path, err)
	}
	defer f.Close()
	grid, err := LoadPNG(f)
	if err != nil {
		return nil, fmt.Errorf("load map %q: %w", path, err)
	}
	return grid, nil
}

// ParseImage classifies an already-decoded image. The image must be exactly
// 480x270; anything else is a fatal configuration error.
func ParseImage(img image.Image) (*Grid, error) {
	bounds := img.Bounds()
	if bounds.Dx() != ImageWidth || bounds.Dy() != ImageHeight {
		return nil, fmt.Errorf("map image must be %dx%d, got %dx%d", ImageWidth, ImageHeight, bounds.Dx(), bounds.Dy())
	}

	grid := &Grid{}
	cellPixels := int(CellSize)
	for row := 0; row < GridHeight; row++ {
		for col := 0; col < GridWidth; col++ {
			var counts [8]int
			for dy := 0; dy < cellPixels; dy++ {
				for dx := 0; dx < cellPixels; dx++ {
					x := bounds.Min.X + col*cellPixels + dx
					y := bounds.Min.Y + row*cellPixels + dy
					r, g, b, _ := img.At(x, y).RGBA()
					cell, ok := palette[rgb{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}]
					if !ok {
						return nil, fmt.Errorf("map cell (%d,%d): unknown color #%02x%02x%02x", col, row, uint8(r>>8), uint8(g>>8), uint8(b>>8))
					}
					counts[cell]++
				}
			}
			grid.cells[row][col] = majorityCell(counts)
		}
	}
	return grid, nil
}

// majorityCell picks the most common classification in a block. Ties resolve
// toward the lowest cell value, so a half-and-half block leans empty.
func majorityCell(counts [8]int) Cell {
	best := Cell(0)
	bestCount := counts[0]
	for cell := 1; cell < len(counts); cell++ {
		if counts[cell] > bestCount {
			best = Cell(cell)
			bestCount = counts[cell]
		}
	}
	return best
}
