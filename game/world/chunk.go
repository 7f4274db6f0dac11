package world

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kasuganosora/miniworld/server/game/tile"
)

const (
	// DefaultChunkSize is the side length used when none is configured.
	DefaultChunkSize = 32
	// ChunkVersion tags the persisted chunk document format.
	ChunkVersion = "v1"

	MinHeight = -16
	MaxHeight = 16
	MaxGrowth = 10
)

// Stage is an optional growth stage. The zero value is "absent" and
// encodes as JSON null.
type Stage struct {
	value int
	set   bool
}

// StageOf returns a present stage.
func StageOf(n int) Stage { return Stage{value: n, set: true} }

// Get returns the stage and whether it is present.
func (s Stage) Get() (int, bool) { return s.value, s.set }

// Present reports whether a stage is set.
func (s Stage) Present() bool { return s.set }

func (s Stage) String() string {
	if !s.set {
		return "none"
	}
	return strconv.Itoa(s.value)
}

func (s Stage) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(s.value)), nil
}

func (s *Stage) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Stage{}
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("growth_stage: %w", err)
	}
	*s = StageOf(n)
	return nil
}

// Cell is one grid position: a ground layer and an independent decoration layer.
type Cell struct {
	Base   tile.Type `json:"base"`
	Deco   tile.Type `json:"deco"`
	Height int       `json:"height"`
	Growth Stage     `json:"growth_stage"`
}

// DefaultCell is a bare grass cell.
func DefaultCell() Cell { return Cell{Base: tile.Grass} }

// HasDeco reports whether the decoration slot is occupied.
func (c Cell) HasDeco() bool { return c.Deco != tile.None }

// ClearDeco empties the decoration slot and its growth stage.
func (c *Cell) ClearDeco() {
	c.Deco = tile.None
	c.Growth = Stage{}
}

// Validate checks the per-cell invariants of a loaded document.
func (c Cell) Validate() error {
	if !c.Base.Valid() {
		return fmt.Errorf("invalid base tile %s", c.Base)
	}
	if c.HasDeco() && !c.Deco.IsDecor() {
		return fmt.Errorf("tile %s cannot be a decoration", c.Deco)
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		return fmt.Errorf("height %d out of [%d,%d]", c.Height, MinHeight, MaxHeight)
	}
	if g, ok := c.Growth.Get(); ok {
		if g < 0 || g > MaxGrowth {
			return fmt.Errorf("growth_stage %d out of [0,%d]", g, MaxGrowth)
		}
		if !c.Deco.Growable() {
			return fmt.Errorf("growth_stage set on non-growable deco %s", c.Deco)
		}
	}
	return nil
}

// BoundsError is returned for cell access outside [0, size) on either axis.
type BoundsError struct {
	X, Y int
	Size int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("world: cell (%d, %d) out of bounds [0,%d)", e.X, e.Y, e.Size)
}

// Chunk is a size×size grid of cells addressed by chunk coordinates.
// Grid is row-major: Grid[y][x].
type Chunk struct {
	CX      int      `json:"cx"`
	CY      int      `json:"cy"`
	Size    int      `json:"size"`
	Version string   `json:"version"`
	Grid    [][]Cell `json:"grid"`
}

// NewChunk creates an all-grass chunk.
func NewChunk(cx, cy, size int) *Chunk {
	grid := make([][]Cell, size)
	for y := range grid {
		row := make([]Cell, size)
		for x := range row {
			row[x] = DefaultCell()
		}
		grid[y] = row
	}
	return &Chunk{CX: cx, CY: cy, Size: size, Version: ChunkVersion, Grid: grid}
}

// Coord returns the chunk's coordinate.
func (c *Chunk) Coord() Coord { return Coord{CX: c.CX, CY: c.CY} }

// InBounds reports whether (x, y) addresses a cell of this chunk.
func (c *Chunk) InBounds(x, y int) bool {
	return x >= 0 && x < c.Size && y >= 0 && y < c.Size
}

// CellAt returns a copy of the cell at (x, y).
func (c *Chunk) CellAt(x, y int) (Cell, error) {
	if !c.InBounds(x, y) {
		return Cell{}, &BoundsError{X: x, Y: y, Size: c.Size}
	}
	return c.Grid[y][x], nil
}

// ApplyCell replaces the cell at (x, y).
func (c *Chunk) ApplyCell(x, y int, cell Cell) error {
	if !c.InBounds(x, y) {
		return &BoundsError{X: x, Y: y, Size: c.Size}
	}
	c.Grid[y][x] = cell
	return nil
}

// Validate checks grid dimensions and every cell.
func (c *Chunk) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk (%d,%d): size %d", c.CX, c.CY, c.Size)
	}
	if len(c.Grid) != c.Size {
		return fmt.Errorf("chunk (%d,%d): %d rows, want %d", c.CX, c.CY, len(c.Grid), c.Size)
	}
	for y, row := range c.Grid {
		if len(row) != c.Size {
			return fmt.Errorf("chunk (%d,%d): row %d has %d cells, want %d", c.CX, c.CY, y, len(row), c.Size)
		}
		for x, cell := range row {
			if err := cell.Validate(); err != nil {
				return fmt.Errorf("chunk (%d,%d) cell (%d,%d): %w", c.CX, c.CY, x, y, err)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Chunk) Clone() *Chunk {
	out := *c
	out.Grid = make([][]Cell, len(c.Grid))
	for y, row := range c.Grid {
		out.Grid[y] = append([]Cell(nil), row...)
	}
	return &out
}

// Summary counts base tiles across the grid.
func (c *Chunk) Summary() map[tile.Type]int {
	counts := make(map[tile.Type]int)
	for _, row := range c.Grid {
		for _, cell := range row {
			counts[cell.Base]++
		}
	}
	return counts
}
