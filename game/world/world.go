package world

import "fmt"

// Coord addresses a chunk.
type Coord struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.CX, c.CY) }

// Key is the persisted document name for the chunk, e.g. "3_-1".
func (c Coord) Key() string { return fmt.Sprintf("%d_%d", c.CX, c.CY) }

// Pos is a cell position inside a chunk.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Negative reports whether either axis is below zero.
func (p Pos) Negative() bool { return p.X < 0 || p.Y < 0 }
