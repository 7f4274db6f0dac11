package action

import (
	"fmt"

	"github.com/kasuganosora/miniworld/server/game/world"
)

// Type identifies an action kind.
type Type string

const (
	PlaceTile      Type = "PLACE_TILE"
	PlaceStructure Type = "PLACE_STRUCTURE"
	PlantTree      Type = "PLANT_TREE"
	RemoveTile     Type = "REMOVE_TILE"
	FarmTill       Type = "FARM_TILL"
)

// Types lists every action kind.
func Types() []Type {
	return []Type{PlaceTile, PlaceStructure, PlantTree, RemoveTile, FarmTill}
}

// ParseType validates an action name.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("action: unknown action type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known action kind.
func (t Type) Valid() bool {
	switch t {
	case PlaceTile, PlaceStructure, PlantTree, RemoveTile, FarmTill:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Request is one proposed edit of one cell.
type Request struct {
	Actor    string         `json:"actor"`
	Type     Type           `json:"type"`
	Chunk    world.Coord    `json:"chunk"`
	Pos      world.Pos      `json:"pos"`
	Payload  map[string]any `json:"payload,omitempty"`
	ClientTS int64          `json:"client_ts"`
}

// Change is the before and after snapshot of one affected cell.
type Change struct {
	Chunk  world.Coord `json:"chunk"`
	Pos    world.Pos   `json:"pos"`
	Before world.Cell  `json:"before"`
	After  world.Cell  `json:"after"`
}

// Result is returned for an applied action.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Changes []Change `json:"changes"`
	Code    int      `json:"code"`
}
