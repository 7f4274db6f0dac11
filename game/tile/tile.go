package tile

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies a tile. The zero value None means "no tile" and is only
// meaningful for the decoration slot.
type Type uint8

const (
	None Type = iota
	Grass
	Road
	Water
	Soil
	WoodFloor
	HouseBase
	TreeSapling
	Tree
	Farm
	Rock
	Shrub
	MagicSigil
)

var names = [...]string{
	None:        "",
	Grass:       "GRASS",
	Road:        "ROAD",
	Water:       "WATER",
	Soil:        "SOIL",
	WoodFloor:   "WOODFLOOR",
	HouseBase:   "HOUSE_BASE",
	TreeSapling: "TREE_SAPLING",
	Tree:        "TREE",
	Farm:        "FARM",
	Rock:        "ROCK",
	Shrub:       "SHRUB",
	MagicSigil:  "MAGIC_SIGIL",
}

var byName = func() map[string]Type {
	m := make(map[string]Type, len(names))
	for i, n := range names {
		if n != "" {
			m[n] = Type(i)
		}
	}
	return m
}()

// Parse resolves a tile name such as "ROAD" or "house-base".
func Parse(s string) (Type, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	if t, ok := byName[key]; ok {
		return t, nil
	}
	return None, fmt.Errorf("tile: unknown tile %q", s)
}

// All returns every valid tile in declaration order.
func All() []Type {
	out := make([]Type, 0, len(names)-1)
	for i := 1; i < len(names); i++ {
		out = append(out, Type(i))
	}
	return out
}

// Valid reports whether t is a known, non-empty tile.
func (t Type) Valid() bool { return t > None && int(t) < len(names) }

func (t Type) String() string {
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// IsStructure reports whether t may be placed by PLACE_STRUCTURE.
func (t Type) IsStructure() bool {
	switch t {
	case HouseBase, MagicSigil, WoodFloor:
		return true
	}
	return false
}

// IsDecor reports whether t may occupy a cell's decoration slot.
func (t Type) IsDecor() bool {
	switch t {
	case TreeSapling, Tree, Shrub, Rock:
		return true
	}
	return false
}

// Growable reports whether t advances on world ticks.
func (t Type) Growable() bool { return t == TreeSapling }

// Matured returns the tile a growable decoration turns into.
func (t Type) Matured() Type {
	if t == TreeSapling {
		return Tree
	}
	return t
}

// RequiresFloor reports whether a structure cannot sit directly on water.
func (t Type) RequiresFloor() bool { return t == HouseBase }

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("tile: cannot encode %s", t)
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalJSON encodes None as null so optional slots round-trip.
func (t Type) MarshalJSON() ([]byte, error) {
	if t == None {
		return []byte("null"), nil
	}
	b, err := t.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(b))
}

func (t *Type) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = None
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("tile: %w", err)
	}
	return t.UnmarshalText([]byte(s))
}

// Set is a membership set of tiles. An empty set places no restriction.
type Set map[Type]struct{}

// NewSet builds a Set from tiles.
func NewSet(tiles ...Type) Set {
	s := make(Set, len(tiles))
	for _, t := range tiles {
		s[t] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

// Allows reports whether t passes the whitelist: empty sets allow everything.
func (s Set) Allows(t Type) bool { return len(s) == 0 || s.Has(t) }

// Sorted returns the members in declaration order.
func (s Set) Sorted() []Type {
	out := make([]Type, 0, len(s))
	for _, t := range All() {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}
