package config

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kasuganosora/miniworld/server/game/tile"
	"github.com/kasuganosora/miniworld/server/game/world"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaults embed.FS

// RegionDoc is a rectangle of cells, inclusive on both ends, inside one chunk.
type RegionDoc struct {
	CX     int    `yaml:"cx"`
	CY     int    `yaml:"cy"`
	XRange [2]int `yaml:"x_range"`
	YRange [2]int `yaml:"y_range"`
}

// RoleDoc is one role's permission entry as written in the roles file.
// Action names are kept as strings here and checked when the permission
// matrix is built; tile names are checked while decoding.
type RoleDoc struct {
	AllowedActions       []string               `yaml:"allowed_actions"`
	TileWhitelist        map[string][]tile.Type `yaml:"tile_whitelist"`
	ForbiddenRemoveBases []tile.Type            `yaml:"forbidden_remove_bases"`
	CooldownSeconds      map[string]int         `yaml:"cooldown_seconds"`
	DailyQuota           map[string]int         `yaml:"daily_quota"`
	ForbiddenRegions     []RegionDoc            `yaml:"forbidden_regions"`
}

// PersonaDoc describes a chat persona.
type PersonaDoc struct {
	Name          string   `yaml:"name" json:"name"`
	Archetype     string   `yaml:"archetype" json:"archetype"`
	SpeakingStyle string   `yaml:"speaking_style" json:"speaking_style"`
	KnowledgeTags []string `yaml:"knowledge_tags" json:"knowledge_tags"`
	MoralAxis     string   `yaml:"moral_axis" json:"moral_axis"`
	Goal          string   `yaml:"goal" json:"goal"`
}

// LoadRoles reads the role permission file. An empty path loads the built-in
// matrix.
func LoadRoles(path string) (map[string]RoleDoc, error) {
	raw, name, err := readDoc(path, "defaults/roles.yaml")
	if err != nil {
		return nil, err
	}
	var roles map[string]RoleDoc
	if err := decodeStrict(raw, &roles); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%s: no roles defined", name)
	}
	return roles, nil
}

// LoadPersonas reads the persona file. An empty path loads the built-in
// party.
func LoadPersonas(path string) ([]PersonaDoc, error) {
	raw, name, err := readDoc(path, "defaults/personas.yaml")
	if err != nil {
		return nil, err
	}
	var personas []PersonaDoc
	if err := decodeStrict(raw, &personas); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	seen := make(map[string]bool, len(personas))
	for i, p := range personas {
		if p.Name == "" {
			return nil, fmt.Errorf("%s: persona #%d has no name", name, i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%s: duplicate persona %q", name, p.Name)
		}
		seen[p.Name] = true
	}
	return personas, nil
}

// DefaultWorld builds the initial world state from the world section.
func (w WorldConfig) DefaultWorld() world.State {
	events := append([]string{}, w.Events...)
	return world.State{
		Version:     world.StateVersion,
		Year:        w.Year,
		Season:      w.Season,
		Location:    w.Location,
		MajorEvents: events,
		Seed:        w.Seed,
	}
}

func readDoc(path, fallback string) ([]byte, string, error) {
	if path == "" {
		raw, err := defaults.ReadFile(fallback)
		return raw, fallback, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}
	return raw, path, nil
}

func decodeStrict(raw []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
