package world

import (
	"fmt"
	"slices"
	"strings"
)

// StateVersion tags the persisted world state document.
const StateVersion = "v1"

// State is the global world snapshot. Values are replaced wholesale; use
// the With* helpers to derive a modified copy.
type State struct {
	Version     string   `json:"version"`
	Year        int      `json:"year"`
	Season      string   `json:"season"`
	Location    string   `json:"location"`
	MajorEvents []string `json:"major_events"`
	Seed        int64    `json:"seed"`
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	s.MajorEvents = slices.Clone(s.MajorEvents)
	if s.MajorEvents == nil {
		s.MajorEvents = []string{}
	}
	return s
}

// WithLocation returns a copy of s located elsewhere.
func (s State) WithLocation(location string) State {
	out := s.Clone()
	out.Location = location
	return out
}

// Validate rejects states that cannot be persisted.
func (s State) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("world state: missing version")
	}
	if s.Season == "" {
		return fmt.Errorf("world state: missing season")
	}
	if s.Location == "" {
		return fmt.Errorf("world state: missing location")
	}
	return nil
}

// Describe renders a one-line description used by chat prompts.
func (s State) Describe() string {
	events := "no major events"
	if len(s.MajorEvents) > 0 {
		events = strings.Join(s.MajorEvents, ", ")
	}
	return fmt.Sprintf("Year %d, %s, at %s. Events: %s.", s.Year, s.Season, s.Location, events)
}

// DefaultState is the world a fresh data directory starts from.
func DefaultState() State {
	return State{
		Version:  StateVersion,
		Year:     302,
		Season:   "spring",
		Location: "royal capital outskirts",
		MajorEvents: []string{
			"the holy seal is lost and the kingdom is in turmoil",
			"the border mana furnace keeps misfiring",
		},
		Seed: 42,
	}
}
