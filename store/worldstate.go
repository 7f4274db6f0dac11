package store

import (
	"fmt"

	"github.com/kasuganosora/miniworld/server/game/world"
)

// WorldStore holds the single world state document.
type WorldStore struct {
	doc *Doc[world.State]
	def world.State
}

// Load returns the persisted state, writing the configured default first if
// none exists yet.
func (w *WorldStore) Load() (world.State, error) {
	st, ok, err := w.doc.Load()
	if err != nil {
		return world.State{}, err
	}
	if ok {
		if err := st.Validate(); err != nil {
			return world.State{}, fmt.Errorf("store: %s: %w", w.doc.Path(), err)
		}
		return st.Clone(), nil
	}
	st = w.def.Clone()
	if err := w.doc.Save(st); err != nil {
		return world.State{}, err
	}
	return st, nil
}

// Save replaces the world state wholesale.
func (w *WorldStore) Save(st world.State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return w.doc.Save(st.Clone())
}
