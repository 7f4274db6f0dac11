package chat

import (
	"fmt"

	"github.com/kasuganosora/miniworld/server/config"
	"github.com/kasuganosora/miniworld/server/game/action"
	"go.uber.org/zap"
)

// Persona is a character that can speak in the group chat.
type Persona = config.PersonaDoc

// Catalog is the ordered persona list with lookup by name.
type Catalog struct {
	list   []Persona
	byName map[string]Persona
}

// NewCatalog indexes personas. Names must be unique.
func NewCatalog(personas []Persona) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("chat: duplicate persona %q", p.Name)
		}
		c.byName[p.Name] = p
		c.list = append(c.list, p)
	}
	return c, nil
}

// All returns the personas in configured order.
func (c *Catalog) All() []Persona { return append([]Persona(nil), c.list...) }

// Get looks a persona up by name.
func (c *Catalog) Get(name string) (Persona, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// Select returns the named personas in request order. An empty list selects
// every persona.
func (c *Catalog) Select(names []string) ([]Persona, error) {
	if len(names) == 0 {
		return c.All(), nil
	}
	out := make([]Persona, 0, len(names))
	for _, n := range names {
		p, ok := c.byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRole, n)
		}
		out = append(out, p)
	}
	return out, nil
}

// PermissionSummary joins a persona with what its role may do.
type PermissionSummary struct {
	Persona         Persona             `json:"persona"`
	AllowedActions  []string            `json:"allowed_actions"`
	TileWhitelist   map[string][]string `json:"tile_whitelist"`
	CooldownSeconds map[string]int      `json:"cooldown_seconds"`
	DailyQuota      map[string]int      `json:"daily_quota"`
}

// Summaries builds one summary per persona. Personas without a permission
// entry are skipped with a warning.
func Summaries(c *Catalog, perms action.Permissions, logger *zap.Logger) []PermissionSummary {
	out := make([]PermissionSummary, 0, len(c.list))
	for _, p := range c.list {
		perm, ok := perms.Lookup(p.Name)
		if !ok {
			logger.Warn("persona has no permission entry", zap.String("persona", p.Name))
			continue
		}
		s := PermissionSummary{
			Persona:         p,
			TileWhitelist:   make(map[string][]string, len(perm.Whitelist)),
			CooldownSeconds: make(map[string]int, len(perm.Cooldowns)),
			DailyQuota:      make(map[string]int, len(perm.Quotas)),
		}
		for _, t := range perm.AllowedList() {
			s.AllowedActions = append(s.AllowedActions, string(t))
		}
		for t, set := range perm.Whitelist {
			names := make([]string, 0, len(set))
			for _, tl := range set.Sorted() {
				names = append(names, tl.String())
			}
			s.TileWhitelist[string(t)] = names
		}
		for t, n := range perm.Cooldowns {
			s.CooldownSeconds[string(t)] = n
		}
		for t, n := range perm.Quotas {
			s.DailyQuota[string(t)] = n
		}
		out = append(out, s)
	}
	return out
}
