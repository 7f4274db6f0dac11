package action

import (
	"fmt"
	"slices"
	"sort"

	"github.com/kasuganosora/miniworld/server/config"
	"github.com/kasuganosora/miniworld/server/game/tile"
	"github.com/kasuganosora/miniworld/server/game/world"
)

// Region is a forbidden rectangle inside one chunk. Ranges are inclusive.
type Region struct {
	Chunk  world.Coord `json:"chunk"`
	XRange [2]int      `json:"x_range"`
	YRange [2]int      `json:"y_range"`
}

// Contains reports whether the cell lies inside the region.
func (r Region) Contains(c world.Coord, p world.Pos) bool {
	if c != r.Chunk {
		return false
	}
	return r.XRange[0] <= p.X && p.X <= r.XRange[1] &&
		r.YRange[0] <= p.Y && p.Y <= r.YRange[1]
}

// RolePermission is the validated, read-only permission set of one role.
type RolePermission struct {
	Allowed              map[Type]bool
	Whitelist            map[Type]tile.Set
	ForbiddenRemoveBases tile.Set
	Cooldowns            map[Type]int
	Quotas               map[Type]int
	ForbiddenRegions     []Region
}

// Allows reports whether the role may perform t at all.
func (p RolePermission) Allows(t Type) bool { return p.Allowed[t] }

// WhitelistFor returns the tile whitelist for t; an empty set allows every tile.
func (p RolePermission) WhitelistFor(t Type) tile.Set { return p.Whitelist[t] }

// Quota returns the daily quota for t, or nil when unlimited.
func (p RolePermission) Quota(t Type) *int {
	if n, ok := p.Quotas[t]; ok {
		return &n
	}
	return nil
}

// Cooldown returns the cooldown in seconds for t, or nil when none.
func (p RolePermission) Cooldown(t Type) *int {
	if n, ok := p.Cooldowns[t]; ok {
		return &n
	}
	return nil
}

// InForbiddenRegion reports whether any forbidden region covers the cell.
func (p RolePermission) InForbiddenRegion(c world.Coord, pos world.Pos) bool {
	for _, r := range p.ForbiddenRegions {
		if r.Contains(c, pos) {
			return true
		}
	}
	return false
}

// AllowedList returns the allowed action types sorted by name.
func (p RolePermission) AllowedList() []Type {
	out := make([]Type, 0, len(p.Allowed))
	for t, ok := range p.Allowed {
		if ok {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Permissions maps a role name to its permission set.
type Permissions map[string]RolePermission

// Lookup returns the permission for role.
func (ps Permissions) Lookup(role string) (RolePermission, bool) {
	p, ok := ps[role]
	return p, ok
}

// Roles returns the role names sorted.
func (ps Permissions) Roles() []string {
	out := make([]string, 0, len(ps))
	for r := range ps {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// BuildPermissions validates the role documents and converts them into
// typed permissions. Any unknown action name or malformed entry fails the
// whole load.
func BuildPermissions(docs map[string]config.RoleDoc) (Permissions, error) {
	out := make(Permissions, len(docs))
	for role, doc := range docs {
		p, err := buildRole(doc)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", role, err)
		}
		out[role] = p
	}
	return out, nil
}

func buildRole(doc config.RoleDoc) (RolePermission, error) {
	p := RolePermission{
		Allowed:              make(map[Type]bool, len(doc.AllowedActions)),
		Whitelist:            make(map[Type]tile.Set, len(doc.TileWhitelist)),
		ForbiddenRemoveBases: tile.NewSet(doc.ForbiddenRemoveBases...),
		Cooldowns:            make(map[Type]int, len(doc.CooldownSeconds)),
		Quotas:               make(map[Type]int, len(doc.DailyQuota)),
	}
	for _, name := range doc.AllowedActions {
		t, err := ParseType(name)
		if err != nil {
			return p, fmt.Errorf("allowed_actions: %w", err)
		}
		p.Allowed[t] = true
	}
	for name, tiles := range doc.TileWhitelist {
		t, err := ParseType(name)
		if err != nil {
			return p, fmt.Errorf("tile_whitelist: %w", err)
		}
		p.Whitelist[t] = tile.NewSet(tiles...)
	}
	if err := intsByAction(doc.CooldownSeconds, p.Cooldowns, "cooldown_seconds"); err != nil {
		return p, err
	}
	if err := intsByAction(doc.DailyQuota, p.Quotas, "daily_quota"); err != nil {
		return p, err
	}
	for i, r := range doc.ForbiddenRegions {
		if r.XRange[0] > r.XRange[1] || r.YRange[0] > r.YRange[1] {
			return p, fmt.Errorf("forbidden_regions[%d]: range start after end", i)
		}
		p.ForbiddenRegions = append(p.ForbiddenRegions, Region{
			Chunk:  world.Coord{CX: r.CX, CY: r.CY},
			XRange: r.XRange,
			YRange: r.YRange,
		})
	}
	return p, nil
}

func intsByAction(in map[string]int, out map[Type]int, field string) error {
	for name, n := range in {
		t, err := ParseType(name)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if n < 0 {
			return fmt.Errorf("%s[%s]: negative value %d", field, name, n)
		}
		out[t] = n
	}
	return nil
}
