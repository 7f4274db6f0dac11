package quest

import (
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/tile"
	"github.com/kasuganosora/miniworld/server/game/world"
)

// SeedQuests returns the starter quest set. Timestamps derive from the world
// seed so the output is deterministic.
func SeedQuests(ws world.State) []Quest {
	ts := ws.Seed * 1000
	origin := world.Coord{CX: 0, CY: 0}
	return []Quest{
		{
			ID:       "quest_main_road",
			Title:    "Lay the main road",
			Desc:     "Pave 40 road tiles near the capital to keep supplies flowing.",
			Giver:    "princess",
			Assignee: []string{"hero", "swordsman"},
			Status:   StatusOpen,
			Requirements: []Requirement{{
				ActionType:  action.PlaceTile,
				TargetTile:  tile.Road,
				Chunk:       origin,
				XRange:      DefaultRange,
				YRange:      DefaultRange,
				TargetCount: 40,
				Layer:       LayerBase,
			}},
			Rewards:   []string{"faster road travel", "reputation +10"},
			CreatedAt: ts,
			UpdatedAt: ts,
		},
		{
			ID:       "quest_forest_ring",
			Title:    "Plant the forest ring",
			Desc:     "Plant 20 saplings around the capital as a natural barrier.",
			Giver:    "priest",
			Assignee: []string{"priest", "hero"},
			Status:   StatusOpen,
			Requirements: []Requirement{{
				ActionType:  action.PlantTree,
				TargetTile:  tile.TreeSapling,
				Chunk:       origin,
				XRange:      DefaultRange,
				YRange:      DefaultRange,
				TargetCount: 20,
				Layer:       LayerDeco,
			}},
			Rewards:   []string{"blessing of nature", "stronger healing"},
			CreatedAt: ts,
			UpdatedAt: ts,
		},
		{
			ID:       "quest_farmland",
			Title:    "Break new farmland",
			Desc:     "Till 30 tiles of soil into farmland to stock the granary.",
			Giver:    "princess",
			Assignee: []string{"priest", "hero"},
			Status:   StatusOpen,
			Requirements: []Requirement{{
				ActionType:  action.FarmTill,
				TargetTile:  tile.Farm,
				Chunk:       world.Coord{CX: 1, CY: 0},
				XRange:      DefaultRange,
				YRange:      DefaultRange,
				TargetCount: 30,
				Layer:       LayerBase,
			}},
			Rewards:   []string{"larger granary", "happier residents"},
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}
}
