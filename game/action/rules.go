package action

import (
	"github.com/kasuganosora/miniworld/server/game/tile"
	"github.com/kasuganosora/miniworld/server/game/world"
)

type rule func(req Request, cell world.Cell, perm RolePermission) (world.Cell, error)

var rules = map[Type]rule{
	PlaceTile:      placeTile,
	PlaceStructure: placeStructure,
	PlantTree:      plantTree,
	RemoveTile:     removeTile,
	FarmTill:       farmTill,
}

// applyRule validates req against the target cell and mutates chunk in
// memory. Nothing is changed when an error is returned.
func applyRule(req Request, chunk *world.Chunk, perm RolePermission) (Change, error) {
	r, ok := rules[req.Type]
	if !ok {
		return Change{}, newError(CodeInvalidPayload, "unknown action type %q", req.Type)
	}
	before, err := chunk.CellAt(req.Pos.X, req.Pos.Y)
	if err != nil {
		return Change{}, wrapError(CodeInternal, err, "read cell")
	}
	after, err := r(req, before, perm)
	if err != nil {
		return Change{}, err
	}
	return cellChange(req, chunk, before, after)
}

func placeTile(req Request, cell world.Cell, perm RolePermission) (world.Cell, error) {
	t, err := payloadTile(req)
	if err != nil {
		return cell, err
	}
	if !perm.WhitelistFor(PlaceTile).Allows(t) {
		return cell, newError(CodeForbidden, "%s may not place %s", req.Actor, t)
	}
	cell.Base = t
	if t == tile.Water {
		cell.ClearDeco()
	}
	return cell, nil
}

func placeStructure(req Request, cell world.Cell, perm RolePermission) (world.Cell, error) {
	t, err := payloadTile(req)
	if err != nil {
		return cell, err
	}
	if !perm.WhitelistFor(PlaceStructure).Allows(t) {
		return cell, newError(CodeForbidden, "%s may not build %s", req.Actor, t)
	}
	if !t.IsStructure() {
		return cell, newError(CodeInvalidPayload, "%s is not a structure", t)
	}
	if cell.Base == tile.Water && t.RequiresFloor() {
		return cell, newError(CodeInvalidPayload, "%s cannot be built on water; lay %s first", t, tile.WoodFloor)
	}
	cell.Base = t
	return cell, nil
}

func plantTree(req Request, cell world.Cell, perm RolePermission) (world.Cell, error) {
	if !perm.WhitelistFor(PlantTree).Allows(cell.Base) {
		return cell, newError(CodeInvalidPayload, "cannot plant on %s", cell.Base)
	}
	if cell.HasDeco() {
		return cell, newError(CodeInvalidPayload, "decoration slot holds %s", cell.Deco)
	}
	cell.Deco = tile.TreeSapling
	cell.Growth = world.StageOf(0)
	return cell, nil
}

func removeTile(req Request, cell world.Cell, perm RolePermission) (world.Cell, error) {
	allowed := perm.WhitelistFor(RemoveTile)
	if cell.HasDeco() {
		if !allowed.Allows(cell.Deco) {
			return cell, newError(CodeForbidden, "%s may not remove %s", req.Actor, cell.Deco)
		}
		cell.ClearDeco()
		return cell, nil
	}
	if !allowed.Allows(cell.Base) {
		return cell, newError(CodeForbidden, "%s may not remove %s", req.Actor, cell.Base)
	}
	if perm.ForbiddenRemoveBases.Has(cell.Base) {
		return cell, newError(CodeForbidden, "%s is protected", cell.Base)
	}
	cell.Base = tile.Grass
	return cell, nil
}

func farmTill(req Request, cell world.Cell, perm RolePermission) (world.Cell, error) {
	if !perm.WhitelistFor(FarmTill).Allows(cell.Base) {
		return cell, newError(CodeInvalidPayload, "%s may not till %s", req.Actor, cell.Base)
	}
	if cell.Base != tile.Soil {
		return cell, newError(CodeInvalidPayload, "only %s can be tilled, found %s", tile.Soil, cell.Base)
	}
	cell.Base = tile.Farm
	return cell, nil
}

func payloadTile(req Request) (tile.Type, error) {
	raw, ok := req.Payload["tile"]
	if !ok {
		return tile.None, newError(CodeInvalidPayload, "payload.tile is required")
	}
	name, ok := raw.(string)
	if !ok {
		return tile.None, newError(CodeInvalidPayload, "payload.tile must be a string")
	}
	t, err := tile.Parse(name)
	if err != nil {
		return tile.None, wrapError(CodeInvalidPayload, err, "payload.tile is not a known tile")
	}
	return t, nil
}
