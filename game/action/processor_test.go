package action_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kasuganosora/miniworld/server/audit"
	"github.com/kasuganosora/miniworld/server/config"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/quest"
	"github.com/kasuganosora/miniworld/server/game/tile"
	"github.com/kasuganosora/miniworld/server/game/world"
	"github.com/kasuganosora/miniworld/server/metrics"
	"github.com/kasuganosora/miniworld/server/store"
	"github.com/kasuganosora/miniworld/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []string
}

func (p *recordingPublisher) Publish(_ context.Context, channel, msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if channel == action.ChangesChannel {
		p.msgs = append(p.msgs, msg)
	}
	return nil
}

type failingAuditor struct{}

func (failingAuditor) Append(context.Context, audit.Entry) error {
	return errors.New("disk full")
}

type failingQuests struct{}

func (failingQuests) OnActionSuccess(context.Context, action.Request, []action.Change) error {
	return errors.New("quest file corrupt")
}

type fixture struct {
	proc    *action.Processor
	store   *store.Store
	audit   *audit.Service
	quests  *quest.Service
	metrics *metrics.Metrics
	pub     *recordingPublisher
}

func defaultPermissions(t *testing.T) action.Permissions {
	t.Helper()
	docs, err := config.LoadRoles("")
	require.NoError(t, err)
	perms, err := action.BuildPermissions(docs)
	require.NoError(t, err)
	return perms
}

func newFixture(t *testing.T, perms action.Permissions) *fixture {
	t.Helper()
	st := testutil.NewStore(t, world.DefaultChunkSize)
	aud, err := audit.New(st.AuditPath(), nil, nopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { aud.Stop(context.Background()) })
	m := metrics.New()
	qs := quest.NewService(st, aud, m, nopLogger())
	proc := action.NewProcessor(st, perms, qs, aud, m, nopLogger())
	pub := &recordingPublisher{}
	proc.SetPublisher(pub)
	return &fixture{proc: proc, store: st, audit: aud, quests: qs, metrics: m, pub: pub}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func (f *fixture) auditLines(t *testing.T) []audit.Entry {
	t.Helper()
	entries, err := audit.ReadEntries(f.store.AuditPath())
	require.NoError(t, err)
	return entries
}

func (f *fixture) setCell(t *testing.T, c world.Coord, p world.Pos, cell world.Cell) {
	t.Helper()
	ch, err := f.store.Chunks.Load(c.CX, c.CY)
	require.NoError(t, err)
	require.NoError(t, ch.ApplyCell(p.X, p.Y, cell))
	require.NoError(t, f.store.Chunks.Save(ch))
}

func (f *fixture) cell(t *testing.T, c world.Coord, p world.Pos) world.Cell {
	t.Helper()
	ch, err := f.store.Chunks.Load(c.CX, c.CY)
	require.NoError(t, err)
	cell, err := ch.CellAt(p.X, p.Y)
	require.NoError(t, err)
	return cell
}

func req(actor string, typ action.Type, c world.Coord, p world.Pos, tileName string, ts int64) action.Request {
	r := action.Request{Actor: actor, Type: typ, Chunk: c, Pos: p, ClientTS: ts}
	if tileName != "" {
		r.Payload = map[string]any{"tile": tileName}
	}
	return r
}

func requireCode(t *testing.T, err error, code action.Code) {
	t.Helper()
	require.Error(t, err)
	var ae *action.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, code, ae.Code, err.Error())
}

func TestProcess_PlaceRoad(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	c := world.Coord{CX: 20, CY: 20}
	p := world.Pos{X: 0, Y: 0}

	res, err := f.proc.Process(context.Background(), req("hero", action.PlaceTile, c, p, "ROAD", 1000))
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Changes, 1)
	ch := res.Changes[0]
	assert.Equal(t, tile.Grass, ch.Before.Base)
	assert.Equal(t, tile.Road, ch.After.Base)
	assert.Equal(t, c, ch.Chunk)

	assert.Equal(t, tile.Road, f.cell(t, c, p).Base)

	entries := f.auditLines(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "hero", entries[0].Actor)
	assert.Equal(t, "PLACE_TILE", entries[0].Action)
	assert.Equal(t, c, entries[0].Chunk)
	assert.Equal(t, "ROAD", entries[0].Payload["tile"])

	require.Len(t, f.pub.msgs, 1)
	var ev action.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(f.pub.msgs[0]), &ev))
	assert.Equal(t, "action", ev.Kind)
	assert.Equal(t, "hero", ev.Actor)
	require.Len(t, ev.Changes, 1)
	assert.Equal(t, tile.Road, ev.Changes[0].After.Base)

	assert.Contains(t, scrape(t, f.metrics), `miniworld_actions_total{action="PLACE_TILE",outcome="ok"} 1`)
}

func TestProcess_HouseOnWaterRejected(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	c := world.Coord{}
	p := world.Pos{X: 2, Y: 2}
	f.setCell(t, c, p, world.Cell{Base: tile.Water})

	_, err := f.proc.Process(context.Background(), req("mage", action.PlaceStructure, c, p, "HOUSE_BASE", 1000))
	requireCode(t, err, action.CodeInvalidPayload)
	assert.Equal(t, 400, action.CodeOf(err).Status())

	assert.Equal(t, tile.Water, f.cell(t, c, p).Base)
	assert.Empty(t, f.auditLines(t))
	assert.Empty(t, f.pub.msgs)

	// Wood floor first, then the house.
	_, err = f.proc.Process(context.Background(), req("mage", action.PlaceStructure, c, p, "WOODFLOOR", 2000))
	require.NoError(t, err)
	_, err = f.proc.Process(context.Background(), req("mage", action.PlaceStructure, c, p, "HOUSE_BASE", 3000))
	require.NoError(t, err)
	assert.Equal(t, tile.HouseBase, f.cell(t, c, p).Base)
}

func TestProcess_ActionNotAllowed(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	_, err := f.proc.Process(context.Background(), req("hero", action.PlaceStructure, world.Coord{}, world.Pos{}, "HOUSE_BASE", 1))
	requireCode(t, err, action.CodeForbidden)
	assert.Equal(t, 403, action.CodeOf(err).Status())
	assert.Empty(t, f.auditLines(t))

	_, found, err := f.store.Usage.Record("hero", string(action.PlaceStructure))
	require.NoError(t, err)
	assert.False(t, found, "rejection before the usage check charges nothing")
}

func TestProcess_QuestCompletion(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	c := world.Coord{CX: 40, CY: 40}
	require.NoError(t, f.quests.Save(ctx, []quest.Quest{{
		ID:     "two_roads",
		Title:  "Two roads",
		Giver:  "princess",
		Status: quest.StatusOpen,
		Requirements: []quest.Requirement{{
			ActionType:  action.PlaceTile,
			TargetTile:  tile.Road,
			Chunk:       c,
			XRange:      quest.DefaultRange,
			YRange:      quest.DefaultRange,
			TargetCount: 2,
			Layer:       quest.LayerBase,
		}},
	}}))

	_, err := f.proc.Process(ctx, req("hero", action.PlaceTile, c, world.Pos{X: 0, Y: 0}, "ROAD", 1000))
	require.NoError(t, err)
	qs, err := f.quests.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, quest.StatusInProgress, qs[0].Status)

	_, err = f.proc.Process(ctx, req("hero", action.PlaceTile, c, world.Pos{X: 1, Y: 0}, "ROAD", 2000))
	require.NoError(t, err)
	qs, err = f.quests.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, quest.StatusDone, qs[0].Status)

	entries := f.auditLines(t)
	require.Len(t, entries, 3)
	assert.Equal(t, "PLACE_TILE", entries[0].Action)
	assert.Equal(t, "PLACE_TILE", entries[1].Action)
	assert.Equal(t, quest.ActionQuestDone, entries[2].Action)
	assert.Equal(t, audit.SystemActor, entries[2].Actor)
	assert.Equal(t, "two_roads", entries[2].Payload["quest_id"])
}

func TestProcess_Validation(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	cases := []struct {
		name string
		req  action.Request
		code action.Code
	}{
		{"unknown actor", req("dragon", action.PlaceTile, world.Coord{}, world.Pos{}, "ROAD", 1), action.CodeUnknownActor},
		{"empty actor", req("", action.PlaceTile, world.Coord{}, world.Pos{}, "ROAD", 1), action.CodeUnknownActor},
		{"unknown type", req("hero", action.Type("DIG"), world.Coord{}, world.Pos{}, "", 1), action.CodeInvalidPayload},
		{"negative pos", req("hero", action.PlaceTile, world.Coord{}, world.Pos{X: -1}, "ROAD", 1), action.CodeInvalidPosition},
		{"out of bounds", req("hero", action.PlaceTile, world.Coord{}, world.Pos{X: 32}, "ROAD", 1), action.CodeInvalidPosition},
		{"missing tile", req("hero", action.PlaceTile, world.Coord{}, world.Pos{}, "", 1), action.CodeInvalidPayload},
		{"unknown tile", req("hero", action.PlaceTile, world.Coord{}, world.Pos{}, "LAVA", 1), action.CodeInvalidPayload},
		{"tile not whitelisted", req("hero", action.PlaceTile, world.Coord{}, world.Pos{}, "WATER", 1), action.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.proc.Process(ctx, tc.req)
			requireCode(t, err, tc.code)
		})
	}

	r := req("hero", action.PlaceTile, world.Coord{}, world.Pos{}, "", 1)
	r.Payload = map[string]any{"tile": 7}
	_, err := f.proc.Process(ctx, r)
	requireCode(t, err, action.CodeInvalidPayload)

	assert.Empty(t, f.auditLines(t))
	coords, err := f.store.Chunks.Coords()
	require.NoError(t, err)
	assert.Empty(t, coords, "no chunk written by rejected actions")
}

func TestProcess_NegativeClientTS(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))

	res, err := f.proc.Process(context.Background(), req("hero", action.PlaceTile, world.Coord{}, world.Pos{}, "ROAD", -5))
	require.NoError(t, err)
	assert.True(t, res.Success)

	rec, found, err := f.store.Usage.Record("hero", "PLACE_TILE")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, rec.Day)
	assert.Equal(t, int64(-1), *rec.Day, "timestamps before the epoch fall in the previous day")
	require.NotNil(t, rec.LastTS)
	assert.Equal(t, int64(-5), *rec.LastTS)
}

func TestProcess_Quota(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	c := world.Coord{CX: 3, CY: 3}

	// hero may plant 20 trees per day.
	for i := range 20 {
		_, err := f.proc.Process(ctx, req("hero", action.PlantTree, c, world.Pos{X: i, Y: 0}, "", int64(1000+i)))
		require.NoError(t, err, "plant %d", i)
	}
	_, err := f.proc.Process(ctx, req("hero", action.PlantTree, c, world.Pos{X: 20, Y: 0}, "", 2000))
	requireCode(t, err, action.CodeRateLimited)
	assert.Equal(t, 429, action.CodeOf(err).Status())
	assert.False(t, f.cell(t, c, world.Pos{X: 20, Y: 0}).HasDeco())

	// Next day the quota resets.
	_, err = f.proc.Process(ctx, req("hero", action.PlantTree, c, world.Pos{X: 20, Y: 0}, "", store.DayMillis+1))
	require.NoError(t, err)

	assert.Contains(t, scrape(t, f.metrics), `miniworld_actions_total{action="PLANT_TREE",outcome="rate_limited"} 1`)
}

func TestProcess_Cooldown(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	c := world.Coord{}
	for x := range 3 {
		f.setCell(t, c, world.Pos{X: x}, world.Cell{Base: tile.Grass, Deco: tile.Tree})
	}

	// swordsman: 30s cooldown on REMOVE_TILE.
	_, err := f.proc.Process(ctx, req("swordsman", action.RemoveTile, c, world.Pos{X: 0}, "", 10_000))
	require.NoError(t, err)
	_, err = f.proc.Process(ctx, req("swordsman", action.RemoveTile, c, world.Pos{X: 1}, "", 39_999))
	requireCode(t, err, action.CodeRateLimited)
	assert.Equal(t, tile.Tree, f.cell(t, c, world.Pos{X: 1}).Deco)

	_, err = f.proc.Process(ctx, req("swordsman", action.RemoveTile, c, world.Pos{X: 1}, "", 40_000))
	require.NoError(t, err)
	assert.False(t, f.cell(t, c, world.Pos{X: 1}).HasDeco())
}

func TestProcess_UsageChargedWhenRuleRejects(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	p := world.Pos{X: 5, Y: 5}

	_, err := f.proc.Process(ctx, req("hero", action.PlantTree, world.Coord{}, p, "", 1000))
	require.NoError(t, err)
	_, err = f.proc.Process(ctx, req("hero", action.PlantTree, world.Coord{}, p, "", 2000))
	requireCode(t, err, action.CodeInvalidPayload)

	rec, found, err := f.store.Usage.Record("hero", string(action.PlantTree))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, rec.Count)
	require.NotNil(t, rec.LastTS)
	assert.Equal(t, int64(2000), *rec.LastTS)
	assert.Len(t, f.auditLines(t), 1)
}

func TestProcess_ForbiddenRegion(t *testing.T) {
	docs, err := config.LoadRoles("")
	require.NoError(t, err)
	hero := docs["hero"]
	hero.ForbiddenRegions = []config.RegionDoc{{CX: 0, CY: 0, XRange: [2]int{10, 12}, YRange: [2]int{10, 12}}}
	docs["hero"] = hero
	perms, err := action.BuildPermissions(docs)
	require.NoError(t, err)

	f := newFixture(t, perms)
	ctx := context.Background()
	_, err = f.proc.Process(ctx, req("hero", action.PlaceTile, world.Coord{}, world.Pos{X: 11, Y: 12}, "ROAD", 1))
	requireCode(t, err, action.CodeForbidden)
	_, found, err := f.store.Usage.Record("hero", string(action.PlaceTile))
	require.NoError(t, err)
	assert.False(t, found, "region rejection charges nothing")
	assert.Empty(t, f.auditLines(t))

	_, err = f.proc.Process(ctx, req("hero", action.PlaceTile, world.Coord{CX: 1}, world.Pos{X: 11, Y: 12}, "ROAD", 1))
	require.NoError(t, err)
	_, err = f.proc.Process(ctx, req("hero", action.PlaceTile, world.Coord{}, world.Pos{X: 13, Y: 12}, "ROAD", 1))
	require.NoError(t, err)
}

func TestProcess_RemoveTile(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	c := world.Coord{}

	// Decoration goes first; the base stays.
	f.setCell(t, c, world.Pos{X: 0}, world.Cell{Base: tile.WoodFloor, Deco: tile.TreeSapling, Growth: world.StageOf(2)})
	res, err := f.proc.Process(ctx, req("thief", action.RemoveTile, c, world.Pos{X: 0}, "", 1000))
	require.NoError(t, err)
	after := res.Changes[0].After
	assert.Equal(t, tile.WoodFloor, after.Base)
	assert.Equal(t, tile.None, after.Deco)
	assert.False(t, after.Growth.Present())

	// Then the base returns to grass.
	res, err = f.proc.Process(ctx, req("thief", action.RemoveTile, c, world.Pos{X: 0}, "", 100_000))
	require.NoError(t, err)
	assert.Equal(t, tile.Grass, res.Changes[0].After.Base)

	// Bases outside the whitelist are refused.
	_, err = f.proc.Process(ctx, req("thief", action.RemoveTile, c, world.Pos{X: 1}, "", 200_000))
	requireCode(t, err, action.CodeForbidden)

	// Protected bases stay even when whitelisted.
	docs, err := config.LoadRoles("")
	require.NoError(t, err)
	sw := docs["swordsman"]
	sw.TileWhitelist["REMOVE_TILE"] = append(sw.TileWhitelist["REMOVE_TILE"], tile.HouseBase)
	docs["swordsman"] = sw
	perms, err := action.BuildPermissions(docs)
	require.NoError(t, err)
	g := newFixture(t, perms)
	g.setCell(t, c, world.Pos{X: 4}, world.Cell{Base: tile.HouseBase})
	_, err = g.proc.Process(ctx, req("swordsman", action.RemoveTile, c, world.Pos{X: 4}, "", 1))
	requireCode(t, err, action.CodeForbidden)
	assert.Equal(t, tile.HouseBase, g.cell(t, c, world.Pos{X: 4}).Base)
}

func TestProcess_WaterClearsDecoration(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	p := world.Pos{X: 7, Y: 7}

	_, err := f.proc.Process(ctx, req("hero", action.PlantTree, world.Coord{}, p, "", 1))
	require.NoError(t, err)
	res, err := f.proc.Process(ctx, req("mage", action.PlaceTile, world.Coord{}, p, "WATER", 2))
	require.NoError(t, err)
	after := res.Changes[0].After
	assert.Equal(t, tile.Water, after.Base)
	assert.Equal(t, tile.None, after.Deco)
	assert.False(t, after.Growth.Present())
	assert.Equal(t, tile.TreeSapling, res.Changes[0].Before.Deco)
}

func TestProcess_PlantTree(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()

	res, err := f.proc.Process(ctx, req("hero", action.PlantTree, world.Coord{}, world.Pos{X: 1, Y: 1}, "", 1))
	require.NoError(t, err)
	after := res.Changes[0].After
	assert.Equal(t, tile.TreeSapling, after.Deco)
	stage, ok := after.Growth.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, stage)

	f.setCell(t, world.Coord{}, world.Pos{X: 2, Y: 2}, world.Cell{Base: tile.Road})
	_, err = f.proc.Process(ctx, req("hero", action.PlantTree, world.Coord{}, world.Pos{X: 2, Y: 2}, "", 2))
	requireCode(t, err, action.CodeInvalidPayload)
}

func TestProcess_FarmTill(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()
	c := world.Coord{CX: 1}

	_, err := f.proc.Process(ctx, req("priest", action.FarmTill, c, world.Pos{}, "", 1))
	requireCode(t, err, action.CodeInvalidPayload)

	f.setCell(t, c, world.Pos{}, world.Cell{Base: tile.Soil})
	res, err := f.proc.Process(ctx, req("priest", action.FarmTill, c, world.Pos{}, "", 2))
	require.NoError(t, err)
	assert.Equal(t, tile.Soil, res.Changes[0].Before.Base)
	assert.Equal(t, tile.Farm, res.Changes[0].After.Base)
}

func TestProcess_NotAStructure(t *testing.T) {
	docs, err := config.LoadRoles("")
	require.NoError(t, err)
	m := docs["mage"]
	m.TileWhitelist["PLACE_STRUCTURE"] = append(m.TileWhitelist["PLACE_STRUCTURE"], tile.Road)
	docs["mage"] = m
	perms, err := action.BuildPermissions(docs)
	require.NoError(t, err)

	f := newFixture(t, perms)
	_, err = f.proc.Process(context.Background(), req("mage", action.PlaceStructure, world.Coord{}, world.Pos{}, "ROAD", 1))
	requireCode(t, err, action.CodeInvalidPayload)
}

func TestProcess_AuditFailureIsInternal(t *testing.T) {
	st := testutil.NewStore(t, 8)
	proc := action.NewProcessor(st, defaultPermissions(t), nil, failingAuditor{}, nil, nopLogger())
	_, err := proc.Process(context.Background(), req("hero", action.PlaceTile, world.Coord{}, world.Pos{}, "ROAD", 1))
	requireCode(t, err, action.CodeInternal)
	assert.Equal(t, 500, action.CodeOf(err).Status())
}

func TestProcess_QuestFailureKeepsResult(t *testing.T) {
	st := testutil.NewStore(t, 8)
	aud, err := audit.New(st.AuditPath(), nil, nopLogger())
	require.NoError(t, err)
	defer aud.Stop(context.Background())
	m := metrics.New()
	proc := action.NewProcessor(st, defaultPermissions(t), failingQuests{}, aud, m, nopLogger())

	res, err := proc.Process(context.Background(), req("hero", action.PlaceTile, world.Coord{}, world.Pos{}, "ROAD", 1))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, scrape(t, m), "miniworld_quest_progress_failures_total 1")
}

func TestProcess_ConcurrentCallsSerialize(t *testing.T) {
	f := newFixture(t, defaultPermissions(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.proc.Process(ctx, req("hero", action.PlaceTile, world.Coord{}, world.Pos{X: i, Y: 3}, "ROAD", int64(i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.auditLines(t), 16)
	ch, err := f.store.Chunks.Load(0, 0)
	require.NoError(t, err)
	for i := range 16 {
		cell, err := ch.CellAt(i, 3)
		require.NoError(t, err)
		assert.Equal(t, tile.Road, cell.Base)
	}
}

func TestBuildPermissions(t *testing.T) {
	perms := defaultPermissions(t)
	assert.Equal(t, []string{"hero", "mage", "priest", "princess", "swordsman", "thief"}, perms.Roles())

	hero, ok := perms.Lookup("hero")
	require.True(t, ok)
	assert.Equal(t, []action.Type{action.FarmTill, action.PlaceTile, action.PlantTree}, hero.AllowedList())
	require.NotNil(t, hero.Quota(action.PlantTree))
	assert.Equal(t, 20, *hero.Quota(action.PlantTree))
	assert.Nil(t, hero.Cooldown(action.PlantTree))
	// No FARM_TILL whitelist: every base passes the whitelist.
	assert.True(t, hero.WhitelistFor(action.FarmTill).Allows(tile.Water))

	_, err := action.BuildPermissions(map[string]config.RoleDoc{"x": {AllowedActions: []string{"FLY"}}})
	assert.Error(t, err)
	_, err = action.BuildPermissions(map[string]config.RoleDoc{"x": {DailyQuota: map[string]int{"PLACE_TILE": -1}}})
	assert.Error(t, err)
	_, err = action.BuildPermissions(map[string]config.RoleDoc{"x": {
		ForbiddenRegions: []config.RegionDoc{{XRange: [2]int{5, 1}, YRange: [2]int{0, 1}}},
	}})
	assert.Error(t, err)
}
