package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kasuganosora/miniworld/server/api/ws"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/quest"
	"github.com/kasuganosora/miniworld/server/game/tile"
	"github.com/kasuganosora/miniworld/server/game/world"
	"github.com/kasuganosora/miniworld/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ts := NewTestServer(t)
	resp := ts.Get(t, "/health")
	var body map[string]string
	ReadJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestRoadQuestLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.Quests.Save(ctx, []quest.Quest{{
		ID:       "short_road",
		Title:    "Short road",
		Giver:    "princess",
		Assignee: []string{"hero"},
		Status:   quest.StatusOpen,
		Requirements: []quest.Requirement{{
			ActionType:  action.PlaceTile,
			TargetTile:  tile.Road,
			Chunk:       world.Coord{CX: 0, CY: 0},
			XRange:      quest.Range{0, 15},
			YRange:      quest.Range{0, 0},
			TargetCount: 2,
			Layer:       quest.LayerBase,
		}},
	}}))

	for i, traceID := range []string{"trace-road-1", "trace-road-2"} {
		resp := ts.PostJSON(t, "/api/world/action",
			ActionBody("hero", action.PlaceTile, 0, 0, i, 0, "ROAD", int64(1000+i)),
			"X-Trace-ID", traceID)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var res action.Result
		ReadJSON(t, resp, &res)
		require.True(t, res.Success)
	}

	var body struct {
		Quests []quest.Quest `json:"quests"`
	}
	ReadJSON(t, ts.Get(t, "/api/world/quests"), &body)
	require.Len(t, body.Quests, 1)
	assert.Equal(t, quest.StatusDone, body.Quests[0].Status)
	assert.Equal(t, 2, body.Quests[0].Requirements[0].Progress)

	// The mirror flushes on stop; the JSONL log stays the source of truth.
	ts.Audit.Stop(ctx)
	var rows []model.AuditLog
	require.NoError(t, ts.DB.Order("id").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.Equal(t, "PLACE_TILE", rows[0].Action)
	assert.Equal(t, "trace-road-1", rows[0].TraceID)
	assert.Equal(t, "trace-road-2", rows[1].TraceID)
	assert.Equal(t, "QUEST_DONE", rows[2].Action)
}

func TestSeedQuestsAdvanceOnFreshServer(t *testing.T) {
	ts := NewTestServer(t)

	resp := ts.PostJSON(t, "/api/world/action", ActionBody("hero", action.PlaceTile, 0, 0, 1, 1, "ROAD", 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res action.Result
	ReadJSON(t, resp, &res)
	require.True(t, res.Success)

	var body struct {
		Quests []quest.Quest `json:"quests"`
	}
	ReadJSON(t, ts.Get(t, "/api/world/quests"), &body)
	require.Len(t, body.Quests, 3)
	road := body.Quests[0]
	require.Equal(t, "quest_main_road", road.ID)
	assert.Equal(t, quest.StatusInProgress, road.Status)
	assert.Equal(t, 1, road.Requirements[0].Progress)
}

func TestChangeStream(t *testing.T) {
	ts := NewTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	rd := bufio.NewReader(stream.Body)

	nextData := func() string {
		t.Helper()
		for {
			line, err := rd.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: "); ok && data != "{}" {
				return data
			}
		}
	}

	resp := ts.PostJSON(t, "/api/world/action", ActionBody("hero", action.PlantTree, 2, 2, 4, 4, "", 10))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var ev action.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(nextData()), &ev))
	assert.Equal(t, "action", ev.Kind)
	assert.Equal(t, "PLANT_TREE", ev.Action)
	require.Len(t, ev.Changes, 1)
	assert.Equal(t, tile.TreeSapling, ev.Changes[0].After.Deco)

	resp = ts.PostJSON(t, "/api/world/tick", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, json.Unmarshal([]byte(nextData()), &ev))
	assert.Equal(t, "tick", ev.Kind)
	require.Len(t, ev.Changes, 1)
	stage, ok := ev.Changes[0].After.Growth.Get()
	assert.True(t, ok)
	assert.Equal(t, 1, stage)
}

func TestScheduledTickMaturesSapling(t *testing.T) {
	ts := NewTestServer(t)

	resp := ts.PostJSON(t, "/api/world/action", ActionBody("priest", action.PlantTree, 0, 0, 3, 3, "", 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, ts.Sched.AddTicker("world_tick", 20*time.Millisecond, func(ctx context.Context) error {
		_, err := ts.Ticker.Run(ctx)
		return err
	}))

	assert.Eventually(t, func() bool {
		ch, err := ts.Store.Chunks.Load(0, 0)
		if err != nil {
			return false
		}
		cell, err := ch.CellAt(3, 3)
		return err == nil && cell.Deco == tile.Tree
	}, 3*time.Second, 20*time.Millisecond)

	var sched struct {
		Tasks []struct {
			Name string `json:"name"`
			Runs int64  `json:"runs"`
		} `json:"tasks"`
	}
	ReadJSON(t, ts.Get(t, "/api/admin/scheduler", "X-Admin-Key", AdminKey), &sched)
	require.Len(t, sched.Tasks, 1)
	assert.Equal(t, "world_tick", sched.Tasks[0].Name)
	assert.GreaterOrEqual(t, sched.Tasks[0].Runs, int64(1))
}

func TestChatSeesWorldAndQuests(t *testing.T) {
	ts := NewTestServer(t)

	resp := ts.PostJSON(t, "/api/chat/simulate", map[string]any{"content": "What next?", "roles": []string{"princess"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Replies []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"replies"`
	}
	ReadJSON(t, resp, &out)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, "princess", out.Replies[0].Role)
	assert.Contains(t, out.Replies[0].Text, "Lay the main road(status:OPEN, remaining:40)")
	assert.Contains(t, out.Replies[0].Text, "royal capital outskirts")
}

func TestWebSocketActionEditsWorld(t *testing.T) {
	ts := NewTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var pkt ws.Packet
	require.NoError(t, conn.ReadJSON(&pkt))
	require.Equal(t, ws.TypeWelcome, pkt.Type)

	payload, err := json.Marshal(ActionBody("princess", action.PlaceTile, 1, 1, 6, 7, "WOODFLOOR", 50))
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Packet{Seq: 1, Type: ws.TypeAction, Payload: payload}))

	for pkt.Type != ws.TypeActionResult {
		pkt = ws.Packet{}
		require.NoError(t, conn.ReadJSON(&pkt))
		require.NotEqual(t, ws.TypeError, pkt.Type, string(pkt.Payload))
	}

	ch, err := ts.Store.Chunks.Load(1, 1)
	require.NoError(t, err)
	cell, err := ch.CellAt(6, 7)
	require.NoError(t, err)
	assert.Equal(t, tile.WoodFloor, cell.Base)
}
