package quest

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/tile"
	"github.com/kasuganosora/miniworld/server/game/world"
)

// Status is the lifecycle state of a quest: OPEN -> IN_PROGRESS -> DONE.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func (s Status) valid() bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusDone
}

// Layer selects which field of a changed cell a requirement inspects.
type Layer string

const (
	LayerBase Layer = "base"
	LayerDeco Layer = "deco"
)

// Range is an inclusive [lo, hi] interval.
type Range [2]int

func (r Range) Contains(v int) bool { return r[0] <= v && v <= r[1] }

// DefaultRange covers a whole chunk of the default size.
var DefaultRange = Range{0, world.DefaultChunkSize - 1}

// Requirement is one measurable condition of a quest.
type Requirement struct {
	ActionType  action.Type `json:"action_type"`
	TargetTile  tile.Type   `json:"target_tile"`
	Chunk       world.Coord `json:"chunk"`
	XRange      Range       `json:"x_range"`
	YRange      Range       `json:"y_range"`
	TargetCount int         `json:"target_count"`
	Progress    int         `json:"progress"`
	Layer       Layer       `json:"layer"`
}

// UnmarshalJSON fills the optional fields with their defaults.
func (r *Requirement) UnmarshalJSON(b []byte) error {
	type plain Requirement
	v := plain{XRange: DefaultRange, YRange: DefaultRange, Layer: LayerBase}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Requirement(v)
	return nil
}

// Validate checks the requirement's invariants.
func (r Requirement) Validate() error {
	if !r.ActionType.Valid() {
		return fmt.Errorf("unknown action_type %q", r.ActionType)
	}
	if r.Layer != LayerBase && r.Layer != LayerDeco {
		return fmt.Errorf("layer must be base or deco, got %q", r.Layer)
	}
	if r.TargetCount < 1 {
		return fmt.Errorf("target_count must be >= 1, got %d", r.TargetCount)
	}
	if r.Progress < 0 || r.Progress > r.TargetCount {
		return fmt.Errorf("progress %d outside [0,%d]", r.Progress, r.TargetCount)
	}
	if r.XRange[0] > r.XRange[1] || r.YRange[0] > r.YRange[1] {
		return fmt.Errorf("range start after end")
	}
	return nil
}

// Matches reports whether change, produced by an action of type t, falls in
// the requirement's action type, chunk and ranges.
func (r Requirement) Matches(c action.Change, t action.Type) bool {
	return t == r.ActionType &&
		c.Chunk == r.Chunk &&
		r.XRange.Contains(c.Pos.X) &&
		r.YRange.Contains(c.Pos.Y)
}

// Apply advances progress by one if the change satisfies the target tile and
// the requirement is not yet complete. It reports whether progress moved.
func (r *Requirement) Apply(c action.Change) bool {
	if r.TargetTile != tile.None && r.layerValue(c.After) != r.TargetTile {
		return false
	}
	if r.Progress >= r.TargetCount {
		return false
	}
	r.Progress++
	return true
}

func (r Requirement) layerValue(cell world.Cell) tile.Type {
	if r.Layer == LayerDeco {
		return cell.Deco
	}
	return cell.Base
}

// Completed reports whether the target count is reached.
func (r Requirement) Completed() bool { return r.Progress >= r.TargetCount }

// Remaining is the number of matching changes still needed.
func (r Requirement) Remaining() int { return max(r.TargetCount-r.Progress, 0) }

// Quest is a world-building task tracked across actions.
type Quest struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Desc         string        `json:"desc"`
	Giver        string        `json:"giver"`
	Assignee     []string      `json:"assignee"`
	Status       Status        `json:"status"`
	Requirements []Requirement `json:"requirements"`
	Rewards      []string      `json:"rewards"`
	CreatedAt    int64         `json:"created_at"`
	UpdatedAt    int64         `json:"updated_at"`
}

// Completed reports whether every requirement is complete.
func (q Quest) Completed() bool {
	for _, r := range q.Requirements {
		if !r.Completed() {
			return false
		}
	}
	return true
}

// Remaining sums the remaining counts across requirements.
func (q Quest) Remaining() int {
	n := 0
	for _, r := range q.Requirements {
		n += r.Remaining()
	}
	return n
}

// Validate checks the quest and its requirements.
func (q Quest) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("quest without id")
	}
	if !q.Status.valid() {
		return fmt.Errorf("quest %s: unknown status %q", q.ID, q.Status)
	}
	for i, r := range q.Requirements {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("quest %s requirement %d: %w", q.ID, i, err)
		}
	}
	done := q.Status == StatusDone
	if done && !q.Completed() {
		return fmt.Errorf("quest %s: DONE with incomplete requirements", q.ID)
	}
	if !done && len(q.Requirements) > 0 && q.Completed() {
		return fmt.Errorf("quest %s: %s but every requirement is complete", q.ID, q.Status)
	}
	return nil
}
