package placement

import "fmt"

// Op selects what GroupWorkflow does with the group.
type Op string

const (
	OpInitialize Op = "initialize"
	OpStep       Op = "step"
	OpRun        Op = "run"
	OpGather     Op = "gather"
	OpUpdate     Op = "update"
)

// Command is the input of GroupWorkflow.
type Command struct {
	Op   Op  `json:"op"`
	Days int `json:"days,omitempty"`
	// Until is the absolute simulator time a run ends at. It is filled in by the workflow
	// and carried over when a long run continues as new.
	Until int64 `json:"until,omitempty"`
	// Steps counts the steps taken by earlier executions of the same run.
	Steps int `json:"steps,omitempty"`

	AgentID string `json:"agent_id,omitempty"`
	Key     string `json:"key,omitempty"`
	Value   any    `json:"value,omitempty"`
}

func (c Command) Validate() error {
	switch c.Op {
	case OpInitialize, OpStep:
	case OpRun:
		if c.Days < 0 {
			return fmt.Errorf("days must not be negative")
		}
	case OpGather:
		if c.Key == "" {
			return fmt.Errorf("gather needs a key")
		}
	case OpUpdate:
		if c.AgentID == "" || c.Key == "" {
			return fmt.Errorf("update needs an agent id and a key")
		}
	default:
		return fmt.Errorf("unknown op %q", c.Op)
	}
	return nil
}

// Result is the output of GroupWorkflow.
type Result struct {
	Steps int          `json:"steps,omitempty"`
	State []StateEntry `json:"state,omitempty"`
}

// StateEntry is the value of a state field for one agent. Gather results are a list so
// agent order survives serialization.
type StateEntry struct {
	AgentID string `json:"agent_id"`
	Value   any    `json:"value"`
}

// UpdateRequest is the input of the Update activity.
type UpdateRequest struct {
	AgentID string `json:"agent_id"`
	Key     string `json:"key"`
	Value   any    `json:"value"`
}

// TaskQueue is the queue a group is served on.
func TaskQueue(prefix, groupID string) string {
	if prefix == "" {
		return groupID
	}
	return prefix + "-" + groupID
}
