package placement

import (
	"context"
	"errors"
	"fmt"

	"github.com/casualjim/agentgroup"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Activities expose one hosted group to GroupWorkflow.
type Activities struct {
	group *agentgroup.Group
}

func NewActivities(g *agentgroup.Group) *Activities {
	return &Activities{group: g}
}

func (a *Activities) Initialize(ctx context.Context) error {
	activity.GetLogger(ctx).Debug("initializing agent group", "group_id", a.group.ID())
	return a.group.Initialize(ctx)
}

func (a *Activities) Step(ctx context.Context) error {
	return a.group.Step(ctx)
}

// Clock reads the simulator time through the group.
func (a *Activities) Clock(ctx context.Context) (int64, error) {
	return a.group.Clock(ctx)
}

func (a *Activities) Gather(ctx context.Context, key string) ([]StateEntry, error) {
	values, err := a.group.Gather(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]StateEntry, 0, values.Len())
	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, StateEntry{AgentID: pair.Key, Value: pair.Value})
	}
	return out, nil
}

func (a *Activities) Update(ctx context.Context, req UpdateRequest) error {
	if err := a.group.Update(ctx, req.AgentID, req.Key, req.Value); err != nil {
		if errors.Is(err, agentgroup.ErrUnknownAgent) {
			return temporal.NewNonRetryableApplicationError(err.Error(), "UnknownAgent", err)
		}
		return fmt.Errorf("failed to update agent %s: %w", req.AgentID, err)
	}
	return nil
}
