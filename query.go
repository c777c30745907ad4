package agentgroup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/agentgroup/pkg/slogx"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Gather reads one state field from every agent. The result is keyed by agent id in the
// order the agents were given to New.
func (g *Group) Gather(ctx context.Context, key string) (*orderedmap.OrderedMap[string, any], error) {
	g.logger.DebugContext(ctx, "gathering state from agents", slog.String("key", key))
	out := orderedmap.New[string, any]()
	for _, agent := range g.agents {
		unlock := g.lockAgent(agent.ID())
		v, err := agent.State(ctx, key)
		unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to gather %s from agent %s: %w", key, agent.ID(), err)
		}
		out.Set(agent.ID(), v)
	}
	return out, nil
}

// Update replaces one state field of an owned agent.
func (g *Group) Update(ctx context.Context, agentID, key string, value any) error {
	agent, ok := g.registry.Get(agentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	g.logger.DebugContext(ctx, "updating agent state", slogx.AgentID(agentID), slog.String("key", key))

	unlock := g.lockAgent(agentID)
	defer unlock()
	if err := agent.SetState(ctx, key, value); err != nil {
		return fmt.Errorf("failed to update %s of agent %s: %w", key, agentID, err)
	}
	return nil
}
