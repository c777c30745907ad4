package agentgroup

import (
	"context"
	"log/slog"
	"time"

	"github.com/casualjim/agentgroup/api"
	"github.com/casualjim/agentgroup/broker"
	"github.com/casualjim/agentgroup/messages"
	"github.com/casualjim/agentgroup/pkg/slogx"
)

type handlerFunc func(api.Agent, context.Context, map[string]any) error

// handlers maps every message kind to the agent capability that consumes it.
var handlers = map[messages.Kind]handlerFunc{
	messages.KindAgentChat:  api.Agent.HandleAgentChat,
	messages.KindUserChat:   api.Agent.HandleUserChat,
	messages.KindUserSurvey: api.Agent.HandleUserSurvey,
	messages.KindGather:     api.Agent.HandleGather,
}

// dispatchLoop drains the broker until ctx is cancelled. Messages of one cycle are handled
// one at a time in fetch order.
func (g *Group) dispatchLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	g.logger.DebugContext(ctx, "starting message dispatch", slog.Duration("poll_interval", g.pollInterval))

	timer := time.NewTimer(g.pollInterval)
	defer timer.Stop()
	for {
		g.dispatchCycle(ctx)

		timer.Reset(g.pollInterval)
		select {
		case <-ctx.Done():
			g.logger.Debug("message dispatch stopped")
			return
		case <-timer.C:
		}
	}
}

func (g *Group) dispatchCycle(ctx context.Context) {
	if !g.messager.IsConnected() {
		g.logger.WarnContext(ctx, "messager is not connected, messages may be delayed")
	}

	msgs, err := g.messager.FetchMessages(ctx)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.WarnContext(ctx, "failed to fetch messages", slogx.Error(err))
		}
		return
	}
	if len(msgs) > 0 {
		g.logger.DebugContext(ctx, "received messages", slog.Int("count", len(msgs)))
	}
	g.reportDropped(ctx)
	for _, msg := range msgs {
		g.dispatch(ctx, msg)
	}
}

func (g *Group) dispatch(ctx context.Context, msg broker.Message) {
	topic, err := messages.ParseTopic(msg.Topic)
	if err != nil {
		g.logger.WarnContext(ctx, "skipping message", slogx.Topic(msg.Topic), slogx.Error(err))
		return
	}
	agent, ok := g.registry.Get(topic.AgentID)
	if !ok {
		g.logger.DebugContext(ctx, "skipping message for unknown agent", slogx.Topic(msg.Topic))
		return
	}
	payload, err := messages.DecodePayload(msg.Payload)
	if err != nil {
		g.logger.WarnContext(ctx, "skipping undecodable message", slogx.Topic(msg.Topic), slogx.Error(err))
		return
	}

	handle := handlers[topic.Kind]
	unlock := g.lockAgent(agent.ID())
	err = handle(agent, ctx, payload)
	unlock()
	if err != nil {
		g.logger.ErrorContext(ctx, "message handler failed",
			slogx.AgentID(agent.ID()),
			slogx.Stringer("kind", topic.Kind),
			slogx.Error(err),
		)
	}
}

// reportDropped warns when the messager discarded messages since the previous cycle.
func (g *Group) reportDropped(ctx context.Context) {
	dc, ok := g.messager.(broker.DropCounter)
	if !ok {
		return
	}
	total := dc.Dropped()
	if total <= g.dropped {
		return
	}
	g.logger.WarnContext(ctx, "messages dropped, inbox is full",
		slog.Uint64("dropped", total-g.dropped), slog.Uint64("total_dropped", total))
	g.dropped = total
}
