package agentgroup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/agentgroup/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

// SecondsPerDay is the length of a simulated day.
const SecondsPerDay = 24 * 60 * 60

// Step initializes the group if needed and advances every agent once, concurrently. It
// returns after all agents finished. When any agent fails the others see a cancelled
// context, the first error is returned and no status is saved.
func (g *Group) Step(ctx context.Context) error {
	if err := g.Initialize(ctx); err != nil {
		return err
	}

	eg, ectx := errgroup.WithContext(ctx)
	for _, agent := range g.agents {
		eg.Go(func() error {
			unlock := g.lockAgent(agent.ID())
			defer unlock()
			if err := agent.Step(ectx); err != nil {
				return fmt.Errorf("agent %s failed to step: %w", agent.ID(), err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return g.SaveStatus(ctx)
}

// Run steps the group until the simulator clock has advanced by the given number of days.
// The clock is read before every step; pacing is the time the slowest agent takes.
func (g *Group) Run(ctx context.Context, days int) error {
	if err := g.run(ctx, days); err != nil {
		g.logger.ErrorContext(ctx, "agent group run failed", slog.Int("days", days), slogx.Error(err))
		return err
	}
	return nil
}

func (g *Group) run(ctx context.Context, days int) error {
	start, err := g.simulator.Time(ctx)
	if err != nil {
		return fmt.Errorf("failed to read simulator time: %w", err)
	}
	end := start + int64(days)*SecondsPerDay

	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		now, err := g.simulator.Time(ctx)
		if err != nil {
			return fmt.Errorf("failed to read simulator time: %w", err)
		}
		if now >= end {
			g.logger.DebugContext(ctx, "agent group run finished", slog.Int("steps", steps))
			return nil
		}
		if err := g.Step(ctx); err != nil {
			return fmt.Errorf("step %d failed: %w", steps+1, err)
		}
	}
}

// Clock returns the simulator time in seconds since the simulation started.
func (g *Group) Clock(ctx context.Context) (int64, error) {
	return g.simulator.Time(ctx)
}
