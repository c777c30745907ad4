package placement

import (
	"errors"
	"time"

	"github.com/casualjim/agentgroup"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// MaxStepsPerExecution bounds the history of one run execution. Longer runs continue as
// new with the same end time.
const MaxStepsPerExecution = 500

// activities is only used to name activity methods inside workflow code.
var activities *Activities

// GroupWorkflow performs one command against the group served on the workflow's task
// queue.
func GroupWorkflow(ctx workflow.Context, cmd Command) (Result, error) {
	if err := cmd.Validate(); err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidCommand", err)
	}
	log := workflow.GetLogger(ctx)
	log.Info("running group command", "op", cmd.Op)

	switch cmd.Op {
	case OpInitialize:
		return Result{}, workflow.ExecuteActivity(stepOptions(ctx), activities.Initialize).Get(ctx, nil)
	case OpStep:
		if err := workflow.ExecuteActivity(stepOptions(ctx), activities.Step).Get(ctx, nil); err != nil {
			return Result{}, err
		}
		return Result{Steps: 1}, nil
	case OpRun:
		return runGroup(ctx, cmd)
	case OpGather:
		var state []StateEntry
		if err := workflow.ExecuteActivity(quickOptions(ctx), activities.Gather, cmd.Key).Get(ctx, &state); err != nil {
			return Result{}, err
		}
		return Result{State: state}, nil
	case OpUpdate:
		req := UpdateRequest{AgentID: cmd.AgentID, Key: cmd.Key, Value: cmd.Value}
		return Result{}, workflow.ExecuteActivity(quickOptions(ctx), activities.Update, req).Get(ctx, nil)
	}
	return Result{}, errors.New("unreachable")
}

func runGroup(ctx workflow.Context, cmd Command) (Result, error) {
	clock := func() (int64, error) {
		var now int64
		err := workflow.ExecuteActivity(quickOptions(ctx), activities.Clock).Get(ctx, &now)
		return now, err
	}

	end := cmd.Until
	if end == 0 {
		start, err := clock()
		if err != nil {
			return Result{}, err
		}
		end = start + int64(cmd.Days)*agentgroup.SecondsPerDay
	}

	steps := cmd.Steps
	for executed := 0; ; executed++ {
		now, err := clock()
		if err != nil {
			return Result{Steps: steps}, err
		}
		if now >= end {
			return Result{Steps: steps}, nil
		}
		if executed == MaxStepsPerExecution {
			next := cmd
			next.Until = end
			next.Steps = steps
			return Result{}, workflow.NewContinueAsNewError(ctx, GroupWorkflow, next)
		}
		if err := workflow.ExecuteActivity(stepOptions(ctx), activities.Step).Get(ctx, nil); err != nil {
			return Result{Steps: steps}, err
		}
		steps++
	}
}

// stepOptions allow for slow agents. A failed step is not retried: agents have already
// acted on the simulator.
func stepOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    30 * time.Minute,
		ScheduleToStartTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

func quickOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    30 * time.Second,
		ScheduleToStartTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			MaximumInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})
}
