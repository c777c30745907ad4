package placement

import (
	"context"
	"fmt"

	"github.com/casualjim/agentgroup"
	"github.com/casualjim/agentgroup/pkg/uuidx"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

var _ agentgroup.Handle = (*Proxy)(nil)

// Proxy drives a group hosted by a worker. Every call is one GroupWorkflow execution and
// blocks until it completes.
type Proxy struct {
	client    client.Client
	groupID   string
	taskQueue string
}

func NewProxy(c client.Client, prefix, groupID string) *Proxy {
	return &Proxy{
		client:    c,
		groupID:   groupID,
		taskQueue: TaskQueue(prefix, groupID),
	}
}

func (p *Proxy) ID() string { return p.groupID }

func (p *Proxy) execute(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.Validate(); err != nil {
		return Result{}, err
	}
	run, err := p.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                    fmt.Sprintf("%s-%s-%s", p.groupID, cmd.Op, uuidx.NewString()),
		TaskQueue:             p.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, GroupWorkflow, cmd)
	if err != nil {
		return Result{}, fmt.Errorf("failed to start %s on group %s: %w", cmd.Op, p.groupID, err)
	}
	var res Result
	if err := run.Get(ctx, &res); err != nil {
		return Result{}, fmt.Errorf("%s on group %s failed: %w", cmd.Op, p.groupID, err)
	}
	return res, nil
}

func (p *Proxy) Initialize(ctx context.Context) error {
	_, err := p.execute(ctx, Command{Op: OpInitialize})
	return err
}

func (p *Proxy) Step(ctx context.Context) error {
	_, err := p.execute(ctx, Command{Op: OpStep})
	return err
}

func (p *Proxy) Run(ctx context.Context, days int) error {
	_, err := p.execute(ctx, Command{Op: OpRun, Days: days})
	return err
}

func (p *Proxy) Gather(ctx context.Context, key string) (*orderedmap.OrderedMap[string, any], error) {
	res, err := p.execute(ctx, Command{Op: OpGather, Key: key})
	if err != nil {
		return nil, err
	}
	out := orderedmap.New[string, any]()
	for _, entry := range res.State {
		out.Set(entry.AgentID, entry.Value)
	}
	return out, nil
}

func (p *Proxy) Update(ctx context.Context, agentID, key string, value any) error {
	_, err := p.execute(ctx, Command{Op: OpUpdate, AgentID: agentID, Key: key, Value: value})
	return err
}

// Close is a no-op: the hosted group belongs to its worker and the client to the caller.
func (p *Proxy) Close() error { return nil }
