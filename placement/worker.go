package placement

import (
	"github.com/casualjim/agentgroup"
	"github.com/casualjim/agentgroup/config"
	"github.com/casualjim/agentgroup/pkg/tprl"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Dial creates a lazy client for the configured Temporal cluster.
func Dial(cfg config.Temporal) (client.Client, error) {
	return tprl.NewClient(cfg.HostPort, cfg.Namespace)
}

// NewWorker serves g on TaskQueue(prefix, g.ID()). The caller starts and stops the worker
// and still owns the group.
func NewWorker(c client.Client, prefix string, g *agentgroup.Group, options worker.Options) worker.Worker {
	w := worker.New(c, TaskQueue(prefix, g.ID()), options)
	Register(w, g)
	return w
}

// Registry is the registration surface shared by workers and test environments.
type Registry interface {
	RegisterWorkflow(w interface{})
	RegisterActivity(a interface{})
}

// Register adds GroupWorkflow and the activities of g to r.
func Register(r Registry, g *agentgroup.Group) {
	r.RegisterWorkflow(GroupWorkflow)
	r.RegisterActivity(NewActivities(g))
}
