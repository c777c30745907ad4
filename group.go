package agentgroup

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/casualjim/agentgroup/api"
	"github.com/casualjim/agentgroup/broker"
	"github.com/casualjim/agentgroup/config"
	"github.com/casualjim/agentgroup/internal/registry"
	"github.com/casualjim/agentgroup/messages"
	"github.com/casualjim/agentgroup/pkg/jsonx"
	"github.com/casualjim/agentgroup/pkg/natsx"
	"github.com/casualjim/agentgroup/pkg/slogx"
	"github.com/casualjim/agentgroup/pkg/uuidx"
	"github.com/casualjim/agentgroup/snapshot"
	"github.com/fogfish/opts"
	"github.com/hamba/avro/v2/ocf"
)

var (
	ErrNoAgents       = errors.New("agent group needs at least one agent")
	ErrMixedVariants  = errors.New("agents of a group must share one variant")
	ErrDuplicateAgent = errors.New("duplicate agent id")
	ErrUnknownAgent   = errors.New("agent is not owned by this group")
	ErrNoSimulator    = errors.New("agent group needs a simulator")
	ErrClosed         = errors.New("agent group is closed")
)

// Group owns a fixed batch of agents of one variant.
type Group struct {
	id           string
	experimentID string
	variant      api.Variant
	agents       []api.Agent
	registry     registry.Registry[api.Agent]
	simulator    api.Simulator
	messager     broker.Messager
	snapshots    snapshot.Writer
	snapshotDir  string

	pollInterval time.Duration
	logger       *slog.Logger
	serialize    bool
	agentLocks   map[string]*sync.Mutex

	mu             sync.Mutex
	initialized    atomic.Bool
	closed         atomic.Bool
	cancelDispatch context.CancelFunc
	dispatchDone   chan struct{}

	// owned by the dispatch goroutine
	dropped uint64
}

// New validates the agents, builds the broker connection and snapshot writer and hands
// the shared collaborators to every agent. Apart from creating the snapshot directory it
// performs no I/O: nothing is bound or connected until Initialize.
func New(agents []api.Agent, cfg config.Config, experimentID string, collab api.Collaborators, options ...opts.Option[Group]) (*Group, error) {
	variant, err := validateAgents(agents)
	if err != nil {
		return nil, err
	}
	if collab.Simulator == nil {
		return nil, ErrNoSimulator
	}

	g := &Group{
		id:           uuidx.NewString(),
		experimentID: experimentID,
		variant:      variant,
		agents:       slices.Clone(agents),
		registry:     registry.New[api.Agent](),
		simulator:    collab.Simulator,
		pollInterval: time.Duration(cfg.Dispatch.PollInterval),
	}
	if err := opts.Apply(g, options); err != nil {
		return nil, err
	}
	if g.pollInterval <= 0 {
		g.pollInterval = config.DefaultPollInterval
	}
	if g.logger == nil {
		g.logger = slog.Default().With(slogx.LoggerName("agentgroup"))
	}
	g.logger = g.logger.With(slogx.GroupID(g.id))

	if g.messager == nil {
		g.messager = messagerFor(cfg.Broker)
	}
	if g.snapshots == nil && cfg.Snapshot.Enabled {
		g.snapshotDir = filepath.Join(cfg.Snapshot.Root, g.id)
		if err := os.MkdirAll(g.snapshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		g.snapshots = g.writerFor(cfg.Snapshot)
	}

	if g.serialize {
		g.agentLocks = make(map[string]*sync.Mutex, len(g.agents))
		for _, agent := range g.agents {
			g.agentLocks[agent.ID()] = &sync.Mutex{}
		}
	}
	g.registry.Rebuild(g.ownedAgents())

	collab.ExperimentID = experimentID
	collab.Messager = g.messager
	collab.Snapshots = nil
	if g.snapshots != nil {
		collab.Snapshots = g.snapshots
	}
	for _, agent := range g.agents {
		agent.Configure(collab)
	}
	return g, nil
}

func validateAgents(agents []api.Agent) (api.Variant, error) {
	if len(agents) == 0 {
		return 0, ErrNoAgents
	}
	variant := agents[0].Variant()
	seen := make(map[string]struct{}, len(agents))
	for _, agent := range agents {
		if agent.Variant() != variant {
			return 0, fmt.Errorf("%w: agent %s is a %s, expected %s", ErrMixedVariants, agent.ID(), agent.Variant(), variant)
		}
		if _, ok := seen[agent.ID()]; ok {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateAgent, agent.ID())
		}
		seen[agent.ID()] = struct{}{}
	}
	return variant, nil
}

func messagerFor(cfg config.Broker) broker.Messager {
	if cfg.Backend == config.BrokerLocal {
		return broker.NewLocalBus().BufferedMessager(cfg.MaxBuffered)
	}
	return broker.NATSBuffered(natsx.Options{
		URL:      cfg.URL,
		Name:     cfg.Name,
		Username: cfg.Username,
		Password: cfg.Password,
	}, cfg.MaxBuffered)
}

func (g *Group) writerFor(cfg config.Snapshot) snapshot.Writer {
	if cfg.Backend == config.SnapshotSQLite {
		return snapshot.NewSQLite(g.snapshotDir)
	}
	return snapshot.NewAvro(g.snapshotDir, ocf.CodecName(cfg.Codec), map[string]string{
		"agentgroup.group_id":      g.id,
		"agentgroup.experiment_id": g.experimentID,
	})
}

func (g *Group) ownedAgents() iter.Seq2[string, api.Agent] {
	return func(yield func(string, api.Agent) bool) {
		for _, agent := range g.agents {
			if !yield(agent.ID(), agent) {
				return
			}
		}
	}
}

// Initialize binds every agent to the simulator, subscribes them to their topics, creates
// the snapshot logs and starts the dispatch loop. It runs at most once successfully;
// later calls return immediately.
//
// On failure the group stays uninitialized: the dispatch loop is not running and the
// snapshot logs are closed. Agents that were already bound stay bound, so a retry binds
// them again. The broker connection is kept and a retry reuses its subscriptions.
func (g *Group) Initialize(ctx context.Context) error {
	if g.closed.Load() {
		return ErrClosed
	}
	if g.initialized.Load() {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed.Load() {
		return ErrClosed
	}
	if g.initialized.Load() {
		return nil
	}
	if err := g.initialize(ctx); err != nil {
		g.logger.ErrorContext(ctx, "agent group initialization failed", slogx.Error(err))
		return err
	}
	return nil
}

func (g *Group) initialize(ctx context.Context) error {

	g.logger.DebugContext(ctx, "binding agents to the simulator", slog.Int("agents", len(g.agents)))
	for _, agent := range g.agents {
		if err := agent.Bind(ctx); err != nil {
			return fmt.Errorf("failed to bind agent %s: %w", agent.ID(), err)
		}
	}
	g.registry.Rebuild(g.ownedAgents())

	if err := g.subscribe(ctx); err != nil {
		return err
	}

	if err := g.initSnapshots(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g.cancelDispatch = cancel
	g.dispatchDone = make(chan struct{})
	go g.dispatchLoop(loopCtx, g.dispatchDone)

	g.initialized.Store(true)
	g.logger.DebugContext(ctx, "agent group initialized")
	return nil
}

func (g *Group) subscribe(ctx context.Context) error {
	if err := g.messager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to the broker: %w", err)
	}
	if !g.messager.IsConnected() {
		g.logger.WarnContext(ctx, "broker connection is down, agents are not subscribed")
		return nil
	}
	if err := g.messager.StartListening(ctx); err != nil {
		return fmt.Errorf("failed to start listening: %w", err)
	}
	for _, agent := range g.agents {
		for _, topic := range messages.AgentTopics(g.experimentID, agent.ID()) {
			if err := g.messager.Subscribe(ctx, topic.String()); err != nil {
				return fmt.Errorf("failed to subscribe agent %s: %w", agent.ID(), err)
			}
		}
	}
	return nil
}

func (g *Group) initSnapshots(ctx context.Context) error {
	if g.snapshots == nil {
		return nil
	}
	var profiles []snapshot.Profile
	if g.variant == api.VariantCitizen {
		profiles = make([]snapshot.Profile, 0, len(g.agents))
		for _, agent := range g.agents {
			p, err := exportProfile(ctx, agent)
			if err != nil {
				return err
			}
			profiles = append(profiles, p)
		}
	}
	if err := g.snapshots.Init(ctx, g.variant, profiles); err != nil {
		_ = g.snapshots.Close()
		return fmt.Errorf("failed to create snapshot logs: %w", err)
	}
	return nil
}

func exportProfile(ctx context.Context, agent api.Agent) (snapshot.Profile, error) {
	raw, err := agent.ExportProfile(ctx)
	if err != nil {
		return snapshot.Profile{}, fmt.Errorf("failed to export profile of agent %s: %w", agent.ID(), err)
	}
	fields := maps.Clone(raw)
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields["id"] = agent.ID()
	p, err := jsonx.Convert[snapshot.Profile](fields)
	if err != nil {
		return snapshot.Profile{}, fmt.Errorf("invalid profile of agent %s: %w", agent.ID(), err)
	}
	return p, nil
}

// Close stops the dispatch loop and waits for it to exit, then closes the snapshot logs
// and the broker connection. It is safe to call more than once.
func (g *Group) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed.Swap(true) {
		return nil
	}
	if g.cancelDispatch != nil {
		g.cancelDispatch()
		<-g.dispatchDone
		g.cancelDispatch = nil
	}

	var errs []error
	if g.snapshots != nil {
		errs = append(errs, g.snapshots.Close())
	}
	errs = append(errs, g.messager.Close())
	return errors.Join(errs...)
}

// lockAgent returns the unlock function for the agent's mutex, or a no-op when agent
// access is not serialized.
func (g *Group) lockAgent(id string) func() {
	mu, ok := g.agentLocks[id]
	if !ok {
		return func() {}
	}
	mu.Lock()
	return mu.Unlock
}

func (g *Group) ID() string { return g.id }

func (g *Group) ExperimentID() string { return g.experimentID }

func (g *Group) Variant() api.Variant { return g.variant }

// SnapshotDir is the directory of the snapshot logs. It is empty when the group was
// built with its own writer or without snapshots.
func (g *Group) SnapshotDir() string { return g.snapshotDir }

func (g *Group) Initialized() bool { return g.initialized.Load() }

// Agents returns the owned agents in construction order.
func (g *Group) Agents() []api.Agent { return slices.Clone(g.agents) }

// AgentIDs returns the ids currently routable by the dispatch loop, sorted.
func (g *Group) AgentIDs() []string { return g.registry.Keys() }
