package agentgroup

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/agentgroup/api"
	"github.com/casualjim/agentgroup/broker"
	"github.com/casualjim/agentgroup/config"
	"github.com/casualjim/agentgroup/messages"
	"github.com/fogfish/opts"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testExperiment = "exp-1"

type handledMessage struct {
	kind    messages.Kind
	payload map[string]any
}

// fakeAgent records every call the group makes and flags overlapping steps and handlers.
type fakeAgent struct {
	id      string
	variant api.Variant

	bindErr   error
	stepErr   error
	handleErr error
	stateErrs map[string]error
	stepDelay time.Duration
	busyDelay time.Duration
	onStep    func()

	mu         sync.Mutex
	collab     api.Collaborators
	configured int
	binds      int
	steps      int
	handled    []handledMessage
	state      map[string]any
	profile    map[string]any

	active     atomic.Int32
	overlapped atomic.Bool
}

func newCitizen(id string) *fakeAgent {
	return &fakeAgent{
		id:      id,
		variant: api.VariantCitizen,
		state: map[string]any{
			"position": map[string]any{
				"longlat_position": map[string]any{"longitude": 116.39, "latitude": 39.9},
				"aoi_position":     map[string]any{"aoi_id": 500000001},
			},
			"needs":        map[string]any{"hungry": 0.2, "tired": 0.5, "safe": 0.9, "social": 0.4},
			"current_step": map[string]any{"intention": "work", "type": "trip"},
		},
		profile: map[string]any{"name": "Lin " + id, "gender": "female", "age": 34, "occupation": "nurse", "income": 5200},
	}
}

func newInstitution(id string) *fakeAgent {
	return &fakeAgent{
		id:      id,
		variant: api.VariantInstitution,
		state: map[string]any{
			"type":            6,
			"nominal_gdp":     []any{1.5e6, 1.6e6},
			"real_gdp":        []float64{1.2e6},
			"unemployment":    0.05,
			"wages":           []any{},
			"prices":          []any{9.5},
			"inventory":       12,
			"price":           9.5,
			"interest_rate":   0.03,
			"bracket_cutoffs": []any{0, 1000},
			"bracket_rates":   []any{0.1, 0.2},
			"employees":       []string{"a1", "a2"},
			"customers":       nil,
		},
	}
}

func (a *fakeAgent) enter() func() {
	if a.active.Add(1) > 1 {
		a.overlapped.Store(true)
	}
	if a.busyDelay > 0 {
		time.Sleep(a.busyDelay)
	}
	return func() { a.active.Add(-1) }
}

func (a *fakeAgent) ID() string           { return a.id }
func (a *fakeAgent) Variant() api.Variant { return a.variant }

func (a *fakeAgent) Configure(c api.Collaborators) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.collab = c
	a.configured++
}

func (a *fakeAgent) Bind(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.binds++
	return a.bindErr
}

func (a *fakeAgent) Step(ctx context.Context) error {
	defer a.enter()()
	if a.stepDelay > 0 {
		select {
		case <-time.After(a.stepDelay):
		case <-ctx.Done():
		}
	}
	if a.onStep != nil {
		a.onStep()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.steps++
	return a.stepErr
}

func (a *fakeAgent) handle(kind messages.Kind, payload map[string]any) error {
	defer a.enter()()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handled = append(a.handled, handledMessage{kind: kind, payload: payload})
	return a.handleErr
}

func (a *fakeAgent) HandleAgentChat(ctx context.Context, p map[string]any) error {
	return a.handle(messages.KindAgentChat, p)
}

func (a *fakeAgent) HandleUserChat(ctx context.Context, p map[string]any) error {
	return a.handle(messages.KindUserChat, p)
}

func (a *fakeAgent) HandleUserSurvey(ctx context.Context, p map[string]any) error {
	return a.handle(messages.KindUserSurvey, p)
}

func (a *fakeAgent) HandleGather(ctx context.Context, p map[string]any) error {
	return a.handle(messages.KindGather, p)
}

func (a *fakeAgent) State(ctx context.Context, key string) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.stateErrs[key]; err != nil {
		return nil, err
	}
	return a.state[key], nil
}

func (a *fakeAgent) SetState(ctx context.Context, key string, value any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state[key] = value
	return nil
}

func (a *fakeAgent) ExportProfile(ctx context.Context) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile, nil
}

func (a *fakeAgent) Handled() []handledMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]handledMessage(nil), a.handled...)
}

func (a *fakeAgent) Steps() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.steps
}

func (a *fakeAgent) Binds() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.binds
}

func (a *fakeAgent) setBindErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bindErr = err
}

// mockAgent is a testify mock for call-order expectations.
type mockAgent struct {
	mock.Mock
	id string
}

func (m *mockAgent) ID() string           { return m.id }
func (m *mockAgent) Variant() api.Variant { return api.VariantCitizen }

func (m *mockAgent) Configure(c api.Collaborators) { m.Called(c) }

func (m *mockAgent) Bind(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockAgent) Step(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockAgent) HandleAgentChat(ctx context.Context, p map[string]any) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockAgent) HandleUserChat(ctx context.Context, p map[string]any) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockAgent) HandleUserSurvey(ctx context.Context, p map[string]any) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockAgent) HandleGather(ctx context.Context, p map[string]any) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockAgent) State(ctx context.Context, key string) (any, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}

func (m *mockAgent) SetState(ctx context.Context, key string, value any) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockAgent) ExportProfile(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(map[string]any)
	return p, args.Error(1)
}

// fakeSimulator is a clock that only moves when told to.
type fakeSimulator struct {
	mu        sync.Mutex
	now       int64
	day       int
	second    int
	timeErr   error
	timeCalls int
}

func (s *fakeSimulator) Time(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeCalls++
	return s.now, s.timeErr
}

func (s *fakeSimulator) Day(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day, nil
}

func (s *fakeSimulator) SecondOfDay(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.second, nil
}

func (s *fakeSimulator) advance(seconds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now += seconds
	s.day = int(s.now / SecondsPerDay)
	s.second = int(s.now % SecondsPerDay)
}

func (s *fakeSimulator) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

type testEnv struct {
	bus      *broker.LocalBus
	messager *broker.LocalMessager
	peer     *broker.LocalMessager
	sim      *fakeSimulator
	cfg      config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	bus := broker.NewLocalBus()
	peer := bus.Messager()
	require.NoError(t, peer.Connect(context.Background()))
	t.Cleanup(func() { _ = peer.Close() })

	cfg := config.Default()
	cfg.Broker.Backend = config.BrokerLocal
	return &testEnv{
		bus:      bus,
		messager: bus.Messager(),
		peer:     peer,
		sim:      &fakeSimulator{},
		cfg:      cfg,
	}
}

func (e *testEnv) withSnapshots(t *testing.T) *testEnv {
	e.cfg.Snapshot.Enabled = true
	e.cfg.Snapshot.Root = t.TempDir()
	return e
}

func (e *testEnv) newGroup(t *testing.T, agents []api.Agent, options ...opts.Option[Group]) *Group {
	t.Helper()
	g, err := e.build(agents, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func (e *testEnv) build(agents []api.Agent, options ...opts.Option[Group]) (*Group, error) {
	options = append([]opts.Option[Group]{WithMessager(e.messager), WithPollInterval(10 * time.Millisecond)}, options...)
	return New(agents, e.cfg, testExperiment, api.Collaborators{LLM: "llm", Simulator: e.sim}, options...)
}

func (e *testEnv) publish(t *testing.T, agentID string, kind messages.Kind, payload any) {
	t.Helper()
	topic := messages.Topic{ExperimentID: testExperiment, AgentID: agentID, Kind: kind}
	require.NoError(t, e.peer.Publish(context.Background(), topic.String(), payload))
}

func agentsOf(fakes ...*fakeAgent) []api.Agent {
	out := make([]api.Agent, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}

// flakySubscriber fails one Subscribe call, counted from 1, and delegates everything else.
type flakySubscriber struct {
	*broker.LocalMessager
	failAt int
	err    error

	mu    sync.Mutex
	calls int
}

func (f *flakySubscriber) Subscribe(ctx context.Context, topic string) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls == f.failAt
	f.mu.Unlock()
	if fail {
		return f.err
	}
	return f.LocalMessager.Subscribe(ctx, topic)
}

// logBuffer collects log output from any goroutine.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *logBuffer) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(b, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
