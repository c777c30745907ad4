package api

import (
	"context"
	"fmt"
)

// Variant identifies which kind of simulated actor an agent is. It is chosen when the
// agent is constructed and never changes afterwards.
type Variant int

const (
	// VariantCitizen is a person-like agent tracked by position and needs.
	VariantCitizen Variant = iota
	// VariantInstitution is an organization-like agent tracked by economic fields.
	VariantInstitution
)

func (v Variant) String() string {
	switch v {
	case VariantCitizen:
		return "citizen"
	case VariantInstitution:
		return "institution"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Agent is the capability set a group consumes from every simulated actor it owns.
//
// Design decisions:
//   - Opaque: the group never looks at agent internals beyond these methods
//   - Injected collaborators: Configure is called once, at group construction, before any
//     other method
//   - Context-first: every call that may wait on the network takes a context
//
// Implementations must tolerate Bind being called again after a failed group
// initialization, and must be safe for concurrent use when the owning group does not
// serialize agent access: a message handler and Step may run at the same time.
type Agent interface {
	// ID returns the stable unique identifier of the agent.
	ID() string

	// Variant reports whether this is a citizen or an institution.
	Variant() Variant

	// Configure hands the shared collaborators to the agent.
	Configure(Collaborators)

	// Bind attaches the agent to the external simulator.
	Bind(ctx context.Context) error

	// Step advances the agent by one simulation step.
	Step(ctx context.Context) error

	HandleAgentChat(ctx context.Context, payload map[string]any) error
	HandleUserChat(ctx context.Context, payload map[string]any) error
	HandleUserSurvey(ctx context.Context, payload map[string]any) error
	HandleGather(ctx context.Context, payload map[string]any) error

	// State returns the current value of a named state field.
	State(ctx context.Context, key string) (any, error)

	// SetState replaces the value of a named state field.
	SetState(ctx context.Context, key string, value any) error

	// ExportProfile returns the agent's profile record. Only citizens are asked for one.
	ExportProfile(ctx context.Context) (map[string]any, error)
}

// Simulator is the clock of the external simulator.
type Simulator interface {
	// Time returns the simulated seconds since the simulation started.
	Time(ctx context.Context) (int64, error)
	// Day returns the current simulated day.
	Day(ctx context.Context) (int, error)
	// SecondOfDay returns the simulated seconds elapsed in the current day.
	SecondOfDay(ctx context.Context) (int, error)
}

// LLMClient is the language-model client handed to agents. The group never calls it.
type LLMClient any

// EconomyClient is the economic-state service handed to agents. The group never calls it.
type EconomyClient any

// Publisher lets agents send messages over the group's broker connection.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// SnapshotSink lets agents append to the group's dialog and survey logs.
type SnapshotSink interface {
	AppendDialog(ctx context.Context, dialogs ...Dialog) error
	AppendSurvey(ctx context.Context, surveys ...Survey) error
}

// Collaborators are the shared references injected into every agent of a group.
// Economy and Snapshots may be nil.
type Collaborators struct {
	ExperimentID string
	LLM          LLMClient
	Simulator    Simulator
	Economy      EconomyClient
	Messager     Publisher
	Snapshots    SnapshotSink
}
