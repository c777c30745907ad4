package agentgroup

import (
	"errors"
	"log/slog"
	"time"

	"github.com/casualjim/agentgroup/broker"
	"github.com/casualjim/agentgroup/snapshot"
	"github.com/fogfish/opts"
)

var (
	// WithPollInterval sets how long the dispatch loop sleeps between broker polls.
	WithPollInterval = opts.ForName[Group, time.Duration]("pollInterval")

	// WithLogger replaces the default logger. The group id is added to it.
	WithLogger = opts.ForName[Group, *slog.Logger]("logger")

	// SerializeAgentAccess makes steps, message handlers and state access for the same
	// agent mutually exclusive. Off by default, in which case a handler may observe an agent
	// in the middle of a step.
	SerializeAgentAccess = opts.ForName[Group, bool]("serialize")
)

// WithMessager uses the given broker connection instead of one built from the config.
// The group takes ownership and closes it on Close.
func WithMessager(m broker.Messager) opts.Option[Group] {
	return opts.Type[Group](func(g *Group) error {
		if m == nil {
			return errors.New("messager must not be nil")
		}
		g.messager = m
		return nil
	})
}

// WithSnapshotWriter uses the given writer for the snapshot logs and enables snapshots
// regardless of the config.
func WithSnapshotWriter(w snapshot.Writer) opts.Option[Group] {
	return opts.Type[Group](func(g *Group) error {
		if w == nil {
			return errors.New("snapshot writer must not be nil")
		}
		g.snapshots = w
		return nil
	})
}
