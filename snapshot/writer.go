package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/casualjim/agentgroup/api"
)

var (
	// ErrNotInitialized is returned when appending before Init or after Close.
	ErrNotInitialized = errors.New("snapshot logs are not initialized")
	// ErrVariantMismatch is returned when a status record does not match the group variant.
	ErrVariantMismatch = errors.New("status record variant does not match the snapshot variant")
)

// Writer owns the snapshot logs of one group.
type Writer interface {
	api.SnapshotSink

	// Init creates all logs, empty, and writes the given profiles. Calling it again is a
	// no-op.
	Init(ctx context.Context, variant api.Variant, profiles []Profile) error

	// AppendStatus appends one batch of status records.
	AppendStatus(ctx context.Context, records []Status) error

	Close() error
}

func checkVariant(variant api.Variant, records []Status) error {
	for _, r := range records {
		if r.Variant() != variant {
			return fmt.Errorf("%w: %s record for agent %s in a %s group", ErrVariantMismatch, r.Variant(), r.AgentID(), variant)
		}
	}
	return nil
}
