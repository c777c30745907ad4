package agentgroup

import (
	"context"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Handle addresses a group wherever it runs. *Group is the in-process handle; package
// placement provides one for groups hosted by Temporal workers.
type Handle interface {
	ID() string
	Initialize(ctx context.Context) error
	Step(ctx context.Context) error
	Run(ctx context.Context, days int) error
	Gather(ctx context.Context, key string) (*orderedmap.OrderedMap[string, any], error)
	Update(ctx context.Context, agentID, key string, value any) error
	Close() error
}

var _ Handle = (*Group)(nil)
