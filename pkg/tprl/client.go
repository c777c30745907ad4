package tprl

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"

	"github.com/casualjim/agentgroup/pkg/slogx"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// NewClient creates a lazy Temporal client. An empty hostPort falls back to
// TEMPORAL_ADDRESS and then to the SDK default.
func NewClient(hostPort, namespace string) (client.Client, error) {
	lg := slog.Default().With(slogx.LoggerName("agentgroup.temporal"))

	cl, err := client.NewLazyClient(client.Options{
		HostPort:  cmp.Or(hostPort, os.Getenv("TEMPORAL_ADDRESS"), client.DefaultHostPort),
		Namespace: namespace,
		Logger:    log.NewStructuredLogger(lg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	return cl, nil
}
