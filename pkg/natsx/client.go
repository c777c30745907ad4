package natsx

import (
	"cmp"
	"log/slog"
	"os"

	"github.com/casualjim/agentgroup/pkg/slogx"
	"github.com/nats-io/nats.go"
)

// DefaultName is the client name reported to the NATS server.
const DefaultName = "agentgroup"

// Options configures a NATS connection.
type Options struct {
	// URL of the server. Falls back to NATS_URL, then nats.DefaultURL.
	URL      string
	Name     string
	Username string
	Password string
}

// NewClient connects to a NATS server. Reconnection is left to the nats.go client,
// which keeps retrying forever and buffers publishes while disconnected; state changes
// are logged through slog.
func NewClient(o Options, extra ...nats.Option) (*nats.Conn, error) {
	url := cmp.Or(o.URL, os.Getenv("NATS_URL"), nats.DefaultURL)
	lg := slog.Default().With(slogx.LoggerName("agentgroup.nats"))

	opts := []nats.Option{
		nats.Name(cmp.Or(o.Name, DefaultName)),
		nats.Compression(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				lg.Warn("disconnected from nats", slogx.Error(err))
				return
			}
			lg.Info("disconnected from nats")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lg.Info("reconnected to nats", slog.String("url", nc.ConnectedUrl()))
		}),
	}
	if o.Username != "" {
		opts = append(opts, nats.UserInfo(o.Username, o.Password))
	}
	opts = append(opts, extra...)
	return nats.Connect(url, opts...)
}
