package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/agentgroup/pkg/natsx"
	"github.com/casualjim/agentgroup/pkg/slogx"
	"github.com/go-openapi/strfmt"
	"github.com/nats-io/nats.go"
)

var (
	_ Messager    = (*natsMessager)(nil)
	_ DropCounter = (*natsMessager)(nil)
)

type natsMessager struct {
	options   natsx.Options
	extra     []nats.Option
	mu        sync.Mutex
	client    *nats.Conn
	owned     bool
	listening atomic.Bool
	subs      *haxmap.Map[string, *nats.Subscription]
	inbox     *inbox
}

// NATS creates a messager that dials the server on Connect.
func NATS(o natsx.Options, extra ...nats.Option) Messager {
	return NATSBuffered(o, DefaultMaxBuffered, extra...)
}

// NATSBuffered is NATS with a custom bound on undrained messages. A non-positive limit
// selects DefaultMaxBuffered.
func NATSBuffered(o natsx.Options, maxBuffered int, extra ...nats.Option) Messager {
	return &natsMessager{
		options: o,
		extra:   extra,
		owned:   true,
		subs:    haxmap.New[string, *nats.Subscription](),
		inbox:   newInbox(maxBuffered),
	}
}

// NATSConn wraps an existing connection. Close unsubscribes but leaves the connection open.
func NATSConn(client *nats.Conn) Messager {
	return &natsMessager{
		client: client,
		subs:   haxmap.New[string, *nats.Subscription](),
		inbox:  newInbox(DefaultMaxBuffered),
	}
}

func (m *natsMessager) conn() *nats.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

func (m *natsMessager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil && !m.client.IsClosed() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	nc, err := natsx.NewClient(m.options, m.extra...)
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	m.client = nc
	m.owned = true
	return nil
}

func (m *natsMessager) IsConnected() bool {
	nc := m.conn()
	return nc != nil && nc.IsConnected()
}

func (m *natsMessager) StartListening(ctx context.Context) error {
	if m.conn() == nil {
		return ErrNotConnected
	}
	m.listening.Store(true)
	return nil
}

func (m *natsMessager) Subscribe(ctx context.Context, topic string) error {
	nc := m.conn()
	if nc == nil || nc.IsClosed() {
		return ErrNotConnected
	}
	if _, ok := m.subs.Get(topic); ok {
		return nil
	}

	sub, err := nc.Subscribe(topic, func(msg *nats.Msg) {
		if !m.listening.Load() {
			return
		}
		m.inbox.push(Message{
			Topic:      msg.Subject,
			Payload:    msg.Data,
			ReceivedAt: strfmt.DateTime(time.Now()),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	if _, loaded := m.subs.GetOrSet(topic, sub); loaded {
		// lost a race with a concurrent Subscribe for the same topic
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe", slogx.Error(err), slogx.Topic(topic))
		}
		return nil
	}
	if err := nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush subscription to %s: %w", topic, err)
	}
	return nil
}

func (m *natsMessager) FetchMessages(ctx context.Context) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.inbox.drain(), nil
}

func (m *natsMessager) Publish(ctx context.Context, topic string, payload any) error {
	nc := m.conn()
	if nc == nil || nc.IsClosed() {
		return ErrNotConnected
	}
	b, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return nc.Publish(topic, b)
}

// Dropped reports how many inbound messages were discarded because the inbox was full.
func (m *natsMessager) Dropped() uint64 {
	return m.inbox.droppedCount()
}

func (m *natsMessager) Close() error {
	m.listening.Store(false)
	var topics []string
	m.subs.ForEach(func(topic string, _ *nats.Subscription) bool {
		topics = append(topics, topic)
		return true
	})
	closed := m.closedConn()
	for _, topic := range topics {
		sub, ok := m.subs.Get(topic)
		if !ok {
			continue
		}
		m.subs.Del(topic)
		if closed {
			continue
		}
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe", slogx.Error(err), slogx.Topic(topic))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil && m.owned {
		m.client.Close()
	}
	return nil
}

func (m *natsMessager) closedConn() bool {
	nc := m.conn()
	return nc == nil || nc.IsClosed()
}
