package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/agentgroup/pkg/uuidx"
	"github.com/go-openapi/strfmt"
)

// LocalBus is an in-process broker. Every messager created from the same bus sees the
// messages the others publish on topics it subscribed to.
type LocalBus struct {
	members *haxmap.Map[string, *LocalMessager]
}

// NewLocalBus creates an empty in-process broker.
func NewLocalBus() *LocalBus {
	return &LocalBus{members: haxmap.New[string, *LocalMessager]()}
}

// Local returns a messager on its own private bus.
func Local() *LocalMessager {
	return NewLocalBus().Messager()
}

// Messager creates a new, disconnected member of the bus.
func (b *LocalBus) Messager() *LocalMessager {
	return b.BufferedMessager(DefaultMaxBuffered)
}

// BufferedMessager creates a member that buffers at most maxBuffered undrained messages.
// A non-positive limit selects DefaultMaxBuffered.
func (b *LocalBus) BufferedMessager(maxBuffered int) *LocalMessager {
	m := &LocalMessager{
		id:            uuidx.NewString(),
		bus:           b,
		subscriptions: haxmap.New[string, struct{}](),
		inbox:         newInbox(maxBuffered),
	}
	b.members.Set(m.id, m)
	return m
}

func (b *LocalBus) deliver(topic string, payload []byte) {
	now := strfmt.DateTime(time.Now())
	b.members.ForEach(func(_ string, m *LocalMessager) bool {
		m.receive(Message{Topic: topic, Payload: payload, ReceivedAt: now})
		return true
	})
}

var (
	_ Messager    = (*LocalMessager)(nil)
	_ DropCounter = (*LocalMessager)(nil)
)

// LocalMessager is a member of a LocalBus.
type LocalMessager struct {
	id            string
	bus           *LocalBus
	connected     atomic.Bool
	listening     atomic.Bool
	closed        atomic.Bool
	subscriptions *haxmap.Map[string, struct{}]
	inbox         *inbox
	mu            sync.Mutex
	subscribeLog  []string
}

func (m *LocalMessager) Connect(ctx context.Context) error {
	if m.closed.Load() {
		return ErrNotConnected
	}
	m.connected.Store(true)
	return nil
}

func (m *LocalMessager) IsConnected() bool {
	return m.connected.Load()
}

// Disconnect simulates a broker outage: messages published while disconnected are lost.
func (m *LocalMessager) Disconnect() {
	m.connected.Store(false)
}

func (m *LocalMessager) StartListening(ctx context.Context) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	m.listening.Store(true)
	return nil
}

func (m *LocalMessager) Subscribe(ctx context.Context, topic string) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	if _, loaded := m.subscriptions.GetOrSet(topic, struct{}{}); loaded {
		return nil
	}
	m.mu.Lock()
	m.subscribeLog = append(m.subscribeLog, topic)
	m.mu.Unlock()
	return nil
}

// Subscriptions returns the topics subscribed so far, in subscription order.
func (m *LocalMessager) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subscribeLog...)
}

func (m *LocalMessager) FetchMessages(ctx context.Context) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.inbox.drain(), nil
}

func (m *LocalMessager) Publish(ctx context.Context, topic string, payload any) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	b, err := encodePayload(payload)
	if err != nil {
		return err
	}
	m.bus.deliver(topic, b)
	return nil
}

// Dropped reports how many inbound messages were discarded because the inbox was full.
func (m *LocalMessager) Dropped() uint64 {
	return m.inbox.droppedCount()
}

func (m *LocalMessager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.connected.Store(false)
	m.listening.Store(false)
	m.bus.members.Del(m.id)
	return nil
}

func (m *LocalMessager) receive(msg Message) {
	if !m.connected.Load() || !m.listening.Load() {
		return
	}
	if _, ok := m.subscriptions.Get(msg.Topic); !ok {
		return
	}
	m.inbox.push(msg)
}
