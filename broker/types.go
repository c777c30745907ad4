package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
)

// ErrNotConnected is returned by operations that need a live connection.
var ErrNotConnected = errors.New("messager is not connected")

// DefaultMaxBuffered bounds the number of undrained inbound messages a messager keeps.
// Messages arriving while the buffer is full are dropped and counted.
const DefaultMaxBuffered = 10_000

// DropCounter is implemented by messagers that count inbound messages dropped on a full
// buffer.
type DropCounter interface {
	Dropped() uint64
}

// Message is an inbound message drained from a messager.
type Message struct {
	Topic      string
	Payload    []byte
	ReceivedAt strfmt.DateTime
}

// Messager is the broker connection owned by an agent group.
type Messager interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	// StartListening enables buffering of messages for subscribed topics.
	StartListening(ctx context.Context) error
	Subscribe(ctx context.Context, topic string) error
	// FetchMessages returns and removes every buffered message, oldest first.
	FetchMessages(ctx context.Context) ([]Message, error)
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		return b, nil
	}
}
