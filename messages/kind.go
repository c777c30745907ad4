package messages

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a topic suffix names no known message kind.
var ErrUnknownKind = errors.New("unknown message kind")

// Kind is the type of an inbound message, taken from the last topic segment.
type Kind int

const (
	KindAgentChat Kind = iota
	KindUserChat
	KindUserSurvey
	KindGather

	kindCount
)

var kindNames = [kindCount]string{
	KindAgentChat:  "agent-chat",
	KindUserChat:   "user-chat",
	KindUserSurvey: "user-survey",
	KindGather:     "gather",
}

// Kinds returns every message kind in subscription order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := range kindCount {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// ParseKind maps a topic suffix to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
