package messages

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTopic is returned when a topic does not follow the agent topic layout.
var ErrMalformedTopic = errors.New("malformed topic")

const (
	experimentsSegment = "experiments"
	agentsSegment      = "agents"
)

// Topic addresses one message kind of one agent within an experiment.
type Topic struct {
	ExperimentID string
	AgentID      string
	Kind         Kind
}

// String renders the topic as experiments/{experimentId}/agents/{agentId}/{kind}.
func (t Topic) String() string {
	return strings.Join([]string{experimentsSegment, t.ExperimentID, agentsSegment, t.AgentID, t.Kind.String()}, "/")
}

// AgentTopics returns the topics of every kind for a single agent, in Kinds order.
func AgentTopics(experimentID, agentID string) []Topic {
	topics := make([]Topic, 0, kindCount)
	for _, k := range Kinds() {
		topics = append(topics, Topic{ExperimentID: experimentID, AgentID: agentID, Kind: k})
	}
	return topics
}

// ParseTopic splits a topic string into its experiment, agent and kind. Leading and
// trailing slashes are ignored.
func ParseTopic(s string) (Topic, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 5 || parts[0] != experimentsSegment || parts[2] != agentsSegment {
		return Topic{}, fmt.Errorf("%w: %q", ErrMalformedTopic, s)
	}
	if parts[1] == "" || parts[3] == "" {
		return Topic{}, fmt.Errorf("%w: %q", ErrMalformedTopic, s)
	}
	kind, err := ParseKind(parts[4])
	if err != nil {
		return Topic{}, err
	}
	return Topic{ExperimentID: parts[1], AgentID: parts[3], Kind: kind}, nil
}
