package slogx

import (
	"log/slog"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

const (
	// KeyLoggerName is the key for the logger name.
	KeyLoggerName = "logger"
	// KeyGroupID is the key for the agent group identifier.
	KeyGroupID = "group_id"
	// KeyAgentID is the key for an agent identifier.
	KeyAgentID = "agent_id"
	// KeyTopic is the key for a broker topic.
	KeyTopic = "topic"
)

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// GroupID tags a record with the group that produced it.
func GroupID(id string) slog.Attr {
	return slog.String(KeyGroupID, id)
}

// AgentID tags a record with the agent it concerns.
func AgentID(id string) slog.Attr {
	return slog.String(KeyAgentID, id)
}

// Topic tags a record with a broker topic.
func Topic(topic string) slog.Attr {
	return slog.String(KeyTopic, topic)
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value interface{ String() string }) slog.Attr {
	return slog.String(key, value.String())
}
