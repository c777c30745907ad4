package broker

import (
	"context"
	"testing"

	"github.com/casualjim/agentgroup/pkg/natsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSBuffered(t *testing.T) {
	m, ok := NATSBuffered(natsx.Options{URL: "nats://127.0.0.1:4222"}, 3).(*natsMessager)
	require.True(t, ok)
	assert.Equal(t, 3, m.inbox.max)

	var dc DropCounter = m
	for i := 0; i < 5; i++ {
		m.inbox.push(Message{Topic: "t", Payload: []byte(`{}`)})
	}
	assert.Equal(t, uint64(2), dc.Dropped())

	got, err := m.FetchMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)

	def, ok := NATS(natsx.Options{}).(*natsMessager)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxBuffered, def.inbox.max)
}
