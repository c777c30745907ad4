// Package broker implements the pub/sub connection an agent group uses to receive
// per-agent messages and to publish on behalf of its agents.
//
// Design decisions:
//   - Pull, not push: subscriptions buffer inbound messages and the owner drains them
//     with FetchMessages, so dispatch order and latency are decided by the caller
//   - Transport neutral: payloads travel as JSON bytes on every implementation
//   - Context-first: every operation that may touch the network accepts a context
//   - Idempotent subscriptions: subscribing twice to a topic keeps one subscription
//   - Reconnection belongs to the transport client, not to the messager's owner
//
// Implementations:
//   - NATS: backed by github.com/nats-io/nats.go, one subscription per topic
//   - Local: an in-process bus, for tests and single-process deployments
//
// Example usage:
//
//	m := broker.NATS(natsx.Options{URL: "nats://localhost:4222"})
//	if err := m.Connect(ctx); err != nil {
//	    return err
//	}
//	if err := m.StartListening(ctx); err != nil {
//	    return err
//	}
//	if err := m.Subscribe(ctx, "experiments/e1/agents/a1/gather"); err != nil {
//	    return err
//	}
//
//	msgs, err := m.FetchMessages(ctx)
//	for _, msg := range msgs {
//	    // route msg.Topic, decode msg.Payload
//	}
package broker
