// Package messages defines the inbound message vocabulary of an agent group: the four
// message kinds, the topic layout that addresses one agent, and payload decoding.
//
// Design decisions:
//   - Closed kinds: Kind is an enum, not a free-form string, so routing tables can be
//     checked for completeness
//   - One topic shape: experiments/{experimentId}/agents/{agentId}/{kind}
//   - Structured payloads: raw bytes are UTF-8 JSON objects and are decoded before dispatch
//
// Example usage:
//
//	topic := messages.Topic{ExperimentID: "exp", AgentID: "a1", Kind: messages.KindGather}
//	broker.Subscribe(ctx, topic.String())
//
//	parsed, err := messages.ParseTopic(msg.Topic)
//	if err != nil {
//	    // skip the message
//	}
//	payload, err := messages.DecodePayload(msg.Payload)
package messages
