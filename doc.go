/*
Package agentgroup runs a batch of simulated agents as one unit.

A Group owns a fixed set of agents that share a variant (citizens or institutions). It
injects the shared collaborators into every agent, binds them to the simulator, routes
broker messages addressed to them and advances them in lock step, appending a status
snapshot after every completed step.

# Basic Usage

	g, err := agentgroup.New(agents, config.FromEnv(), experimentID, api.Collaborators{
		LLM:       llm,
		Simulator: sim,
	})
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.Run(ctx, 3); err != nil {
		// the run stops at the first failed step
	}

# Messages

After Initialize every agent is subscribed to four topics:

	experiments/{experimentId}/agents/{agentId}/agent-chat
	experiments/{experimentId}/agents/{agentId}/user-chat
	experiments/{experimentId}/agents/{agentId}/user-survey
	experiments/{experimentId}/agents/{agentId}/gather

A background loop drains the broker every poll interval and hands each payload, decoded
into a map, to the matching handler of the addressed agent. Messages for malformed topics
or unknown agents are dropped. Handler errors are logged and never stop the loop.

# Snapshots

With snapshots enabled a group keeps four append-only logs under
<snapshot root>/<group id>: profile, dialog, status and survey. See package snapshot for
the record layouts and the Avro and SQLite backends.

# Concurrency

Agent steps run in parallel and Step returns only after every agent finished. A message
handler and a step for the same agent may run at the same time unless the group is built
with SerializeAgentAccess(true).
*/
package agentgroup
