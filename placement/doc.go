// Package placement hosts agent groups on Temporal workers.
//
// A worker process builds its *agentgroup.Group and serves it with NewWorker on a task queue
// named after the group. Any other process can then drive the group through a Proxy, which
// implements agentgroup.Handle by executing GroupWorkflow on that queue. Runs are recorded
// step by step, so a run interrupted by a worker restart resumes from the last completed
// step.
package placement
