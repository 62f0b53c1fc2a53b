// Package metrics defines the sinks that observe a simulation run. A Sink
// records task completions; optional recorder interfaces receive replan
// outcomes, actor snapshots and the final run summary. Sinks are built from
// configuration through Registry and combined with NewMultiSink when more
// than one is configured. Implementations live in infra/metrics, infra/mqtt
// and infra/ws.
package metrics
