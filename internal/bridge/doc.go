// Package bridge turns one chat prompt into one run of the MLC command-line
// chat binary and streams the model's answer back as SSE frames. It is
// structured into small files by concern:
//
//   - sanitize.go: prompt cleanup for argv passing.
//   - supervisor.go: child process spawn, deadline, kill and reap.
//   - proc_unix.go / proc_other.go: process-group handling per platform.
//   - segmenter.go: marker-driven extraction of the answer region and tokenization.
//   - bridge.go: the per-request pipeline and the Service methods used by httpapi.
//   - admission.go: optional bound on concurrently running children.
//   - events.go, eventpub_*.go: lifecycle events and publishers.
//   - errors.go: error types and helpers (IsTimeout, IsSpawnFailure, IsTooBusy).
//   - metrics.go: Prometheus collectors for child processes and tokens.
//
// Every request owns its child exclusively; the only shared state is the
// immutable Config and the optional admission slots.
package bridge
