// Package bus provides the in-process message transport between the
// orchestrator and the stage workers. Requests are published to bounded
// per-stage topics consumed by worker runners; every worker reply flows
// back through a single response channel pumped into the orchestrator.
package bus
