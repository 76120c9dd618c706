// Package daemon runs the soundframe background process: the session
// store, the stage bus and workers, the saga orchestrator, the result
// publisher, and the HTTP API. It enforces single-instance execution via
// a lock file and sweeps expired sessions on an interval.
package daemon
