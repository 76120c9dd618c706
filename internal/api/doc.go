// Package api defines the transport-facing session DTOs and the service
// layer that backs the daemon's HTTP endpoints and the CLI.
package api
