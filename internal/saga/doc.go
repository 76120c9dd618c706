// Package saga implements the session orchestrator. Each active session
// is driven by one goroutine that dispatches stage requests over the bus,
// waits on a private mailbox for the matching responses, rehabilitates
// and records each payload, and finalizes the session as completed or
// failed. Intra-session handling is strictly serialized; sessions run
// concurrently without bound.
package saga
