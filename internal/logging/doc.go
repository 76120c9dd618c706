// Package logging builds the slog loggers used across the daemon and CLI.
//
// Two output formats are supported: a compact console format for interactive
// use and line-delimited JSON for ingestion. Attr helpers re-export the slog
// constructors so call sites stay terse, and WithContext augments a logger
// with session/stage/request fields carried on the context by the services
// package.
package logging
