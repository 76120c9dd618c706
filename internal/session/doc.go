// Package session persists saga sessions in SQLite and owns their
// state-machine transitions.
//
// Each session is addressed solely by its caller-visible session ID and
// carries one nullable column per stage result, so "both perception and
// emotion present" checks are field-presence tests rather than string-keyed
// map lookups. AppendStageResult is compare-and-set: a stage already recorded
// is rejected, which makes duplicate delivery a no-op for callers.
//
// The database is transient storage for in-flight and recently finished
// sessions rather than an archive; rows are deleted after acknowledgment or
// TTL expiry. Schema changes bump schemaVersion; users clear the database to
// adopt the new schema.
package session
