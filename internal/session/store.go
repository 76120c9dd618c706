package session

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"soundframe/internal/config"
	"soundframe/internal/contract"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// stageColumns maps pipeline stages to their result columns. Only these
// identifiers are ever interpolated into SQL.
var stageColumns = map[contract.Stage]string{
	contract.StagePerception: "perception_json",
	contract.StageEmotion:    "emotion_json",
	contract.StageNarration:  "narration_json",
	contract.StageVoice:      "voice_json",
	contract.StageMix:        "mix_json",
}

// Create inserts a new session in the pending state.
func (s *Store) Create(ctx context.Context, sessionID, photoRef string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id must not be empty")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (session_id, photo_ref, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		sessionID,
		photoRef,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return s.GetBySessionID(ctx, sessionID)
}

// GetBySessionID fetches one session.
func (s *Store) GetBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// AppendStageResult records one stage result, compare-and-set style: the
// write is rejected with ErrStageRecorded when the stage is already present,
// and with ErrTerminal when the session has finished.
func (s *Store) AppendStageResult(ctx context.Context, sessionID string, stage contract.Stage, payloadJSON string) error {
	column, ok := stageColumns[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET `+column+` = ?, updated_at = ?
         WHERE session_id = ? AND `+column+` IS NULL AND status NOT IN (?, ?)`,
		payloadJSON,
		timestamp,
		sessionID,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("append %s result: %w", stage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish the rejection cause for the caller.
	current, getErr := s.GetBySessionID(ctx, sessionID)
	if getErr != nil {
		return getErr
	}
	if current.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, sessionID)
	}
	return fmt.Errorf("%w: %s/%s", ErrStageRecorded, sessionID, stage)
}

// SetStatus transitions a session, enforcing the state machine.
func (s *Store) SetStatus(ctx context.Context, sessionID string, to Status) error {
	current, err := s.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if current.Status == to {
		return nil
	}
	if !CanTransition(current.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current.Status, to)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE session_id = ? AND status = ?`,
		to,
		timestamp,
		sessionID,
		current.Status,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: concurrent status change on %s", ErrIllegalTransition, sessionID)
	}
	return nil
}

// MarkFailed transitions a session to FAILED and records the failing stage
// and message. A no-op when the session is already terminal.
func (s *Store) MarkFailed(ctx context.Context, sessionID, stage, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET status = ?, failure_stage = ?, failure_message = ?, updated_at = ?
         WHERE session_id = ? AND status NOT IN (?, ?)`,
		StatusFailed,
		stage,
		message,
		timestamp,
		sessionID,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return s.ensureExists(ctx, sessionID)
	}
	return nil
}

// MarkPublished records result publication exactly once. Returns false when
// another publish already claimed the session.
func (s *Store) MarkPublished(ctx context.Context, sessionID string) (bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET published_at = ?, updated_at = ? WHERE session_id = ? AND published_at IS NULL`,
		timestamp,
		timestamp,
		sessionID,
	)
	if err != nil {
		return false, fmt.Errorf("mark published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if err := s.ensureExists(ctx, sessionID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// MarkAcknowledged records consumer acknowledgment of the published result.
func (s *Store) MarkAcknowledged(ctx context.Context, sessionID string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET acked_at = ?, updated_at = ? WHERE session_id = ? AND acked_at IS NULL`,
		timestamp,
		timestamp,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("mark acknowledged: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return s.ensureExists(ctx, sessionID)
}

// Delete removes one session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

// DeleteExpired removes terminal sessions whose last update is older than the
// TTL, plus acknowledged sessions regardless of age. Returns the session IDs
// removed so the caller can clean up published artifacts.
func (s *Store) DeleteExpired(ctx context.Context, ttl time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT session_id FROM sessions WHERE acked_at IS NOT NULL OR updated_at < ?`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("select expired: %w", err)
	}
	defer rows.Close()

	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired: %w", err)
		}
		expired = append(expired, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired: %w", err)
	}

	for _, id := range expired {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete expired %s: %w", id, err)
		}
	}
	return expired, nil
}

// List returns sessions ordered most recently updated first.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// HealthSummary aggregates session counts by lifecycle grouping.
func (s *Store) HealthSummary(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sessions GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health summary: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan summary: %w", err)
		}
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending += count
		case StatusCompleted:
			summary.Completed += count
		case StatusFailed:
			summary.Failed += count
		default:
			summary.Processing += count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

func (s *Store) ensureExists(ctx context.Context, sessionID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, session_id, photo_ref, status,
    perception_json, emotion_json, narration_json, voice_json, mix_json,
    failure_stage, failure_message, created_at, updated_at, published_at, acked_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess                           Session
		status                         string
		perception, emotion, narration sql.NullString
		voice, mix                     sql.NullString
		createdAt, updatedAt           string
		publishedAt, ackedAt           sql.NullString
	)
	err := row.Scan(
		&sess.ID,
		&sess.SessionID,
		&sess.PhotoRef,
		&status,
		&perception,
		&emotion,
		&narration,
		&voice,
		&mix,
		&sess.FailureStage,
		&sess.FailureMessage,
		&createdAt,
		&updatedAt,
		&publishedAt,
		&ackedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	sess.Status = parsed
	sess.PerceptionJSON = perception.String
	sess.EmotionJSON = emotion.String
	sess.NarrationJSON = narration.String
	sess.VoiceJSON = voice.String
	sess.MixJSON = mix.String

	if sess.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sess.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if publishedAt.Valid {
		ts, err := parseTimestamp(publishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse published_at: %w", err)
		}
		sess.PublishedAt = &ts
	}
	if ackedAt.Valid {
		ts, err := parseTimestamp(ackedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse acked_at: %w", err)
		}
		sess.AckedAt = &ts
	}
	return &sess, nil
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
