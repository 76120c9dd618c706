package api

import "soundframe/internal/contract"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitRequest carries a new session submission.
type SubmitRequest struct {
	SessionID string `json:"session_id,omitempty"`
	PhotoRef  string `json:"photo_ref"`
}

// SubmitResponse acknowledges acceptance of a new session.
type SubmitResponse struct {
	Accepted  bool   `json:"accepted"`
	SessionID string `json:"session_id"`
}

// SessionStatus is the polling view of one session. Status is one of
// "pending", "complete", or "failed"; exactly one of Result and Error is
// set for terminal sessions.
type SessionStatus struct {
	SessionID string          `json:"session_id"`
	Status    string          `json:"status"`
	Result    *SessionResult  `json:"result,omitempty"`
	Error     *SessionFailure `json:"error,omitempty"`
}

// SessionResult carries the finished narrative for a completed session.
type SessionResult struct {
	Mix       contract.Mix       `json:"mix"`
	Narration contract.Narration `json:"narration"`
}

// SessionFailure names the stage that ended a failed session.
type SessionFailure struct {
	Stage      string `json:"stage"`
	StageLabel string `json:"stage_label,omitempty"`
	Message    string `json:"message"`
}

// SessionSummary describes a session row in a transport-friendly format.
type SessionSummary struct {
	SessionID   string `json:"session_id"`
	PhotoRef    string `json:"photo_ref"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	Failure     string `json:"failure,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	Published   bool   `json:"published"`
	Acked       bool   `json:"acked"`
}

// SessionListResponse wraps a collection of session summaries.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// WorkerHealth reports one stage worker's counters.
type WorkerHealth struct {
	Stage      string `json:"stage"`
	StageLabel string `json:"stage_label"`
	Handled    int    `json:"handled"`
	Failed     int    `json:"failed"`
	LastError  string `json:"last_error,omitempty"`
}

// SessionCounts aggregates session totals by lifecycle grouping.
type SessionCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	SessionDBPath  string         `json:"session_db_path"`
	LockFilePath   string         `json:"lock_file_path"`
	ActiveSessions int            `json:"active_sessions"`
	Sessions       SessionCounts  `json:"sessions"`
	Workers        []WorkerHealth `json:"workers"`
}

// ErrorResponse is the uniform error payload for API failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
