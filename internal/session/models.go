package session

import (
	"strings"
	"time"

	"soundframe/internal/contract"
)

// Status represents the lifecycle of a saga session.
type Status string

const (
	StatusPending            Status = "pending"
	StatusAwaitingPerception Status = "awaiting_perception"
	StatusAwaitingEmotion    Status = "awaiting_emotion"
	StatusAwaitingNarration  Status = "awaiting_narration"
	StatusAwaitingVoice      Status = "awaiting_voice"
	StatusAwaitingMix        Status = "awaiting_mix"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAwaitingPerception,
	StatusAwaitingEmotion,
	StatusAwaitingNarration,
	StatusAwaitingVoice,
	StatusAwaitingMix,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// legalTransitions enumerates every permitted status change. The
// awaiting_perception → awaiting_narration edge serves parallel emotion
// dispatch, where both leading stages complete before narration starts.
var legalTransitions = map[Status][]Status{
	StatusPending:            {StatusAwaitingPerception, StatusFailed},
	StatusAwaitingPerception: {StatusAwaitingEmotion, StatusAwaitingNarration, StatusFailed},
	StatusAwaitingEmotion:    {StatusAwaitingNarration, StatusFailed},
	StatusAwaitingNarration:  {StatusAwaitingVoice, StatusFailed},
	StatusAwaitingVoice:      {StatusAwaitingMix, StatusFailed},
	StatusAwaitingMix:        {StatusCompleted, StatusFailed},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, candidate := range legalTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AwaitingStatus maps a stage to the status a session holds while waiting on it.
func AwaitingStatus(stage contract.Stage) (Status, bool) {
	switch stage {
	case contract.StagePerception:
		return StatusAwaitingPerception, true
	case contract.StageEmotion:
		return StatusAwaitingEmotion, true
	case contract.StageNarration:
		return StatusAwaitingNarration, true
	case contract.StageVoice:
		return StatusAwaitingVoice, true
	case contract.StageMix:
		return StatusAwaitingMix, true
	default:
		return "", false
	}
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session is one saga record persisted in SQLite. Stage results are stored
// as JSON in per-stage columns, empty until the stage is recorded.
type Session struct {
	ID        int64
	SessionID string
	PhotoRef  string
	Status    Status

	PerceptionJSON string
	EmotionJSON    string
	NarrationJSON  string
	VoiceJSON      string
	MixJSON        string

	FailureStage   string
	FailureMessage string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
	AckedAt     *time.Time
}

// StageResult returns the recorded JSON for a stage, if present.
func (s *Session) StageResult(stage contract.Stage) (string, bool) {
	var raw string
	switch stage {
	case contract.StagePerception:
		raw = s.PerceptionJSON
	case contract.StageEmotion:
		raw = s.EmotionJSON
	case contract.StageNarration:
		raw = s.NarrationJSON
	case contract.StageVoice:
		raw = s.VoiceJSON
	case contract.StageMix:
		raw = s.MixJSON
	}
	return raw, raw != ""
}

// StageRecorded reports whether a stage result is already present.
func (s *Session) StageRecorded(stage contract.Stage) bool {
	_, ok := s.StageResult(stage)
	return ok
}

// IsTerminal reports whether the session reached COMPLETE or FAILED.
func (s *Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// HealthSummary describes aggregated session counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
