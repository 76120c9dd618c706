package api

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"soundframe/internal/publisher"
	"soundframe/internal/session"
)

// StageLabel renders a stage identifier as a display label.
func StageLabel(stage string) string {
	if stage == "" {
		return ""
	}
	return cases.Title(language.Und).String(stage)
}

// StatusLabel renders a lifecycle status as a display label, turning
// "awaiting_emotion" into "Awaiting Emotion".
func StatusLabel(status session.Status) string {
	text := strings.ReplaceAll(string(status), "_", " ")
	return cases.Title(language.Und).String(text)
}

// FromSession converts a stored session into its summary DTO.
func FromSession(sess *session.Session) SessionSummary {
	summary := SessionSummary{
		SessionID:   sess.SessionID,
		PhotoRef:    sess.PhotoRef,
		Status:      string(sess.Status),
		StatusLabel: StatusLabel(sess.Status),
		CreatedAt:   formatTime(sess.CreatedAt),
		UpdatedAt:   formatTime(sess.UpdatedAt),
		Published:   sess.PublishedAt != nil,
		Acked:       sess.AckedAt != nil,
	}
	if sess.Status == session.StatusFailed && sess.FailureStage != "" {
		summary.Failure = StageLabel(sess.FailureStage) + ": " + sess.FailureMessage
	}
	return summary
}

// FromSessions converts stored sessions into summary DTOs.
func FromSessions(sessions []*session.Session) []SessionSummary {
	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, FromSession(sess))
	}
	return summaries
}

// FromResult converts a published result into the polling DTO.
func FromResult(result publisher.Result) SessionStatus {
	status := SessionStatus{
		SessionID: result.SessionID,
		Status:    result.Status,
	}
	if result.Result != nil {
		status.Result = &SessionResult{
			Mix:       result.Result.Mix,
			Narration: result.Result.Narration,
		}
	}
	if result.Error != nil {
		status.Error = &SessionFailure{
			Stage:      result.Error.Stage,
			StageLabel: StageLabel(result.Error.Stage),
			Message:    result.Error.Message,
		}
	}
	return status
}

// FromHealthSummary converts store aggregates into the DTO form.
func FromHealthSummary(summary session.HealthSummary) SessionCounts {
	return SessionCounts{
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
