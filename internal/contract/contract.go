package contract

import "strings"

// Stage identifies one unit of the fixed pipeline.
type Stage string

const (
	StagePerception Stage = "perception"
	StageEmotion    Stage = "emotion"
	StageNarration  Stage = "narration"
	StageVoice      Stage = "voice"
	StageMix        Stage = "mix"
)

var pipeline = []Stage{
	StagePerception,
	StageEmotion,
	StageNarration,
	StageVoice,
	StageMix,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(pipeline))
	for _, stage := range pipeline {
		set[stage] = struct{}{}
	}
	return set
}()

// Pipeline returns the ordered list of stages.
func Pipeline() []Stage {
	cp := make([]Stage, len(pipeline))
	copy(cp, pipeline)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// Next returns the stage dispatched after s, or false at the end of the pipeline.
func (s Stage) Next() (Stage, bool) {
	for i, stage := range pipeline {
		if stage == s && i+1 < len(pipeline) {
			return pipeline[i+1], true
		}
	}
	return "", false
}

// Request is the envelope dispatched to a stage worker. Payload is JSON
// produced by the orchestrator.
type Request struct {
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`
	RequestID string `json:"request_id"`
	Payload   string `json:"payload"`
}

// Response is the envelope a worker returns. Exactly one of Payload and
// ErrorMessage is meaningful; a non-empty ErrorMessage reports stage failure.
// Payload is raw worker text and passes through rehabilitation before use.
type Response struct {
	SessionID    string `json:"session_id"`
	Stage        Stage  `json:"stage"`
	Payload      string `json:"payload,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Failed reports whether the response carries a worker failure.
func (r Response) Failed() bool {
	return strings.TrimSpace(r.ErrorMessage) != ""
}
