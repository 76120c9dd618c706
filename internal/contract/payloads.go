package contract

// Perception is the structured scene analysis for a photo.
type Perception struct {
	Objects       []string          `json:"objects"`
	PeopleCount   int               `json:"people_count"`
	PeopleDetails []map[string]any  `json:"people_details"`
	Layout        map[string]string `json:"layout"`
	SceneType     string            `json:"scene_type"`
	Setting       string            `json:"setting"`
	Colors        []string          `json:"colors"`
	Lighting      string            `json:"lighting"`
	AmbientSounds []string          `json:"ambient_sounds"`
}

// Emotion captures the inferred mood of the scene.
type Emotion struct {
	Mood                 string         `json:"mood"`
	EmotionTags          []string       `json:"emotion_tags"`
	Tone                 string         `json:"tone"`
	Intensity            string         `json:"intensity"`
	VoiceCharacteristics map[string]any `json:"voice_characteristics"`
	AmbientMood          string         `json:"ambient_mood"`
}

// PersonDialogue is one spoken line attributed to a person in the photo.
type PersonDialogue struct {
	PersonID int    `json:"person_id"`
	Dialogue string `json:"dialogue"`
	Emotion  string `json:"emotion"`
}

// Narration is the generated script for the audio experience.
type Narration struct {
	MainNarration       string           `json:"main_narration"`
	PersonDialogues     []PersonDialogue `json:"person_dialogues"`
	AmbientDescriptions []string         `json:"ambient_descriptions"`
}

// Segment positions.
const (
	PositionCenter = "center"
	PositionLeft   = "left"
	PositionRight  = "right"
)

// Segment types.
const (
	SegmentNarration = "narration"
	SegmentDialogue  = "dialogue"
)

// Segment is one synthesized voice layer.
type Segment struct {
	Type     string `json:"type"`
	Position string `json:"position"`
	PersonID int    `json:"person_id,omitempty"`
	Text     string `json:"text"`
	AudioRef string `json:"audio_ref"`
}

// Voice is the voice synthesis stage result.
type Voice struct {
	Segments []Segment `json:"segments"`
}

// Mix is the final stage result: one composed audio stream.
type Mix struct {
	FinalAudioRef string `json:"final_audio_ref"`
	DurationMS    int64  `json:"duration_ms"`
}

// PerceptionRequest starts the pipeline for one photo.
type PerceptionRequest struct {
	PhotoRef string `json:"photo_ref"`
}

// EmotionRequest carries the perception record as context. Perception is nil
// in parallel dispatch mode, where emotion is inferred from the photo alone.
type EmotionRequest struct {
	PhotoRef   string      `json:"photo_ref"`
	Perception *Perception `json:"perception,omitempty"`
}

// NarrationRequest carries both upstream records.
type NarrationRequest struct {
	Perception Perception `json:"perception"`
	Emotion    Emotion    `json:"emotion"`
}

// VoiceRequest carries the script plus the emotion record that shapes delivery.
type VoiceRequest struct {
	Narration Narration `json:"narration"`
	Emotion   Emotion   `json:"emotion"`
}

// MixRequest carries the synthesized segments and the perception stage's
// ambient sound labels.
type MixRequest struct {
	Segments      []Segment `json:"segments"`
	AmbientSounds []string  `json:"ambient_sounds"`
}
