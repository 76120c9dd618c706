package rehab

import "soundframe/internal/contract"

// NeutralEmotion is the fail-soft record substituted when an emotion payload
// is unrecoverable. The pipeline can continue safely with a flat mood.
func NeutralEmotion() contract.Emotion {
	return contract.Emotion{
		Mood:                 "neutral",
		EmotionTags:          []string{},
		Tone:                 "neutral",
		Intensity:            "medium",
		VoiceCharacteristics: map[string]any{},
		AmbientMood:          "calm",
	}
}

// NeutralNarration is the fail-soft record substituted when a narration
// payload is unrecoverable.
func NeutralNarration() contract.Narration {
	return contract.Narration{
		MainNarration:       "Scene description unavailable.",
		PersonDialogues:     []contract.PersonDialogue{},
		AmbientDescriptions: []string{},
	}
}

// Perception and voice have no safe neutral default: every later stage
// depends on perception content, and voice output references real assets.
