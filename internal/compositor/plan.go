package compositor

import (
	"sort"
	"strings"

	"soundframe/internal/assetstore"
	"soundframe/internal/config"
	"soundframe/internal/contract"
)

// Layer kinds.
const (
	LayerNarration = "narration"
	LayerDialogue  = "dialogue"
	LayerAmbient   = "ambient"
)

// Layer is one placed source in the mix timeline. Source is an asset
// reference for voice layers and an ambient label for ambient layers.
type Layer struct {
	Kind     string
	Source   string
	OffsetMS int
	Pan      float64
	Gain     float64
	Loop     bool
}

// Plan is the full deterministic layout for one mix.
type Plan struct {
	Layers []Layer
}

// BuildPlan lays segments and ambient labels out on the timeline.
// Narration segments sit at offset 0 unpanned, in segment order.
// Dialogue segments sit at the configured dialogue offset, panned per
// position, in segment order. Ambient labels are deduplicated, sorted,
// and loop at reduced gain. Segment types outside the known two are
// dropped.
func BuildPlan(segments []contract.Segment, ambient []string, cfg config.Compositor) Plan {
	var plan Plan

	for _, seg := range segments {
		if seg.Type != contract.SegmentNarration {
			continue
		}
		plan.Layers = append(plan.Layers, Layer{
			Kind:   LayerNarration,
			Source: seg.AudioRef,
			Gain:   1,
		})
	}
	for _, seg := range segments {
		if seg.Type != contract.SegmentDialogue {
			continue
		}
		plan.Layers = append(plan.Layers, Layer{
			Kind:     LayerDialogue,
			Source:   seg.AudioRef,
			OffsetMS: cfg.DialogueOffsetMS,
			Pan:      panFor(seg.Position, cfg.DialoguePan),
			Gain:     1,
		})
	}

	seen := make(map[string]struct{})
	var labels []string
	for _, label := range ambient {
		slug := assetstore.SlugLabel(label)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		labels = append(labels, strings.TrimSpace(label))
	}
	sort.Strings(labels)
	for _, label := range labels {
		plan.Layers = append(plan.Layers, Layer{
			Kind:   LayerAmbient,
			Source: label,
			Gain:   cfg.AmbientGain,
			Loop:   true,
		})
	}

	return plan
}

func panFor(position string, spread float64) float64 {
	switch position {
	case contract.PositionLeft:
		return -spread
	case contract.PositionRight:
		return spread
	default:
		return 0
	}
}
