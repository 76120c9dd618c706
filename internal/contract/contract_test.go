package contract

import "testing"

func TestPipelineOrder(t *testing.T) {
	want := []Stage{StagePerception, StageEmotion, StageNarration, StageVoice, StageMix}
	got := Pipeline()
	if len(got) != len(want) {
		t.Fatalf("pipeline length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pipeline[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNext(t *testing.T) {
	next, ok := StagePerception.Next()
	if !ok || next != StageEmotion {
		t.Fatalf("perception.Next() = %q %v", next, ok)
	}
	if _, ok := StageMix.Next(); ok {
		t.Fatal("mix should have no successor")
	}
}

func TestParseStage(t *testing.T) {
	stage, ok := ParseStage("  Emotion ")
	if !ok || stage != StageEmotion {
		t.Fatalf("ParseStage = %q %v", stage, ok)
	}
	if _, ok := ParseStage("rendering"); ok {
		t.Fatal("unknown stage should not parse")
	}
	if _, ok := ParseStage(""); ok {
		t.Fatal("empty stage should not parse")
	}
}

func TestResponseFailed(t *testing.T) {
	if (Response{Payload: "{}"}).Failed() {
		t.Fatal("payload response should not be failed")
	}
	if !(Response{ErrorMessage: "boom"}).Failed() {
		t.Fatal("error response should be failed")
	}
	if (Response{ErrorMessage: "   "}).Failed() {
		t.Fatal("whitespace error should not count as failure")
	}
}
