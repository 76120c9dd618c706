package saga_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"soundframe/internal/config"
	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/saga"
	"soundframe/internal/session"
	"soundframe/internal/testsupport"
)

// fakeWorkers scripts per-stage responses and records dispatch order. A
// stage with no responder swallows its request, simulating a silent worker.
type fakeWorkers struct {
	mu       sync.Mutex
	handle   func(resp contract.Response)
	order    []contract.Stage
	requests map[contract.Stage][]contract.Request
	respond  map[contract.Stage]func(req contract.Request) contract.Response
}

func newFakeWorkers() *fakeWorkers {
	return &fakeWorkers{
		requests: make(map[contract.Stage][]contract.Request),
		respond:  make(map[contract.Stage]func(contract.Request) contract.Response),
	}
}

func (f *fakeWorkers) PublishRequest(_ context.Context, req contract.Request) error {
	f.mu.Lock()
	f.order = append(f.order, req.Stage)
	f.requests[req.Stage] = append(f.requests[req.Stage], req)
	fn := f.respond[req.Stage]
	handle := f.handle
	f.mu.Unlock()

	if fn == nil || handle == nil {
		return nil
	}
	go handle(fn(req))
	return nil
}

func (f *fakeWorkers) calls(stage contract.Stage) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests[stage])
}

func (f *fakeWorkers) dispatchOrder() []contract.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]contract.Stage, len(f.order))
	copy(cp, f.order)
	return cp
}

type capturePublisher struct {
	mu        sync.Mutex
	published []*session.Session
	notify    chan *session.Session
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{notify: make(chan *session.Session, 4)}
}

func (p *capturePublisher) Publish(_ context.Context, sess *session.Session) error {
	p.mu.Lock()
	p.published = append(p.published, sess)
	p.mu.Unlock()
	p.notify <- sess
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func respondWith(payload string) func(contract.Request) contract.Response {
	return func(req contract.Request) contract.Response {
		return contract.Response{SessionID: req.SessionID, Stage: req.Stage, Payload: payload}
	}
}

func respondError(message string) func(contract.Request) contract.Response {
	return func(req contract.Request) contract.Response {
		return contract.Response{SessionID: req.SessionID, Stage: req.Stage, ErrorMessage: message}
	}
}

const beachPerception = "```json\n" + `{
  "objects": ["umbrella", "towel"],
  "people_count": 0,
  "people_details": [],
  "layout": {},
  "scene_type": "outdoor_beach",
  "setting": "daytime shoreline",
  "colors": ["blue", "gold"],
  "lighting": "bright",
  "ambient_sounds": ["waves", "wind"]
}` + "\n```"

const peacefulEmotion = `{"mood": "peaceful", "emotion_tags": ["calm"], "tone": "soft", "intensity": "low", "voice_characteristics": {}, "ambient_mood": "serene"}`

const beachNarration = `{"main_narration": "Waves roll gently onto the empty shore.", "person_dialogues": [], "ambient_descriptions": ["distant gulls"]}`

const singleSegmentVoice = `{"segments": [{"type": "narration", "position": "center", "text": "Waves roll gently onto the empty shore.", "audio_ref": "s1-narration-0.wav"}]}`

const beachMix = `{"final_audio_ref": "s1-final.wav", "duration_ms": 4200}`

func scriptHappyPath(workers *fakeWorkers) {
	workers.respond[contract.StagePerception] = respondWith(beachPerception)
	workers.respond[contract.StageEmotion] = respondWith(peacefulEmotion)
	workers.respond[contract.StageNarration] = respondWith(beachNarration)
	workers.respond[contract.StageVoice] = respondWith(singleSegmentVoice)
	workers.respond[contract.StageMix] = respondWith(beachMix)
}

type harness struct {
	cfg       *config.Config
	store     *session.Store
	workers   *fakeWorkers
	publisher *capturePublisher
	orch      *saga.Orchestrator
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	workers := newFakeWorkers()
	publisher := newCapturePublisher()
	orch := saga.New(cfg, store, workers, publisher, logging.NewNop())
	t.Cleanup(orch.Close)
	workers.handle = orch.HandleResponse

	return &harness{cfg: cfg, store: store, workers: workers, publisher: publisher, orch: orch}
}

func (h *harness) awaitTerminal(t *testing.T) *session.Session {
	t.Helper()
	select {
	case sess := <-h.publisher.notify:
		return sess
	case <-time.After(10 * time.Second):
		t.Fatal("session never reached a terminal state")
		return nil
	}
}

func TestSequentialPipelineCompletes(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)

	id, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if id != "s1" {
		t.Fatalf("session id = %q", id)
	}

	sess := h.awaitTerminal(t)
	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %s, failure = %s/%s", sess.Status, sess.FailureStage, sess.FailureMessage)
	}

	want := contract.Pipeline()
	got := h.workers.dispatchOrder()
	if len(got) != len(want) {
		t.Fatalf("dispatch order = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
	for _, stage := range want {
		if h.workers.calls(stage) != 1 {
			t.Fatalf("stage %s dispatched %d times", stage, h.workers.calls(stage))
		}
	}

	var perc contract.Perception
	if err := json.Unmarshal([]byte(sess.PerceptionJSON), &perc); err != nil {
		t.Fatalf("perception json: %v", err)
	}
	if perc.SceneType != "outdoor_beach" || len(perc.AmbientSounds) != 2 {
		t.Fatalf("perception = %+v", perc)
	}
	var mix contract.Mix
	if err := json.Unmarshal([]byte(sess.MixJSON), &mix); err != nil {
		t.Fatalf("mix json: %v", err)
	}
	if mix.FinalAudioRef != "s1-final.wav" || mix.DurationMS != 4200 {
		t.Fatalf("mix = %+v", mix)
	}
	if h.publisher.count() != 1 {
		t.Fatalf("published %d times", h.publisher.count())
	}
}

func TestEmotionRequestCarriesPerceptionContext(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	h.awaitTerminal(t)

	h.workers.mu.Lock()
	req := h.workers.requests[contract.StageEmotion][0]
	h.workers.mu.Unlock()

	var emoReq contract.EmotionRequest
	if err := json.Unmarshal([]byte(req.Payload), &emoReq); err != nil {
		t.Fatalf("emotion request payload: %v", err)
	}
	if emoReq.Perception == nil || emoReq.Perception.SceneType != "outdoor_beach" {
		t.Fatalf("sequential emotion request missing perception context: %+v", emoReq)
	}
}

func TestParallelDispatchOmitsPerceptionContext(t *testing.T) {
	h := newHarness(t, testsupport.WithEmotionDispatch("parallel"))
	scriptHappyPath(h.workers)

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	sess := h.awaitTerminal(t)
	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %s, failure = %s/%s", sess.Status, sess.FailureStage, sess.FailureMessage)
	}

	order := h.workers.dispatchOrder()
	if order[0] != contract.StagePerception || order[1] != contract.StageEmotion {
		t.Fatalf("parallel mode should fan out both leading stages first: %v", order)
	}

	h.workers.mu.Lock()
	req := h.workers.requests[contract.StageEmotion][0]
	h.workers.mu.Unlock()

	var emoReq contract.EmotionRequest
	if err := json.Unmarshal([]byte(req.Payload), &emoReq); err != nil {
		t.Fatalf("emotion request payload: %v", err)
	}
	if emoReq.Perception != nil {
		t.Fatalf("parallel emotion request should carry no perception context: %+v", emoReq)
	}
}

func TestEmotionTimeoutFailsSession(t *testing.T) {
	h := newHarness(t, testsupport.WithStageTimeouts(1))
	scriptHappyPath(h.workers)
	h.workers.respond[contract.StageEmotion] = nil

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	sess := h.awaitTerminal(t)

	if sess.Status != session.StatusFailed {
		t.Fatalf("status = %s", sess.Status)
	}
	if sess.FailureStage != "emotion" || sess.FailureMessage != "timeout" {
		t.Fatalf("failure = %s/%s", sess.FailureStage, sess.FailureMessage)
	}
	if h.workers.calls(contract.StageNarration) != 0 {
		t.Fatalf("narration dispatched %d times after emotion timeout", h.workers.calls(contract.StageNarration))
	}
}

func TestUpstreamErrorFailsSession(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)
	h.workers.respond[contract.StageEmotion] = respondError("model unavailable")

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	sess := h.awaitTerminal(t)

	if sess.Status != session.StatusFailed {
		t.Fatalf("status = %s", sess.Status)
	}
	if sess.FailureStage != "emotion" || sess.FailureMessage != "model unavailable" {
		t.Fatalf("failure = %s/%s", sess.FailureStage, sess.FailureMessage)
	}
	if h.workers.calls(contract.StageNarration) != 0 {
		t.Fatal("narration dispatched after upstream failure")
	}
}

func TestMalformedPerceptionFailsSession(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)
	h.workers.respond[contract.StagePerception] = respondWith("sorry, I cannot describe this image")

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	sess := h.awaitTerminal(t)

	if sess.Status != session.StatusFailed || sess.FailureStage != "perception" {
		t.Fatalf("status = %s, failure stage = %s", sess.Status, sess.FailureStage)
	}
	if h.workers.calls(contract.StageEmotion) != 0 {
		t.Fatal("emotion dispatched after unrecoverable perception")
	}
}

func TestMalformedEmotionFallsBackToNeutral(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)
	h.workers.respond[contract.StageEmotion] = respondWith("the scene feels quiet and contemplative")

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	sess := h.awaitTerminal(t)

	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %s, failure = %s/%s", sess.Status, sess.FailureStage, sess.FailureMessage)
	}
	var emo contract.Emotion
	if err := json.Unmarshal([]byte(sess.EmotionJSON), &emo); err != nil {
		t.Fatalf("emotion json: %v", err)
	}
	if emo.Mood != "neutral" || emo.Intensity != "medium" {
		t.Fatalf("expected neutral default, got %+v", emo)
	}
}

func TestSingleQuotedEmotionRehabilitated(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)
	h.workers.respond[contract.StageEmotion] = respondWith(`{'mood': 'calm', 'tone': 'soft'}`)

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	sess := h.awaitTerminal(t)

	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %s", sess.Status)
	}
	var emo contract.Emotion
	if err := json.Unmarshal([]byte(sess.EmotionJSON), &emo); err != nil {
		t.Fatalf("emotion json: %v", err)
	}
	if emo.Mood != "calm" || emo.Tone != "soft" {
		t.Fatalf("rehabilitated emotion = %+v", emo)
	}
}

func TestDuplicateResponseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)
	original := h.workers.respond[contract.StagePerception]
	h.workers.respond[contract.StagePerception] = func(req contract.Request) contract.Response {
		resp := original(req)
		// Second identical delivery, simulating at-least-once transport.
		go h.orch.HandleResponse(resp)
		return resp
	}

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	sess := h.awaitTerminal(t)

	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %s, failure = %s/%s", sess.Status, sess.FailureStage, sess.FailureMessage)
	}
	for _, stage := range contract.Pipeline() {
		if h.workers.calls(stage) != 1 {
			t.Fatalf("stage %s dispatched %d times", stage, h.workers.calls(stage))
		}
	}
	if h.publisher.count() != 1 {
		t.Fatalf("published %d times", h.publisher.count())
	}
}

func TestLateResponseAfterFailureDropped(t *testing.T) {
	h := newHarness(t, testsupport.WithStageTimeouts(1))
	scriptHappyPath(h.workers)
	h.workers.respond[contract.StageEmotion] = nil

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	h.awaitTerminal(t)

	h.orch.HandleResponse(contract.Response{
		SessionID: "s1",
		Stage:     contract.StageEmotion,
		Payload:   peacefulEmotion,
	})

	sess, err := h.store.GetBySessionID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Status != session.StatusFailed || sess.EmotionJSON != "" {
		t.Fatalf("late response mutated a failed session: %+v", sess)
	}
	if h.publisher.count() != 1 {
		t.Fatalf("published %d times", h.publisher.count())
	}
}

func TestStartSessionGeneratesID(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)

	id, err := h.orch.StartSession(context.Background(), "", "beach.jpg")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if strings.TrimSpace(id) == "" {
		t.Fatal("expected a generated session id")
	}
	h.awaitTerminal(t)
}

func TestStartSessionRejectsDuplicateID(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := h.orch.StartSession(context.Background(), "s1", "other.jpg"); !errors.Is(err, session.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	h.awaitTerminal(t)
}

func TestStartSessionRequiresPhotoRef(t *testing.T) {
	h := newHarness(t)
	if _, err := h.orch.StartSession(context.Background(), "s1", "  "); err == nil {
		t.Fatal("expected error for blank photo ref")
	}
}

func TestMixRequestCarriesAmbientSounds(t *testing.T) {
	h := newHarness(t)
	scriptHappyPath(h.workers)

	if _, err := h.orch.StartSession(context.Background(), "s1", "beach.jpg"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	h.awaitTerminal(t)

	h.workers.mu.Lock()
	req := h.workers.requests[contract.StageMix][0]
	h.workers.mu.Unlock()

	var mixReq contract.MixRequest
	if err := json.Unmarshal([]byte(req.Payload), &mixReq); err != nil {
		t.Fatalf("mix request payload: %v", err)
	}
	if len(mixReq.Segments) != 1 || mixReq.Segments[0].AudioRef != "s1-narration-0.wav" {
		t.Fatalf("mix segments = %+v", mixReq.Segments)
	}
	if len(mixReq.AmbientSounds) != 2 || mixReq.AmbientSounds[0] != "waves" {
		t.Fatalf("ambient sounds = %v", mixReq.AmbientSounds)
	}
}
