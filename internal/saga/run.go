package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"soundframe/internal/contract"
	"soundframe/internal/logging"
	"soundframe/internal/rehab"
	"soundframe/internal/services"
	"soundframe/internal/session"
)

// stageError pins a fatal error to the stage it occurred in. Message is
// the human-readable text surfaced through the publisher.
type stageError struct {
	Stage   contract.Stage
	Marker  error
	Message string
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Marker, e.Stage, e.Message)
}

func (e *stageError) Unwrap() error { return e.Marker }

// run drives one session through the pipeline. All session mutation
// happens on the run's own goroutine.
type run struct {
	o         *Orchestrator
	sessionID string
	photoRef  string
	mailbox   chan contract.Response
	logger    *slog.Logger

	perception contract.Perception
	emotion    contract.Emotion
	narration  contract.Narration
	voice      contract.Voice
	recorded   map[contract.Stage]bool
}

func (r *run) loop(ctx context.Context) {
	err := r.o.store.SetStatus(ctx, r.sessionID, session.StatusAwaitingPerception)
	if err == nil {
		if r.o.emotionDispatch() == DispatchParallel {
			err = r.leadParallel(ctx)
		} else {
			err = r.leadSequential(ctx)
		}
	}
	if err == nil {
		err = r.tail(ctx)
	}

	if err == nil {
		r.complete(ctx)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Daemon shutdown: in-flight state is lost, not failed.
		r.logger.Warn("session abandoned on shutdown")
		return
	}
	var serr *stageError
	if !errors.As(err, &serr) {
		serr = &stageError{Stage: "", Marker: services.ErrUpstream, Message: err.Error()}
	}
	r.fail(ctx, serr)
}

// leadSequential runs perception then emotion, the emotion request
// carrying the perception record as context.
func (r *run) leadSequential(ctx context.Context) error {
	if err := r.dispatch(ctx, contract.StagePerception, contract.PerceptionRequest{PhotoRef: r.photoRef}); err != nil {
		return err
	}
	resp, err := r.await(ctx, contract.StagePerception)
	if err != nil {
		return err
	}
	perc, err := rehab.Parse[contract.Perception](resp.Payload)
	if err != nil {
		return &stageError{Stage: contract.StagePerception, Marker: services.ErrValidation, Message: err.Error()}
	}
	if err := r.record(ctx, contract.StagePerception, perc, session.StatusAwaitingEmotion); err != nil {
		return err
	}
	r.perception = perc

	if err := r.dispatch(ctx, contract.StageEmotion, contract.EmotionRequest{PhotoRef: r.photoRef, Perception: &perc}); err != nil {
		return err
	}
	resp, err = r.await(ctx, contract.StageEmotion)
	if err != nil {
		return err
	}
	emo := r.parseEmotion(resp.Payload)
	if err := r.record(ctx, contract.StageEmotion, emo, session.StatusAwaitingNarration); err != nil {
		return err
	}
	r.emotion = emo
	return nil
}

// leadParallel fans perception and emotion out together; the emotion
// worker sees only the photo. Narration starts once both are recorded.
func (r *run) leadParallel(ctx context.Context) error {
	if err := r.dispatch(ctx, contract.StagePerception, contract.PerceptionRequest{PhotoRef: r.photoRef}); err != nil {
		return err
	}
	if err := r.dispatch(ctx, contract.StageEmotion, contract.EmotionRequest{PhotoRef: r.photoRef}); err != nil {
		return err
	}

	now := time.Now()
	deadlines := map[contract.Stage]time.Time{
		contract.StagePerception: now.Add(r.o.stageTimeout(contract.StagePerception)),
		contract.StageEmotion:    now.Add(r.o.stageTimeout(contract.StageEmotion)),
	}

	for len(deadlines) > 0 {
		var next contract.Stage
		var nextAt time.Time
		for stage, at := range deadlines {
			if nextAt.IsZero() || at.Before(nextAt) {
				next, nextAt = stage, at
			}
		}
		timer := time.NewTimer(time.Until(nextAt))

		select {
		case resp := <-r.mailbox:
			timer.Stop()
			if _, pending := deadlines[resp.Stage]; !pending {
				r.dropResponse(resp)
				continue
			}
			if resp.Failed() {
				return &stageError{Stage: resp.Stage, Marker: services.ErrUpstream, Message: resp.ErrorMessage}
			}
			if err := r.recordLeadStage(ctx, resp, deadlines); err != nil {
				return err
			}
			delete(deadlines, resp.Stage)
		case <-timer.C:
			return &stageError{Stage: next, Marker: services.ErrTimeout, Message: "timeout"}
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

// recordLeadStage persists whichever of the two leading stages just
// arrived and advances the status once its counterpart is in.
func (r *run) recordLeadStage(ctx context.Context, resp contract.Response, pending map[contract.Stage]time.Time) error {
	switch resp.Stage {
	case contract.StagePerception:
		perc, err := rehab.Parse[contract.Perception](resp.Payload)
		if err != nil {
			return &stageError{Stage: contract.StagePerception, Marker: services.ErrValidation, Message: err.Error()}
		}
		next := session.StatusAwaitingEmotion
		if _, emotionPending := pending[contract.StageEmotion]; !emotionPending {
			next = session.StatusAwaitingNarration
		}
		if err := r.record(ctx, contract.StagePerception, perc, next); err != nil {
			return err
		}
		r.perception = perc
	case contract.StageEmotion:
		emo := r.parseEmotion(resp.Payload)
		next := session.Status("")
		if _, perceptionPending := pending[contract.StagePerception]; !perceptionPending {
			next = session.StatusAwaitingNarration
		}
		if err := r.record(ctx, contract.StageEmotion, emo, next); err != nil {
			return err
		}
		r.emotion = emo
	}
	return nil
}

// tail runs narration, voice, and mix, shared by both dispatch modes.
func (r *run) tail(ctx context.Context) error {
	if err := r.dispatch(ctx, contract.StageNarration, contract.NarrationRequest{Perception: r.perception, Emotion: r.emotion}); err != nil {
		return err
	}
	resp, err := r.await(ctx, contract.StageNarration)
	if err != nil {
		return err
	}
	narr, perr := rehab.Parse[contract.Narration](resp.Payload)
	if perr != nil {
		r.logger.Warn("narration payload unrecoverable, using neutral default",
			logging.Error(perr))
		narr = rehab.NeutralNarration()
	}
	if err := r.record(ctx, contract.StageNarration, narr, session.StatusAwaitingVoice); err != nil {
		return err
	}
	r.narration = narr

	if err := r.dispatch(ctx, contract.StageVoice, contract.VoiceRequest{Narration: narr, Emotion: r.emotion}); err != nil {
		return err
	}
	resp, err = r.await(ctx, contract.StageVoice)
	if err != nil {
		return err
	}
	voice, perr := rehab.Parse[contract.Voice](resp.Payload)
	if perr != nil {
		return &stageError{Stage: contract.StageVoice, Marker: services.ErrValidation, Message: perr.Error()}
	}
	if err := r.record(ctx, contract.StageVoice, voice, session.StatusAwaitingMix); err != nil {
		return err
	}
	r.voice = voice

	if err := r.dispatch(ctx, contract.StageMix, contract.MixRequest{Segments: voice.Segments, AmbientSounds: r.perception.AmbientSounds}); err != nil {
		return err
	}
	resp, err = r.await(ctx, contract.StageMix)
	if err != nil {
		return err
	}
	var mix contract.Mix
	if perr := json.Unmarshal([]byte(resp.Payload), &mix); perr != nil {
		return &stageError{Stage: contract.StageMix, Marker: services.ErrValidation, Message: perr.Error()}
	}
	return r.record(ctx, contract.StageMix, mix, "")
}

// parseEmotion rehabilitates an emotion payload, substituting the neutral
// default when the text is unrecoverable.
func (r *run) parseEmotion(payload string) contract.Emotion {
	emo, err := rehab.Parse[contract.Emotion](payload)
	if err != nil {
		r.logger.Warn("emotion payload unrecoverable, using neutral default",
			logging.Error(err))
		return rehab.NeutralEmotion()
	}
	return emo
}

func (r *run) dispatch(ctx context.Context, stage contract.Stage, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return &stageError{Stage: stage, Marker: services.ErrValidation, Message: "encode request: " + err.Error()}
	}
	req := contract.Request{
		SessionID: r.sessionID,
		Stage:     stage,
		RequestID: uuid.NewString(),
		Payload:   string(raw),
	}
	if err := r.o.dispatcher.PublishRequest(ctx, req); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &stageError{Stage: stage, Marker: services.ErrUpstream, Message: "dispatch: " + err.Error()}
	}
	r.logger.Debug("stage dispatched",
		logging.String(logging.FieldStage, string(stage)),
		logging.String(logging.FieldCorrelationID, req.RequestID))
	return nil
}

// await blocks until the expected stage responds, times out, or the run
// is canceled. Responses for other stages are dropped without effect.
func (r *run) await(ctx context.Context, stage contract.Stage) (contract.Response, error) {
	timer := time.NewTimer(r.o.stageTimeout(stage))
	defer timer.Stop()
	for {
		select {
		case resp := <-r.mailbox:
			if resp.Stage != stage {
				r.dropResponse(resp)
				continue
			}
			if resp.Failed() {
				return resp, &stageError{Stage: stage, Marker: services.ErrUpstream, Message: resp.ErrorMessage}
			}
			return resp, nil
		case <-timer.C:
			return contract.Response{}, &stageError{Stage: stage, Marker: services.ErrTimeout, Message: "timeout"}
		case <-ctx.Done():
			return contract.Response{}, ctx.Err()
		}
	}
}

func (r *run) dropResponse(resp contract.Response) {
	if r.recorded[resp.Stage] {
		r.logger.Info("duplicate stage response dropped",
			logging.String(logging.FieldStage, string(resp.Stage)))
		return
	}
	r.logger.Warn("out-of-order stage response dropped",
		logging.String(logging.FieldStage, string(resp.Stage)))
}

// record persists a stage result and, when next is non-empty, advances
// the session status. A CAS miss on an already recorded stage is a no-op.
func (r *run) record(ctx context.Context, stage contract.Stage, result any, next session.Status) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return &stageError{Stage: stage, Marker: services.ErrValidation, Message: "encode result: " + err.Error()}
	}
	err = r.o.store.AppendStageResult(ctx, r.sessionID, stage, string(raw))
	switch {
	case errors.Is(err, session.ErrStageRecorded):
		r.logger.Info("stage already recorded, keeping first result",
			logging.String(logging.FieldStage, string(stage)))
	case err != nil:
		return &stageError{Stage: stage, Marker: services.ErrUpstream, Message: "record result: " + err.Error()}
	}
	r.recorded[stage] = true

	if next == "" {
		return nil
	}
	if err := r.o.store.SetStatus(ctx, r.sessionID, next); err != nil {
		return &stageError{Stage: stage, Marker: services.ErrUpstream, Message: "advance status: " + err.Error()}
	}
	return nil
}

func (r *run) complete(ctx context.Context) {
	if err := r.o.store.SetStatus(ctx, r.sessionID, session.StatusCompleted); err != nil {
		r.logger.Error("mark completed", logging.Error(err))
		return
	}
	r.logger.Info("session completed")
	r.publish(ctx)
}

func (r *run) fail(ctx context.Context, serr *stageError) {
	r.logger.Error("session failed",
		logging.String(logging.FieldStage, string(serr.Stage)),
		logging.String(logging.FieldErrorKind, services.Kind(serr)),
		logging.String("message", serr.Message))
	if err := r.o.store.MarkFailed(ctx, r.sessionID, string(serr.Stage), serr.Message); err != nil {
		r.logger.Error("mark failed", logging.Error(err))
	}
	r.publish(ctx)
}

func (r *run) publish(ctx context.Context) {
	sess, err := r.o.store.GetBySessionID(ctx, r.sessionID)
	if err != nil {
		r.logger.Error("load session for publish", logging.Error(err))
		return
	}
	if err := r.o.publisher.Publish(ctx, sess); err != nil {
		r.logger.Error("publish result", logging.Error(err))
	}
}
