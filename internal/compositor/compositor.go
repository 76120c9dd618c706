package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"soundframe/internal/assetstore"
	"soundframe/internal/config"
	"soundframe/internal/logging"
	"soundframe/internal/services"
)

// Compositor renders mix plans into stereo 16-bit WAV files in the
// asset store.
type Compositor struct {
	cfg    config.Compositor
	assets *assetstore.Store
	logger *slog.Logger
	pool   *ioPool
}

// New creates a compositor over the given asset store.
func New(cfg *config.Config, assets *assetstore.Store, logger *slog.Logger) *Compositor {
	return &Compositor{
		cfg:    cfg.Compositor,
		assets: assets,
		logger: logging.NewComponentLogger(logger, "compositor"),
		pool:   newIOPool(cfg.Compositor.IOWorkers),
	}
}

// Result describes one finished mix.
type Result struct {
	AudioRef   string
	DurationMS int64
	Layers     int
}

type loadedLayer struct {
	layer Layer
	data  []int
	ok    bool
}

// Compose renders a plan and writes the final mix as
// <sessionID>-final.wav. Voice layers whose assets are missing or
// undecodable are skipped; ambient labels without a library asset are
// skipped; an empty timeline is a composition error.
func (c *Compositor) Compose(ctx context.Context, sessionID string, plan Plan) (Result, error) {
	if len(plan.Layers) == 0 {
		return Result{}, services.Wrap(services.ErrComposition, "mix", "compose", "empty plan", nil)
	}

	loaded := make([]loadedLayer, len(plan.Layers))
	var wg sync.WaitGroup
	for i := range plan.Layers {
		i := i
		wg.Add(1)
		err := c.pool.run(ctx, func() {
			defer wg.Done()
			loaded[i] = c.load(plan.Layers[i])
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return Result{}, err
		}
	}
	wg.Wait()

	frames := 0
	for _, l := range loaded {
		if !l.ok || l.layer.Loop {
			continue
		}
		end := c.msToFrames(l.layer.OffsetMS) + len(l.data)
		if end > frames {
			frames = end
		}
	}
	if frames == 0 {
		return Result{}, services.Wrap(services.ErrComposition, "mix", "compose", "no layers placed", nil)
	}

	left := make([]float64, frames)
	right := make([]float64, frames)
	placed := 0
	for _, l := range loaded {
		if !l.ok || len(l.data) == 0 {
			continue
		}
		c.overlay(left, right, l)
		placed++
	}
	if placed == 0 {
		return Result{}, services.Wrap(services.ErrComposition, "mix", "compose", "no layers placed", nil)
	}

	ref := sessionID + "-final.wav"
	if err := c.export(ctx, ref, left, right); err != nil {
		return Result{}, err
	}

	durationMS := int64(frames) * 1000 / int64(c.sampleRate())
	c.logger.Info("mix composed",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("audio_ref", ref),
		logging.Int("layers", placed),
		logging.Int64("duration_ms", durationMS))
	return Result{AudioRef: ref, DurationMS: durationMS, Layers: placed}, nil
}

// load reads and decodes one layer's source. Any problem short of a
// programming error degrades to a skipped layer.
func (c *Compositor) load(layer Layer) loadedLayer {
	file, err := c.openSource(layer)
	if err != nil {
		if errors.Is(err, services.ErrAssetMissing) {
			c.logger.Warn("layer asset missing, skipping layer",
				logging.String("kind", layer.Kind),
				logging.String("source", layer.Source))
		} else {
			c.logger.Warn("layer asset unreadable, skipping layer",
				logging.String("kind", layer.Kind),
				logging.String("source", layer.Source),
				logging.Error(err))
		}
		return loadedLayer{layer: layer}
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		c.logger.Warn("layer asset undecodable, skipping layer",
			logging.String("kind", layer.Kind),
			logging.String("source", layer.Source),
			logging.Error(err))
		return loadedLayer{layer: layer}
	}
	if buf.Format == nil || buf.Format.SampleRate != c.sampleRate() {
		c.logger.Warn("layer sample rate mismatch, skipping layer",
			logging.String("kind", layer.Kind),
			logging.String("source", layer.Source))
		return loadedLayer{layer: layer}
	}

	return loadedLayer{layer: layer, data: downmix(buf), ok: true}
}

func (c *Compositor) openSource(layer Layer) (*os.File, error) {
	if layer.Kind == LayerAmbient {
		path, ok := c.assets.ResolveAmbient(layer.Source)
		if !ok {
			return nil, services.Wrap(services.ErrAssetMissing, "mix", "resolve ambient", layer.Source, nil)
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open ambient %q: %w", layer.Source, err)
		}
		return file, nil
	}
	return c.assets.Open(layer.Source)
}

// overlay adds one layer into the stereo accumulators. Loop layers
// repeat for the full timeline; finite layers sit at their offset.
func (c *Compositor) overlay(left, right []float64, l loadedLayer) {
	leftGain, rightGain := panGains(l.layer.Pan)
	leftGain *= l.layer.Gain
	rightGain *= l.layer.Gain

	if l.layer.Loop {
		for i := range left {
			v := sampleToFloat(l.data[i%len(l.data)])
			left[i] += v * leftGain
			right[i] += v * rightGain
		}
		return
	}

	offset := c.msToFrames(l.layer.OffsetMS)
	for i, sample := range l.data {
		frame := offset + i
		if frame >= len(left) {
			break
		}
		v := sampleToFloat(sample)
		left[frame] += v * leftGain
		right[frame] += v * rightGain
	}
}

func (c *Compositor) export(ctx context.Context, ref string, left, right []float64) error {
	errs := make(chan error, 1)
	err := c.pool.run(ctx, func() {
		errs <- c.writeWAV(ref, left, right)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-errs:
		if err != nil {
			return services.Wrap(services.ErrComposition, "mix", "export", err.Error(), nil)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Compositor) writeWAV(ref string, left, right []float64) error {
	file, err := c.assets.Create(ref)
	if err != nil {
		return err
	}

	data := make([]int, 0, len(left)*2)
	for i := range left {
		data = append(data, clampSample(left[i]), clampSample(right[i]))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: c.sampleRate()},
		Data:           data,
		SourceBitDepth: 16,
	}

	encoder := wav.NewEncoder(file, c.sampleRate(), 16, 2, 1)
	if err := encoder.Write(buf); err != nil {
		_ = encoder.Close()
		_ = file.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (c *Compositor) sampleRate() int {
	if c.cfg.SampleRate > 0 {
		return c.cfg.SampleRate
	}
	return 44100
}

func (c *Compositor) msToFrames(ms int) int {
	return ms * c.sampleRate() / 1000
}

// downmix flattens a decoded buffer to mono by averaging channels.
func downmix(buf *audio.IntBuffer) []int {
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}
	if channels == 1 {
		return buf.Data
	}
	frames := len(buf.Data) / channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += buf.Data[i*channels+ch]
		}
		out[i] = sum / channels
	}
	return out
}

// panGains maps a pan in [-1, 1] to per-channel gains: positive pan
// attenuates the left channel, negative the right.
func panGains(pan float64) (float64, float64) {
	switch {
	case pan > 0:
		return 1 - pan, 1
	case pan < 0:
		return 1, 1 + pan
	default:
		return 1, 1
	}
}

func sampleToFloat(sample int) float64 {
	return float64(sample) / math.MaxInt16
}

func clampSample(v float64) int {
	scaled := v * math.MaxInt16
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int(scaled)
}
