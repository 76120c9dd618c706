package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteToneWAV writes a mono 16-bit PCM sine tone of the given duration to
// path. Useful as a stand-in for synthesized voice or ambient assets.
func WriteToneWAV(t testing.TB, path string, sampleRate int, durationMS int, freqHz float64) {
	t.Helper()

	samples := sampleRate * durationMS / 1000
	data := make([]int, samples)
	for i := range data {
		value := math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate))
		data[i] = int(value * 0.5 * math.MaxInt16)
	}
	writeWAV(t, path, sampleRate, data)
}

// WriteSilenceWAV writes a mono 16-bit PCM silent file of the given duration.
func WriteSilenceWAV(t testing.TB, path string, sampleRate int, durationMS int) {
	t.Helper()
	writeWAV(t, path, sampleRate, make([]int, sampleRate*durationMS/1000))
}

func writeWAV(t testing.TB, path string, sampleRate int, data []int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("close encoder for %s: %v", path, err)
	}
}
