package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"murmur/encoder"
	"murmur/log"
	"murmur/transcriber"
)

// quietFloor is well below the silence threshold: a recording whose peak
// never clears it carries nothing worth uploading.
const quietFloor = 1e-4

// transcribe runs off the controller goroutine and reports back with a
// single trDoneEvent. The temporary audio file never outlives the call.
func (m *Machine) transcribe(samples []int16, peak float64) {
	if len(samples) == 0 {
		m.post(trDoneEvent{transient: "No audio"})
		return
	}
	if peak < quietFloor {
		m.post(trDoneEvent{transient: "Too quiet"})
		return
	}
	if m.deps.Engine == nil {
		m.post(trDoneEvent{err: engineFailure(errEngineNotReady)})
		return
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("murmur_%d.flac", time.Now().UnixNano()))
	encodeStart := time.Now()
	if err := encoder.WriteFile(path, samples, m.cfg.SampleRate); err != nil {
		m.post(trDoneEvent{err: transcriptionFailure(fmt.Errorf("encoding audio: %w", err))})
		return
	}
	defer os.Remove(path)
	encodeTime := time.Since(encodeStart)

	result, err := m.deps.Engine.Transcribe(context.Background(), path, transcriber.Options{
		VoiceFilter:    true,
		WordTimestamps: false,
		Language:       m.cfg.Language,
	})
	if err != nil {
		m.post(trDoneEvent{err: transcriptionFailure(err)})
		return
	}

	m.logMetrics(path, samples, encodeTime, result)

	var parts []string
	for _, seg := range result.Segments {
		parts = append(parts, seg.Text)
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		m.post(trDoneEvent{transient: "No speech"})
		return
	}

	if m.deps.Sink != nil {
		if err := m.deps.Sink.Deliver(text); err != nil {
			m.post(trDoneEvent{err: sinkFailure(err)})
			return
		}
	}
	log.TranscriptionText(text)

	m.post(trDoneEvent{text: text, transient: "Pasted"})
}

func (m *Machine) logMetrics(path string, samples []int16, encodeTime time.Duration, result *transcriber.Result) {
	metrics := log.Metrics{
		AudioLengthS: float64(len(samples)) / float64(m.cfg.SampleRate),
		RawSizeKB:    float64(len(samples)*2) / 1024,
		EncodeTimeMs: float64(encodeTime.Milliseconds()),
	}
	if fi, err := os.Stat(path); err == nil {
		metrics.FlacSizeKB = float64(fi.Size()) / 1024
	}
	var connReused bool
	var tlsProto string
	if result.Metrics != nil {
		metrics.DNSTimeMs = float64(result.Metrics.DNS.Milliseconds())
		metrics.TLSTimeMs = float64(result.Metrics.TLS.Milliseconds())
		metrics.TTFBMs = float64(result.Metrics.TTFB.Milliseconds())
		metrics.TotalTimeMs = float64(result.Metrics.Total.Milliseconds())
		connReused = result.Metrics.ConnReused
		tlsProto = result.Metrics.TLSProtocol
	}
	log.TranscriptionMetrics(metrics, m.deps.Engine.Name(), connReused, tlsProto)
}
