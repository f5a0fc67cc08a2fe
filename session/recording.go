package session

import (
	"context"
	"time"

	"murmur/audio"
	"murmur/vad"
)

type stopReason int

const (
	stopManual stopReason = iota
	stopSilence
	stopMaxDuration
	stopDeviceError
)

func (r stopReason) String() string {
	switch r {
	case stopManual:
		return "manual"
	case stopSilence:
		return "silence"
	case stopMaxDuration:
		return "max duration"
	case stopDeviceError:
		return "device error"
	default:
		return "unknown"
	}
}

// record pulls chunks from the source until the session ends. The source
// is closed before the final event posts, so the device is released
// exactly once no matter how the recording ended.
func (m *Machine) record(ctx context.Context, src audio.Source) {
	start := time.Now()
	lastVoice := start

	finish := func(reason stopReason, err error) {
		src.Close()
		m.post(recDoneEvent{reason: reason, err: err})
	}

	for {
		chunk, err := src.ReadChunk(ctx, m.cfg.ChunkSize)
		if ctx.Err() != nil {
			finish(stopManual, nil)
			return
		}
		if err != nil {
			finish(stopDeviceError, err)
			return
		}

		if vad.Voiced(chunk.Samples, m.cfg.SilenceThreshold) {
			lastVoice = chunk.At
		}
		m.buf.Append(chunk)
		if m.deps.OnLevel != nil {
			m.deps.OnLevel(vad.Level(chunk.Samples))
		}

		if time.Since(lastVoice) >= m.cfg.SilenceDuration {
			finish(stopSilence, nil)
			return
		}
		if time.Since(start) >= m.cfg.MaxDuration {
			finish(stopMaxDuration, nil)
			return
		}
	}
}
