package audio

import (
	"context"
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// ScriptedSource is a Source for tests: read i returns the samples produced
// by Gen(i), optionally paced to simulate a real-time device. Close calls are
// counted so tests can assert the device is released exactly once.
type ScriptedSource struct {
	// Gen produces the samples for the i-th read. A returned error is
	// surfaced as a device read failure.
	Gen func(i int) ([]int16, error)
	// Pace is how long each read blocks, mimicking size/sampleRate pacing.
	// Zero means reads return immediately.
	Pace time.Duration

	mu     sync.Mutex
	reads  int
	closes int
	closed bool
}

func (s *ScriptedSource) ReadChunk(ctx context.Context, n int) (Chunk, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Chunk{}, ErrSourceClosed
	}
	i := s.reads
	s.reads++
	s.mu.Unlock()

	if s.Pace > 0 {
		select {
		case <-time.After(s.Pace):
		case <-ctx.Done():
			return Chunk{}, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	samples, err := s.Gen(i)
	if err != nil {
		return Chunk{}, err
	}
	out := make([]int16, n)
	copy(out, samples)
	return Chunk{Samples: out, At: time.Now()}, nil
}

func (s *ScriptedSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.closed = true
}

func (s *ScriptedSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *ScriptedSource) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Silence returns a Gen producing all-zero chunks.
func Silence() func(int) ([]int16, error) {
	return func(int) ([]int16, error) { return make([]int16, fakeFrameSize), nil }
}

// Tone returns a Gen producing chunks with the given constant amplitude
// (full-scale fraction) for the first voiced reads, silence afterwards.
func Tone(amplitude float64, voiced int) func(int) ([]int16, error) {
	level := int16(amplitude * 32768)
	return func(i int) ([]int16, error) {
		samples := make([]int16, fakeFrameSize)
		if i < voiced {
			for j := range samples {
				samples[j] = level
			}
		}
		return samples, nil
	}
}

// FakeContext replays a WAV file through the CaptureDevice interface in real
// time, then feeds silence, so the headless test mode exercises the same
// code path as a live microphone.
type FakeContext struct {
	pcm []byte
}

func NewFakeContext(wavPath string) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{pcm: data}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return nil, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, rate: cfg.SampleRate}, nil
}

type FakeCapture struct {
	pcm  []byte
	rate uint32

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.rate)

	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)

		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}

			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb == nil {
				continue
			}

			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				pos = end
				cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
			} else {
				cb(silence, fakeFrameSize)
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}
