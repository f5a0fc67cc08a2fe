package transcriber

import (
	"context"
	"os"
	"sync"
	"time"
)

// FakeInvoker returns canned segments without touching the network.
type FakeInvoker struct {
	Segments []Segment
	Err      error
	Delay    time.Duration

	mu       sync.Mutex
	calls    int
	lastPath string
	lastOpts Options
	sawFile  bool
}

func NewFake(text string, err error) *FakeInvoker {
	f := &FakeInvoker{Err: err}
	if text != "" {
		f.Segments = []Segment{{Text: text}}
	}
	return f
}

func (f *FakeInvoker) Name() string { return "fake" }

func (f *FakeInvoker) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	f.mu.Lock()
	f.calls++
	f.lastPath = audioPath
	f.lastOpts = opts
	if _, err := os.Stat(audioPath); err == nil {
		f.sawFile = true
	}
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &Result{Segments: f.Segments, Metrics: &NetworkMetrics{}}, nil
}

func (f *FakeInvoker) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeInvoker) LastPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath
}

func (f *FakeInvoker) LastOpts() Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOpts
}

// SawFile reports whether the audio file existed when Transcribe ran.
func (f *FakeInvoker) SawFile() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sawFile
}
