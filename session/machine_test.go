package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"murmur/audio"
	"murmur/transcriber"
)

type fakeSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *fakeSink) Deliver(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSink) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// fixture wires a Machine to scripted audio, a fake engine and a fake sink,
// with timings shrunk so a full session runs in tens of milliseconds.
type fixture struct {
	m      *Machine
	engine *transcriber.FakeInvoker
	sink   *fakeSink

	mu      sync.Mutex
	notes   []Notification
	sources []*audio.ScriptedSource
	openErr error
	gen     func(int) ([]int16, error)
	pace    time.Duration
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SilenceDuration = 60 * time.Millisecond
	cfg.MaxDuration = 2 * time.Second
	cfg.Debounce = 30 * time.Millisecond
	cfg.MessageDuration = 40 * time.Millisecond
	cfg.RecoverDelay = 60 * time.Millisecond
	return cfg
}

func newFixture(t *testing.T, cfg Config, gen func(int) ([]int16, error), engine *transcriber.FakeInvoker) *fixture {
	t.Helper()
	f := &fixture{engine: engine, sink: &fakeSink{}, gen: gen}

	deps := Deps{
		OpenSource: func() (audio.Source, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.openErr != nil {
				return nil, f.openErr
			}
			pace := f.pace
			if pace == 0 {
				pace = 5 * time.Millisecond
			}
			src := &audio.ScriptedSource{Gen: f.gen, Pace: pace}
			f.sources = append(f.sources, src)
			return src, nil
		},
		Sink: f.sink,
		Notify: func(n Notification) {
			f.mu.Lock()
			f.notes = append(f.notes, n)
			f.mu.Unlock()
		},
	}
	if engine != nil {
		deps.Engine = engine
	}

	f.m = New(cfg, deps)
	f.m.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		f.m.Shutdown(ctx)
	})
	return f
}

func (f *fixture) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sources)
}

func (f *fixture) source(i int) *audio.ScriptedSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[i]
}

func (f *fixture) sawStatus(status string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.Status == status {
			return true
		}
	}
	return false
}

func (f *fixture) sawStatusAfter(status, after string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := 0
	for ; i < len(f.notes); i++ {
		if f.notes[i].Status == after {
			break
		}
	}
	for i++; i < len(f.notes); i++ {
		if f.notes[i].Status == status {
			return true
		}
	}
	return false
}

func waitState(t *testing.T, m *Machine, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", m.State(), want)
}

func waitStatus(t *testing.T, f *fixture, status string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.sawStatus(status) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	f.mu.Lock()
	notes := append([]Notification(nil), f.notes...)
	f.mu.Unlock()
	t.Fatalf("never saw status %q, notes: %+v", status, notes)
}

func TestManualStopRoundTrip(t *testing.T) {
	f := newFixture(t, testConfig(), audio.Tone(0.5, 1000), transcriber.NewFake("hello world", nil))

	f.m.Trigger()
	waitState(t, f.m, StateRecording)

	time.Sleep(40 * time.Millisecond) // past the debounce window
	f.m.Trigger()
	waitStatus(t, f, "Pasted")
	waitState(t, f.m, StateReady)

	if got := f.sink.Texts(); len(got) != 1 || got[0] != "hello world" {
		t.Errorf("delivered = %q, want [hello world]", got)
	}
	if f.opens() != 1 {
		t.Errorf("opened %d sources, want 1", f.opens())
	}
	if f.source(0).Closes() != 1 {
		t.Errorf("source closed %d times, want 1", f.source(0).Closes())
	}
}

func TestSilenceAutoStop(t *testing.T) {
	f := newFixture(t, testConfig(), audio.Tone(0.5, 3), transcriber.NewFake("ok", nil))

	f.m.Trigger()
	waitState(t, f.m, StateRecording)
	// 3 voiced chunks then silence; the 60ms silence window expires on its own
	waitStatus(t, f, "Pasted")
	waitState(t, f.m, StateReady)

	if f.source(0).Closes() != 1 {
		t.Errorf("source closed %d times, want 1", f.source(0).Closes())
	}
}

func TestMaxDurationAutoStop(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = 80 * time.Millisecond
	cfg.SilenceDuration = time.Second
	f := newFixture(t, cfg, audio.Tone(0.5, 100000), transcriber.NewFake("ok", nil))

	f.m.Trigger()
	waitState(t, f.m, StateRecording)
	waitStatus(t, f, "Pasted")
	waitState(t, f.m, StateReady)
}

func TestRapidTriggersStartOneSession(t *testing.T) {
	f := newFixture(t, testConfig(), audio.Tone(0.5, 1000), transcriber.NewFake("ok", nil))

	f.m.Trigger()
	waitState(t, f.m, StateRecording)
	f.m.Trigger() // inside the debounce window, must not stop the session
	f.m.Trigger()

	time.Sleep(50 * time.Millisecond)
	if f.m.State() != StateRecording {
		t.Fatalf("state = %v, want recording", f.m.State())
	}
	if f.opens() != 1 {
		t.Errorf("opened %d sources, want 1", f.opens())
	}
}

func TestTriggerDuringTranscribingIgnored(t *testing.T) {
	engine := transcriber.NewFake("ok", nil)
	engine.Delay = 100 * time.Millisecond
	f := newFixture(t, testConfig(), audio.Tone(0.5, 3), engine)

	f.m.Trigger()
	waitState(t, f.m, StateTranscribing)

	time.Sleep(40 * time.Millisecond)
	f.m.Trigger()
	time.Sleep(10 * time.Millisecond)
	if f.opens() != 1 {
		t.Errorf("opened %d sources, want 1", f.opens())
	}

	waitState(t, f.m, StateReady)
}

func TestDeviceReadErrorEntersErrorAndRecovers(t *testing.T) {
	readErr := errors.New("device unplugged")
	gen := func(i int) ([]int16, error) {
		if i >= 2 {
			return nil, readErr
		}
		return make([]int16, 1024), nil
	}
	f := newFixture(t, testConfig(), gen, transcriber.NewFake("ok", nil))

	f.m.Trigger()
	waitState(t, f.m, StateError)

	if f.source(0).Closes() != 1 {
		t.Errorf("source closed %d times, want 1", f.source(0).Closes())
	}
	if f.engine.Calls() != 0 {
		t.Errorf("engine called %d times, want 0", f.engine.Calls())
	}
	if len(f.sink.Texts()) != 0 {
		t.Errorf("sink received %q, want nothing", f.sink.Texts())
	}

	// flat recovery delay, then triggers work again
	waitState(t, f.m, StateReady)
}

func TestOpenFailureEntersError(t *testing.T) {
	f := newFixture(t, testConfig(), audio.Silence(), transcriber.NewFake("ok", nil))
	f.mu.Lock()
	f.openErr = errors.New("no capture device")
	f.mu.Unlock()

	f.m.Trigger()
	waitState(t, f.m, StateError)
	waitState(t, f.m, StateReady)

	// device works again after recovery
	f.mu.Lock()
	f.openErr = nil
	f.mu.Unlock()
	time.Sleep(40 * time.Millisecond)
	f.m.Trigger()
	waitState(t, f.m, StateRecording)
}

func TestTriggerWithoutEngineRejectedBeforeCapture(t *testing.T) {
	f := newFixture(t, testConfig(), audio.Tone(0.5, 1000), nil)

	f.m.Trigger()
	waitState(t, f.m, StateError)

	if f.opens() != 0 {
		t.Errorf("opened %d sources, want 0", f.opens())
	}
	if f.sawStatus("Recording") {
		t.Error("recording started without a transcription engine")
	}
	f.mu.Lock()
	var hint string
	for _, n := range f.notes {
		if n.State == StateError {
			hint = n.Hint
		}
	}
	f.mu.Unlock()
	if !strings.Contains(hint, "engine not ready") {
		t.Errorf("error hint = %q, want engine not ready", hint)
	}

	// flat recovery delay, then back to ready
	waitState(t, f.m, StateReady)
}

func TestStopBeforeFirstChunkSkipsTranscribing(t *testing.T) {
	cfg := testConfig()
	cfg.Debounce = time.Millisecond
	f := newFixture(t, cfg, audio.Tone(0.5, 1000), transcriber.NewFake("ok", nil))
	f.mu.Lock()
	f.pace = 300 * time.Millisecond
	f.mu.Unlock()

	f.m.Trigger()
	waitState(t, f.m, StateRecording)
	time.Sleep(5 * time.Millisecond) // past the debounce window, before the first read completes
	f.m.Trigger()

	waitStatus(t, f, "No audio")
	waitState(t, f.m, StateReady)

	if f.sawStatus("Transcribing...") {
		t.Error("entered transcribing with nothing captured")
	}
	if f.engine.Calls() != 0 {
		t.Errorf("engine called %d times, want 0", f.engine.Calls())
	}
	if f.source(0).Closes() != 1 {
		t.Errorf("source closed %d times, want 1", f.source(0).Closes())
	}
}

func TestShutdownDuringRecordingReleasesDevice(t *testing.T) {
	f := newFixture(t, testConfig(), audio.Tone(0.5, 1000), transcriber.NewFake("ok", nil))

	f.m.Trigger()
	waitState(t, f.m, StateRecording)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if f.source(0).Closes() != 1 {
		t.Errorf("source closed %d times, want 1", f.source(0).Closes())
	}
}

func TestTransientMessageClears(t *testing.T) {
	f := newFixture(t, testConfig(), audio.Tone(0.5, 3), transcriber.NewFake("ok", nil))

	f.m.Trigger()
	waitStatus(t, f, "Pasted")

	// after MessageDuration the status falls back to the plain ready text
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.sawStatusAfter("Ready", "Pasted") {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("transient message never cleared back to Ready")
}

func TestStateStrings(t *testing.T) {
	for s, want := range map[State]string{
		StateReady:        "ready",
		StateRecording:    "recording",
		StateTranscribing: "transcribing",
		StateError:        "error",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
