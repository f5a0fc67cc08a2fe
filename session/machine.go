package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/log"
	"murmur/transcriber"
)

type State int32

const (
	StateReady State = iota
	StateRecording
	StateTranscribing
	StateError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is pushed to the UI on every visible change: a state
// transition or a short-lived status message.
type Notification struct {
	State  State
	Status string
	Hint   string
}

type Sink interface {
	Deliver(text string) error
}

type Deps struct {
	OpenSource func() (audio.Source, error)
	Engine     transcriber.Invoker
	Sink       Sink
	Notify     func(Notification)
	OnLevel    func(float64)
}

type (
	trigEvent    struct{}
	recDoneEvent struct {
		reason stopReason
		err    error
	}
	trDoneEvent struct {
		text      string
		transient string
		err       *Failure
	}
	clearEvent   struct{ seq uint64 }
	recoverEvent struct{ seq uint64 }
)

// Machine is the session state machine. All transitions run on a single
// controller goroutine consuming the events channel; Trigger and the
// recording/transcribing tasks only ever post events, so there is exactly
// one writer of session state and no lock.
type Machine struct {
	cfg  Config
	deps Deps

	events   chan any
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	stateAtomic atomic.Int32

	// controller-owned, never touched outside the run loop
	state       State
	buf         *audio.Buffer
	lastTrigger time.Time
	recCancel   context.CancelFunc
	recActive   bool
	seq         uint64
	msgSeq      uint64
	errSeq      uint64
}

func New(cfg Config, deps Deps) *Machine {
	return &Machine{
		cfg:    cfg,
		deps:   deps,
		events: make(chan any, 16),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		buf:    audio.NewBuffer(cfg.MaxBufferChunks()),
	}
}

func (m *Machine) Start() {
	m.setState(StateReady)
	m.notifyState()
	go m.run()
}

// Trigger posts a hotkey press. Never blocks; a press that arrives while
// the queue is full is dropped, which the debounce would discard anyway.
func (m *Machine) Trigger() {
	select {
	case m.events <- trigEvent{}:
	default:
	}
}

func (m *Machine) State() State {
	return State(m.stateAtomic.Load())
}

// Shutdown stops the controller, cancelling any in-flight recording and
// waiting for the device to be released.
func (m *Machine) Shutdown(ctx context.Context) error {
	m.quitOnce.Do(func() { close(m.quit) })
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) run() {
	defer close(m.done)
	for {
		select {
		case <-m.quit:
			if m.recActive {
				m.recCancel()
				m.drainRecording()
			}
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

// drainRecording waits for the cancelled recording goroutine to close the
// device and post its final event.
func (m *Machine) drainRecording() {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-m.events:
			if _, ok := ev.(recDoneEvent); ok {
				return
			}
		case <-deadline:
			log.Warn("recording did not stop within shutdown deadline")
			return
		}
	}
}

func (m *Machine) handle(ev any) {
	switch ev := ev.(type) {
	case trigEvent:
		m.onTrigger()
	case recDoneEvent:
		m.onRecordingDone(ev)
	case trDoneEvent:
		m.onTranscribeDone(ev)
	case clearEvent:
		if ev.seq == m.msgSeq && m.state == StateReady {
			m.notifyState()
		}
	case recoverEvent:
		if ev.seq == m.errSeq && m.state == StateError {
			m.setState(StateReady)
			m.notifyState()
		}
	}
}

func (m *Machine) onTrigger() {
	now := time.Now()
	if now.Sub(m.lastTrigger) < m.cfg.Debounce {
		return
	}
	m.lastTrigger = now

	switch m.state {
	case StateReady:
		m.startRecording()
	case StateRecording:
		// manual stop; the recording loop sees the cancel and winds down
		m.recCancel()
	default:
		// transcribing and error swallow triggers
	}
}

func (m *Machine) startRecording() {
	if m.deps.Engine == nil {
		m.enterError(engineFailure(errEngineNotReady))
		return
	}

	src, err := m.deps.OpenSource()
	if err != nil {
		m.enterError(deviceFailure(err))
		return
	}

	m.buf.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	m.recCancel = cancel
	m.recActive = true
	m.setState(StateRecording)
	m.notifyState()
	log.Info("recording started")

	go m.record(ctx, src)
}

func (m *Machine) onRecordingDone(ev recDoneEvent) {
	m.recActive = false
	if m.recCancel != nil {
		m.recCancel()
		m.recCancel = nil
	}
	if m.state != StateRecording {
		return
	}

	if ev.reason == stopDeviceError {
		m.buf.Reset()
		m.enterError(deviceFailure(ev.err))
		return
	}
	log.Infof("recording stopped: %s", ev.reason)

	if m.buf.Empty() {
		// nothing captured, skip the transcribing stage entirely
		m.setState(StateReady)
		m.showTransient("No audio")
		return
	}

	samples := m.buf.Concatenate()
	peak := m.buf.PeakAmplitude()
	m.buf.Reset()

	m.setState(StateTranscribing)
	m.notifyState()

	go m.transcribe(samples, peak)
}

func (m *Machine) onTranscribeDone(ev trDoneEvent) {
	if m.state != StateTranscribing {
		return
	}
	if ev.err != nil {
		m.enterError(ev.err)
		return
	}
	if ev.text != "" {
		log.SessionEnd(len(ev.text))
	}
	m.setState(StateReady)
	m.showTransient(ev.transient)
}

// showTransient flashes a short status over the Ready state and schedules
// its removal. A newer message or state change makes the stale clear a no-op.
func (m *Machine) showTransient(status string) {
	m.notify(Notification{State: StateReady, Status: status, Hint: hintText(StateReady)})
	m.seq++
	seq := m.seq
	m.msgSeq = seq
	time.AfterFunc(m.cfg.MessageDuration, func() {
		m.post(clearEvent{seq: seq})
	})
}

func (m *Machine) enterError(f *Failure) {
	log.Errorf("session error: %v", f)
	m.setState(StateError)
	m.notify(Notification{State: StateError, Status: "Error", Hint: f.Error()})
	m.seq++
	seq := m.seq
	m.errSeq = seq
	time.AfterFunc(m.cfg.RecoverDelay, func() {
		m.post(recoverEvent{seq: seq})
	})
}

func (m *Machine) post(ev any) {
	select {
	case m.events <- ev:
	case <-m.quit:
	}
}

func (m *Machine) setState(s State) {
	m.state = s
	m.stateAtomic.Store(int32(s))
}

func (m *Machine) notifyState() {
	m.notify(Notification{State: m.state, Status: statusText(m.state), Hint: hintText(m.state)})
}

func (m *Machine) notify(n Notification) {
	if m.deps.Notify != nil {
		m.deps.Notify(n)
	}
}

func statusText(s State) string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRecording:
		return "Recording"
	case StateTranscribing:
		return "Transcribing..."
	case StateError:
		return "Error"
	default:
		return ""
	}
}

func hintText(s State) string {
	switch s {
	case StateReady:
		return "Press Ctrl+Shift+Space and speak"
	case StateRecording:
		return "Press again to stop"
	default:
		return ""
	}
}
