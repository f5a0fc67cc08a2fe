package session

import (
	"errors"
	"fmt"
)

// errEngineNotReady rejects dictation before any audio is captured when no
// transcription backend is configured.
var errEngineNotReady = errors.New("engine not ready")

type FailureKind int

const (
	FailureDevice FailureKind = iota
	FailureEngine
	FailureTranscription
	FailureSink
)

func (k FailureKind) String() string {
	switch k {
	case FailureDevice:
		return "device"
	case FailureEngine:
		return "engine"
	case FailureTranscription:
		return "transcription"
	case FailureSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Failure tags an error with the pipeline stage it came from so the
// machine can report it without inspecting error strings.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String() + " failure"
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func deviceFailure(err error) *Failure {
	return &Failure{Kind: FailureDevice, Err: err}
}

func engineFailure(err error) *Failure {
	return &Failure{Kind: FailureEngine, Err: err}
}

func transcriptionFailure(err error) *Failure {
	return &Failure{Kind: FailureTranscription, Err: err}
}

func sinkFailure(err error) *Failure {
	return &Failure{Kind: FailureSink, Err: err}
}
