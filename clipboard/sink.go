package clipboard

import (
	"fmt"
	"os"

	"murmur/log"
)

// Sink delivers a finished transcript. The clipboard copy is the contract;
// auto-paste and the transcript file are best effort on top of it.
type Sink struct {
	AutoPaste  bool
	OutputPath string

	copyFn  func(string) error
	pasteFn func() error
}

func NewSink(autoPaste bool, outputPath string) *Sink {
	return &Sink{
		AutoPaste:  autoPaste,
		OutputPath: outputPath,
		copyFn:     Copy,
		pasteFn:    Paste,
	}
}

// Deliver fails only if the clipboard copy fails. A paste or transcript
// write failure is logged and swallowed: the text is already on the
// clipboard, so the user can paste it by hand.
func (s *Sink) Deliver(text string) error {
	if err := s.copyFn(text); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	if s.OutputPath != "" {
		if err := appendTranscript(s.OutputPath, text); err != nil {
			log.Warnf("transcript file: %v", err)
		}
	}
	if s.AutoPaste {
		if err := s.pasteFn(); err != nil {
			log.Warnf("paste failed, text is on clipboard: %v", err)
		}
	}
	return nil
}

func appendTranscript(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(text + "\n")
	return err
}
