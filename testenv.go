package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/encoder"
	"murmur/hotkey"
	"murmur/log"
	"murmur/session"
	"murmur/transcriber"
)

// runTestMode drives a full session pipeline headlessly: audio comes from a
// WAV file replayed in real time, the hotkey is simulated over stdin, and
// state transitions go to stdout so a harness can assert on them.
//
// Commands, one per line: TRIGGER, WAIT (block until the session returns to
// ready), SLEEP <ms>, QUIT.
func runTestMode(wavPath string, cfg session.Config, engine transcriber.Invoker, autoPaste bool, outputPath string) {
	if autoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
		}
	}

	fakeCtx, err := audio.NewFakeContext(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: uint32(cfg.SampleRate), Channels: encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	hk := hotkey.NewFake()
	idle := make(chan struct{}, 1)

	lastState := session.StateReady
	machine := session.New(cfg, session.Deps{
		OpenSource: func() (audio.Source, error) { return audio.Open(capture) },
		Engine:     engine,
		Sink:       clipboard.NewSink(autoPaste, outputPath),
		Notify: func(n session.Notification) {
			fmt.Printf("%s\t%s\n", n.State, n.Status)
			if n.State == session.StateReady && lastState != session.StateReady {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
			lastState = n.State
		},
	})
	machine.Start()

	go func() {
		for range hk.Triggers() {
			machine.Trigger()
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "TRIGGER":
			hk.Trigger()
		case cmd == "WAIT":
			<-idle
		case cmd == "QUIT":
			shutdownMachine(machine)
			return
		case strings.HasPrefix(cmd, "SLEEP "):
			if ms, err := strconv.Atoi(cmd[6:]); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		}
	}
	shutdownMachine(machine)
}

func shutdownMachine(m *session.Machine) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
}
