package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/encoder"
	"murmur/hotkey"
	"murmur/log"
	"murmur/session"
	"murmur/shutdown"
	"murmur/transcriber"
	"murmur/ui"
)

var version = "dev"

func run() {
	silenceFlag := flag.Duration("silence", time.Second, "Silence duration before auto-stop")
	maxDurFlag := flag.Duration("maxdur", 30*time.Second, "Hard cap on recording length")
	thresholdFlag := flag.Float64("threshold", 0.01, "Voice amplitude threshold (fraction of full scale)")
	langFlag := flag.String("lang", "en", "Language code for transcription (e.g., en, es, fr). Empty = auto-detect")
	autoPasteFlag := flag.Bool("autopaste", true, "Auto-paste to focused window after transcription")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	outputFlag := flag.String("output", "", "Append transcripts to this file")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	cfg := session.DefaultConfig()
	cfg.SilenceDuration = *silenceFlag
	cfg.MaxDuration = *maxDurFlag
	cfg.SilenceThreshold = *thresholdFlag
	cfg.Language = *langFlag

	engine, err := transcriber.New()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(engine.Name(), cfg.Language)

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: murmur -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(args[0], cfg, engine, *autoPasteFlag, *outputFlag)
		return
	}

	if *autoPasteFlag {
		if err := clipboard.Init(); err != nil {
			fmt.Printf("Warning: paste init failed: %v\n", err)
			fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := actx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   encoder.Channels,
	}
	captureDevice, err := actx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer captureDevice.Close()

	view := ui.New(version, engineLabel(engine, cfg.Language), deviceLabel(selectedDevice))

	machine := session.New(cfg, session.Deps{
		OpenSource: func() (audio.Source, error) { return audio.Open(captureDevice) },
		Engine:     engine,
		Sink:       clipboard.NewSink(*autoPasteFlag, *outputFlag),
		Notify:     view.Notify,
		OnLevel:    view.Level,
	})
	machine.Start()

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	go func() {
		for range hk.Triggers() {
			machine.Trigger()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		view.Quit()
	}()

	if err := view.Run(); err != nil {
		log.Errorf("ui error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := machine.Shutdown(ctx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
}

func engineLabel(engine transcriber.Invoker, lang string) string {
	label := engine.Name()
	if lang != "" {
		label += " (" + lang + ")"
	}
	return label
}

func deviceLabel(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}
