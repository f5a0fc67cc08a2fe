package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// stubDevice is a minimal CaptureDevice whose test driver pushes PCM
// through the registered callback.
type stubDevice struct {
	cb       DataCallback
	started  int
	stopped  int
	startErr error
}

func (d *stubDevice) Start() error                { d.started++; return d.startErr }
func (d *stubDevice) Stop()                       { d.stopped++ }
func (d *stubDevice) Close()                      {}
func (d *stubDevice) SetCallback(cb DataCallback) { d.cb = cb }
func (d *stubDevice) ClearCallback()              { d.cb = nil }
func (d *stubDevice) DeviceName() string          { return "stub" }

func (d *stubDevice) push(samples ...int16) {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	if d.cb != nil {
		d.cb(data, uint32(len(samples)))
	}
}

func TestSourceReadAssemblesChunks(t *testing.T) {
	dev := &stubDevice{}
	src, err := Open(dev)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	go func() {
		// Two partial deliveries make up one chunk plus a leftover.
		dev.push(1, 2, 3)
		dev.push(4, 5)
	}()

	chunk, err := src.ReadChunk(context.Background(), 4)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	want := []int16{1, 2, 3, 4}
	for i := range want {
		if chunk.Samples[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, chunk.Samples[i], want[i])
		}
	}
	if chunk.At.IsZero() {
		t.Error("chunk timestamp not set")
	}

	// The leftover sample is still buffered for the next read.
	go dev.push(6, 7, 8)
	chunk, err = src.ReadChunk(context.Background(), 4)
	if err != nil {
		t.Fatalf("second ReadChunk: %v", err)
	}
	if chunk.Samples[0] != 5 {
		t.Fatalf("first sample of second chunk = %d, want 5", chunk.Samples[0])
	}
}

func TestSourceReadCancelled(t *testing.T) {
	dev := &stubDevice{}
	src, err := Open(dev)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = src.ReadChunk(ctx, 1024)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadChunk err = %v, want context.Canceled", err)
	}
}

func TestSourceCloseUnblocksRead(t *testing.T) {
	dev := &stubDevice{}
	src, err := Open(dev)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := src.ReadChunk(context.Background(), 1024)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	src.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSourceClosed) {
			t.Fatalf("ReadChunk err = %v, want ErrSourceClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadChunk still blocked after Close")
	}
}

func TestSourceCloseIdempotent(t *testing.T) {
	dev := &stubDevice{}
	src, err := Open(dev)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	src.Close()
	src.Close() // must not panic or double-stop
	if dev.stopped != 1 {
		t.Fatalf("device stopped %d times, want 1", dev.stopped)
	}
}

func TestSourceOpenStartFailure(t *testing.T) {
	dev := &stubDevice{startErr: errors.New("device busy")}
	if _, err := Open(dev); err == nil {
		t.Fatal("expected error from Open")
	}
	if dev.cb != nil {
		t.Error("callback not cleared after failed Open")
	}
}
