package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Source hands out fixed-size sample chunks from a capture device. Reads
// block until the device has produced enough samples, so a ReadChunk of n
// samples takes roughly n/sampleRate seconds of wall time.
//
// Close stops the device and is safe to call more than once; a ReadChunk
// blocked at the time of Close returns ErrSourceClosed.
type Source interface {
	ReadChunk(ctx context.Context, n int) (Chunk, error)
	Close()
}

var ErrSourceClosed = fmt.Errorf("audio source closed")

// deviceSource adapts a callback-driven CaptureDevice to blocking reads.
// The device callback appends samples to a fifo under the mutex; ReadChunk
// waits on the cond until a full chunk is buffered.
type deviceSource struct {
	dev CaptureDevice

	mu     sync.Mutex
	cond   *sync.Cond
	fifo   []int16
	closed bool

	once sync.Once
}

// Open checks the capture device out for one recording session: it installs
// the PCM callback and starts the stream. The caller must Close the returned
// Source on every exit path.
func Open(dev CaptureDevice) (Source, error) {
	s := &deviceSource{dev: dev}
	s.cond = sync.NewCond(&s.mu)

	dev.SetCallback(func(data []byte, frameCount uint32) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		for i := 0; i+1 < len(data); i += 2 {
			s.fifo = append(s.fifo, int16(binary.LittleEndian.Uint16(data[i:])))
		}
		s.cond.Broadcast()
	})

	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		return nil, fmt.Errorf("starting capture: %w", err)
	}
	return s, nil
}

func (s *deviceSource) ReadChunk(ctx context.Context, n int) (Chunk, error) {
	// A context cancellation has to unblock the cond wait.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.fifo) < n {
		if s.closed {
			return Chunk{}, ErrSourceClosed
		}
		if err := ctx.Err(); err != nil {
			return Chunk{}, err
		}
		s.cond.Wait()
	}

	samples := make([]int16, n)
	copy(samples, s.fifo[:n])
	s.fifo = s.fifo[n:]
	return Chunk{Samples: samples, At: time.Now()}, nil
}

func (s *deviceSource) Close() {
	s.once.Do(func() {
		s.dev.Stop()
		s.dev.ClearCallback()
		s.mu.Lock()
		s.closed = true
		s.cond.Broadcast()
		s.mu.Unlock()
	})
}
