package session

import "time"

// Config is snapshotted at startup; a Machine never re-reads it mid-session.
type Config struct {
	SampleRate       int
	ChunkSize        int
	SilenceThreshold float64
	SilenceDuration  time.Duration
	MaxDuration      time.Duration
	Language         string

	Debounce        time.Duration
	MessageDuration time.Duration
	RecoverDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		ChunkSize:        1024,
		SilenceThreshold: 0.01,
		SilenceDuration:  time.Second,
		MaxDuration:      30 * time.Second,
		Debounce:         300 * time.Millisecond,
		MessageDuration:  1500 * time.Millisecond,
		RecoverDelay:     3 * time.Second,
	}
}

// MaxBufferChunks bounds the recording buffer to MaxDuration worth of audio.
func (c Config) MaxBufferChunks() int {
	return int(c.MaxDuration.Seconds()) * c.SampleRate / c.ChunkSize
}
