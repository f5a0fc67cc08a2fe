// Package encoder turns captured PCM into the compressed form uploaded to
// the transcription engine.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)
