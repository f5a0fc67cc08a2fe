package audio

// Buffer accumulates chunks in capture order. It is bounded: once the chunk
// count exceeds maxChunks the buffer is truncated to its most recent half,
// silently dropping the oldest audio. That sliding-window loss is intentional
// and long predates this codebase; the wall-clock recording cap normally
// stops a session well before the bound is hit.
//
// Buffer is not safe for concurrent use. The recording task owns it
// exclusively until hand-off at the transcription boundary.
type Buffer struct {
	chunks    []Chunk
	maxChunks int
}

func NewBuffer(maxChunks int) *Buffer {
	return &Buffer{maxChunks: maxChunks}
}

// Append adds a chunk, evicting the oldest half when the bound is exceeded.
func (b *Buffer) Append(c Chunk) {
	b.chunks = append(b.chunks, c)
	if b.maxChunks > 0 && len(b.chunks) > b.maxChunks {
		keep := b.maxChunks / 2
		tail := b.chunks[len(b.chunks)-keep:]
		b.chunks = append(b.chunks[:0], tail...)
	}
}

func (b *Buffer) Empty() bool { return len(b.chunks) == 0 }

func (b *Buffer) Len() int { return len(b.chunks) }

// Concatenate flattens the retained chunks into one sample sequence in
// temporal order.
func (b *Buffer) Concatenate() []int16 {
	total := 0
	for _, c := range b.chunks {
		total += len(c.Samples)
	}
	out := make([]int16, 0, total)
	for _, c := range b.chunks {
		out = append(out, c.Samples...)
	}
	return out
}

// PeakAmplitude returns the maximum absolute sample value across the whole
// buffer, normalized to full scale (0..1).
func (b *Buffer) PeakAmplitude() float64 {
	var peak int32
	for _, c := range b.chunks {
		for _, s := range c.Samples {
			v := int32(s)
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return float64(peak) / 32768.0
}

// Reset drops all chunks so the backing memory can be reclaimed.
func (b *Buffer) Reset() {
	b.chunks = nil
}
