package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Segment struct {
	Text  string
	Start float64
	End   float64
}

type Result struct {
	Segments  []Segment
	Metrics   *NetworkMetrics
	RateLimit string
	Duration  float64
}

// Options tune a single transcription request. VoiceFilter asks the
// backend to skip non-speech audio; WordTimestamps requests per-word
// timing, which most callers leave off to keep responses small.
type Options struct {
	VoiceFilter    bool
	WordTimestamps bool
	Language       string
}

// Invoker turns a recorded audio file into text segments. Implementations
// must not retain audioPath; the caller removes the file once the call
// returns.
type Invoker interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}

type baseInvoker struct {
	client *TracedClient
	apiURL string
}

func New() (Invoker, error) {
	groqKey := os.Getenv("GROQ_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")

	if groqKey != "" {
		g := NewGroq(groqKey)
		go g.client.Warm()
		return g, nil
	}
	if openaiKey != "" {
		o := NewOpenAI(openaiKey)
		go o.client.Warm()
		return o, nil
	}

	return nil, fmt.Errorf("set GROQ_API_KEY or OPENAI_API_KEY environment variable")
}
