// Package extract drives the external extraction backend. Probe fetches video
// metadata without downloading, Fetch downloads and transcodes into a target
// file. Both return *Error with the raw backend message so the caller can
// classify it.
package extract

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robertkozin/wizardconvert/media"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("extract")

// ErrNoMetadata means the backend finished without producing a metadata
// object at all.
var ErrNoMetadata = errors.New("extractor returned no video information")

type Metadata struct {
	Title string // sanitized, see media.SanitizeTitle
	ID    string
}

type FetchRequest struct {
	URL     string
	Format  media.Format
	Output  string // output path or template handed to the backend
	Cookies string // optional cookie jar path

	// Progress, when set, receives downloaded and total bytes. Total is 0
	// when the backend does not know it yet.
	Progress func(downloaded, total int64)
}

type Prober interface {
	Probe(ctx context.Context, url, cookies string) (Metadata, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) error
}

type Client interface {
	Prober
	Fetcher
}

// Backend joins a Prober and a Fetcher that come from different
// implementations.
type Backend struct {
	Prober
	Fetcher
}

// Error carries the backend's own failure text.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type SleepRange struct {
	Min, Max time.Duration
}

// Options is the evasion and timing configuration shared by probe and fetch.
type Options struct {
	Executable    string
	UserAgent     string
	PlayerClients []string
	SocketTimeout time.Duration
	ProbeSleep    SleepRange
	FetchSleep    SleepRange
}

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func DefaultOptions() Options {
	return Options{
		UserAgent:     DefaultUserAgent,
		PlayerClients: []string{"android", "web"},
		SocketTimeout: 30 * time.Second,
		ProbeSleep:    SleepRange{Min: 5 * time.Second, Max: 10 * time.Second},
		FetchSleep:    SleepRange{Min: 3 * time.Second, Max: 5 * time.Second},
	}
}

// cookieFile returns path if it names an existing regular file.
func cookieFile(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}
