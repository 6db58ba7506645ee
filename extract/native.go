package extract

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kkdai/youtube/v2"
	"github.com/robertkozin/wizardconvert/media"
	"github.com/robertkozin/wizardconvert/tr"
	"go.opentelemetry.io/otel/attribute"
)

var _ Prober = (*NativeProber)(nil)

// NativeProber reads metadata straight from the site without spawning
// yt-dlp. It cannot present a cookie jar, so cookies are ignored.
type NativeProber struct {
	client youtube.Client
	logger *slog.Logger
}

func NewNativeProber(opts Options, logger *slog.Logger) *NativeProber {
	return &NativeProber{
		client: youtube.Client{
			HTTPClient: &http.Client{Timeout: opts.SocketTimeout},
		},
		logger: logger.With("component", "native_probe"),
	}
}

func (n *NativeProber) String() string {
	return "native probe"
}

func (n *NativeProber) Probe(ctx context.Context, url, cookies string) (md Metadata, err error) {
	ctx, span := tracer.Start(ctx, "native_probe")
	defer tr.End(span, &err)
	span.SetAttributes(attribute.String("url", url))

	if cookies != "" {
		n.logger.DebugContext(ctx, "cookies are not used by the native probe", "path", cookies)
	}

	video, err := n.client.GetVideoContext(ctx, url)
	if err != nil {
		return Metadata{}, &Error{Op: "probe", Message: err.Error(), Err: err}
	}
	if video == nil {
		return Metadata{}, ErrNoMetadata
	}

	return Metadata{
		Title: media.SanitizeTitle(video.Title),
		ID:    video.ID,
	}, nil
}
