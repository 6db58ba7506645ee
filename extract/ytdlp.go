package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/robertkozin/wizardconvert/media"
	"github.com/robertkozin/wizardconvert/tr"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
)

var _ Client = (*YTDLP)(nil)

const (
	audioSelector = "bestaudio/best"
	videoSelector = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	audioQuality  = "192K"

	progressInterval = 500 * time.Millisecond
)

// YTDLP talks to the yt-dlp executable through go-ytdlp.
type YTDLP struct {
	opts   Options
	logger *slog.Logger
}

func NewYTDLP(opts Options, logger *slog.Logger) *YTDLP {
	return &YTDLP{
		opts:   opts,
		logger: logger.With("component", "ytdlp"),
	}
}

func (y *YTDLP) String() string {
	return fmt.Sprintf("yt-dlp (%s)", y.executable())
}

func (y *YTDLP) executable() string {
	if y.opts.Executable == "" {
		return "yt-dlp"
	}
	return y.opts.Executable
}

func (y *YTDLP) command(sleep SleepRange, cookies string) *ytdlp.Command {
	cmd := ytdlp.New().
		SetExecutable(y.executable()).
		Quiet().
		NoWarnings().
		NoCheckCertificates().
		AbortOnError().
		GeoBypass().
		ExtractorArgs("youtube:player_client=" + strings.Join(y.opts.PlayerClients, ",")).
		SocketTimeout(y.opts.SocketTimeout.Seconds()).
		SleepInterval(sleep.Min.Seconds()).
		MaxSleepInterval(sleep.Max.Seconds()).
		UserAgent(y.opts.UserAgent)

	if path, ok := cookieFile(cookies); ok {
		y.logger.Info("using cookies file", "path", path)
		cmd.Cookies(path)
	}
	return cmd
}

func (y *YTDLP) Probe(ctx context.Context, url, cookies string) (md Metadata, err error) {
	ctx, span := tracer.Start(ctx, "ytdlp_probe")
	defer tr.End(span, &err)
	span.SetAttributes(attribute.String("url", url), attribute.Bool("cookies", cookies != ""))

	res, err := y.command(y.opts.ProbeSleep, cookies).
		NoPlaylist().
		SkipDownload().
		DumpJSON().
		Run(ctx, url)
	if err != nil {
		err = backendError("probe", res, err)
		y.logger.ErrorContext(ctx, "error getting video info", "url", url, "err", err)
		return Metadata{}, err
	}

	return parseMetadata(res.Stdout)
}

func (y *YTDLP) Fetch(ctx context.Context, req FetchRequest) (err error) {
	ctx, span := tracer.Start(ctx, "ytdlp_fetch")
	defer tr.End(span, &err)
	span.SetAttributes(attribute.String("url", req.URL), attribute.String("format", req.Format.String()))

	cmd := y.command(y.opts.FetchSleep, req.Cookies).
		NoPlaylist().
		Output(req.Output)

	switch req.Format {
	case media.MP3:
		cmd.Format(audioSelector).
			ExtractAudio().
			AudioFormat(string(media.MP3)).
			AudioQuality(audioQuality)
	case media.MP4:
		cmd.Format(videoSelector).
			MergeOutputFormat(string(media.MP4))
	default:
		return fmt.Errorf("unsupported format %q", req.Format)
	}

	if req.Progress != nil {
		cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			req.Progress(int64(update.DownloadedBytes), int64(update.TotalBytes))
		})
	}

	start := time.Now()
	y.logger.InfoContext(ctx, "starting download", "url", req.URL, "format", req.Format, "output", req.Output)
	res, err := cmd.Run(ctx, req.URL)
	if err != nil {
		err = backendError("fetch", res, err)
		y.logger.ErrorContext(ctx, "error converting video", "url", req.URL, "err", err)
		return err
	}
	y.logger.InfoContext(ctx, "finished download", "url", req.URL, "took", time.Since(start).String())
	return nil
}

// parseMetadata reads the first JSON document yt-dlp printed.
func parseMetadata(stdout string) (Metadata, error) {
	var doc string
	for _, line := range strings.Split(stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			doc = line
			break
		}
	}
	if doc == "" || !gjson.Valid(doc) {
		return Metadata{}, ErrNoMetadata
	}

	info := gjson.Parse(doc)
	if !info.IsObject() {
		return Metadata{}, ErrNoMetadata
	}

	title, id := info.Get("title"), info.Get("id")
	if !title.Exists() || !id.Exists() {
		return Metadata{}, fmt.Errorf("%w: missing title or id", ErrNoMetadata)
	}

	return Metadata{
		Title: media.SanitizeTitle(title.String()),
		ID:    id.String(),
	}, nil
}

func backendError(op string, res *ytdlp.Result, err error) error {
	msg := err.Error()
	if res != nil {
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			msg = stderr
		}
	}
	return &Error{Op: op, Message: msg, Err: err}
}
