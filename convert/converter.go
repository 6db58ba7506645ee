// Package convert turns a validated URL into a media file on disk. It probes
// the video, downloads it in the requested format into a working directory
// and classifies every failure into a user facing message.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robertkozin/wizardconvert/extract"
	"github.com/robertkozin/wizardconvert/media"
	"github.com/robertkozin/wizardconvert/tr"
	"github.com/robertkozin/wizardconvert/workdir"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("convert")

type Request struct {
	URL     string
	Format  media.Format
	Dir     string
	Cookies string // optional path, ignored when the file does not exist

	Progress func(downloaded, total int64)
}

type Result struct {
	FilePath string
	Title    string
}

type Converter struct {
	Client    extract.Client
	Heartbeat time.Duration
	Logger    *slog.Logger
}

func New(client extract.Client, heartbeat time.Duration, logger *slog.Logger) *Converter {
	return &Converter{
		Client:    client,
		Heartbeat: heartbeat,
		Logger:    logger.With("component", "convert"),
	}
}

// Convert runs a single conversion. Any returned error is a *Error.
func (c *Converter) Convert(ctx context.Context, req Request) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "convert")
	defer tr.End(span, &err)
	span.SetAttributes(
		attribute.String("url", req.URL),
		attribute.String("format", req.Format.String()),
	)

	withCookies := req.Cookies != ""
	if withCookies {
		if _, statErr := os.Stat(req.Cookies); statErr != nil {
			withCookies = false
		}
	}

	defer func() {
		if r := recover(); r != nil {
			c.Logger.ErrorContext(ctx, "panic during conversion", "url", req.URL, "panic", r)
			err = Classify(fmt.Errorf("%v", r), withCookies)
			res = Result{}
		}
	}()

	res, err = c.convert(ctx, req)
	if err != nil {
		cerr := Classify(err, withCookies)
		c.Logger.ErrorContext(ctx, "conversion failed", "url", req.URL, "kind", cerr.Kind, "err", err)
		return Result{}, cerr
	}
	span.SetAttributes(attribute.String("file", filepath.Base(res.FilePath)))
	return res, nil
}

func (c *Converter) convert(ctx context.Context, req Request) (Result, error) {
	if err := os.MkdirAll(req.Dir, os.ModePerm); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}

	c.Logger.InfoContext(ctx, "getting video info", "url", req.URL)
	md, err := c.Client.Probe(ctx, req.URL, req.Cookies)
	if err != nil {
		return Result{}, err
	}
	if md == (extract.Metadata{}) {
		return Result{}, extract.ErrNoMetadata
	}

	name := outputName(md)
	output := filepath.Join(req.Dir, name+req.Format.Ext())
	c.Logger.InfoContext(ctx, "converting video", "title", md.Title, "format", req.Format, "output", output)

	stop := workdir.Heartbeat(ctx, req.Dir, c.Heartbeat, c.Logger)
	err = c.Client.Fetch(ctx, extract.FetchRequest{
		URL:      req.URL,
		Format:   req.Format,
		Output:   output,
		Cookies:  req.Cookies,
		Progress: req.Progress,
	})
	stop()
	if err != nil {
		return Result{}, err
	}

	path, err := workdir.FindOutput(req.Dir, req.Format.Ext())
	if err != nil {
		c.Logger.ErrorContext(ctx, "no output file after conversion", "dir", req.Dir, "err", err)
		return Result{}, ErrFileNotProduced
	}

	return Result{FilePath: path, Title: md.Title}, nil
}

// outputName picks the base filename. Titles that sanitize to nothing fall
// back to the video id.
func outputName(md extract.Metadata) string {
	if title := media.SanitizeTitle(md.Title); title != "" {
		return title
	}
	if id := media.SanitizeTitle(md.ID); id != "" {
		return id
	}
	return "download"
}
