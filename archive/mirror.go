package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robertkozin/wizardconvert/media"
	"github.com/robertkozin/wizardconvert/tr"
	"go.opentelemetry.io/otel/attribute"
)

type Manifest struct {
	CreatedAt time.Time    `json:"created_at"`
	SourceURL string       `json:"source_url"`
	Title     string       `json:"title"`
	Format    media.Format `json:"format"`
	File      string       `json:"file"`
	// Name is the base filename served as the attachment name.
	Name string `json:"name"`
}

type Entry struct {
	ID        string
	SourceURL string
	Title     string
	Format    media.Format
}

// Mirror stores finished conversions in a Destination.
type Mirror struct {
	Destination Destination
	Logger      *slog.Logger
}

func NewMirror(dest Destination, logger *slog.Logger) *Mirror {
	return &Mirror{Destination: dest, Logger: logger.With("component", "archive")}
}

// Put uploads the file at path and then its manifest. The manifest is
// written last so a half finished upload is never served.
func (m *Mirror) Put(ctx context.Context, entry Entry, path string) (err error) {
	ctx, span := tracer.Start(ctx, "archive_put")
	defer tr.End(span, &err)
	span.SetAttributes(attribute.String("id", entry.ID), attribute.String("destination", m.Destination.String()))

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening converted file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat converted file: %w", err)
	}

	file := entry.ID + entry.Format.Ext()
	if err := m.Destination.Upload(ctx, file, f, info.Size()); err != nil {
		return fmt.Errorf("uploading %s: %w", file, err)
	}

	manifest := Manifest{
		CreatedAt: time.Now().UTC(),
		SourceURL: entry.SourceURL,
		Title:     entry.Title,
		Format:    entry.Format,
		File:      file,
		Name:      filepath.Base(path),
	}
	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling manifest: %w", err)
	}
	if err := m.Destination.Upload(ctx, entry.ID+".json", bytes.NewReader(b), int64(len(b))); err != nil {
		return fmt.Errorf("uploading manifest: %w", err)
	}

	m.Logger.InfoContext(ctx, "archived conversion", "id", entry.ID, "file", file, "destination", m.Destination.String())
	return nil
}

// Get returns the manifest and an open reader for the archived file. The
// error matches fs.ErrNotExist when nothing was archived under id.
func (m *Mirror) Get(ctx context.Context, id string) (_ Manifest, _ io.ReadCloser, err error) {
	ctx, span := tracer.Start(ctx, "archive_get")
	defer tr.End(span, &err)
	span.SetAttributes(attribute.String("id", id))

	manifest, err := m.manifest(ctx, id)
	if err != nil {
		return Manifest{}, nil, err
	}

	r, err := m.Destination.Download(ctx, manifest.File)
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("downloading %s: %w", manifest.File, err)
	}
	return manifest, r, nil
}

func (m *Mirror) manifest(ctx context.Context, id string) (Manifest, error) {
	r, err := m.Destination.Download(ctx, id+".json")
	if err != nil {
		return Manifest{}, fmt.Errorf("downloading manifest: %w", err)
	}
	defer r.Close()

	var manifest Manifest
	if err := json.NewDecoder(r).Decode(&manifest); err != nil {
		return Manifest{}, fmt.Errorf("unmarshaling manifest: %w", err)
	}
	if err := validateSimpleFilename(manifest.File); err != nil {
		return Manifest{}, fmt.Errorf("bad manifest: %w", err)
	}
	return manifest, nil
}
