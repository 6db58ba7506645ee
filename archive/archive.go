// Package archive optionally mirrors finished conversions to somewhere that
// outlives the temporary working directories. Each conversion is stored as
// "<id>.<format>" next to a "<id>.json" manifest.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("archive")

// Destination is a flat namespace of files. Download returns an error
// matching fs.ErrNotExist when name is missing.
type Destination interface {
	io.Closer
	fmt.Stringer
	Upload(ctx context.Context, name string, r io.Reader, size int64) error
	Download(ctx context.Context, name string) (io.ReadCloser, error)
}

// NewDestination picks an implementation from the URL scheme:
//
//	fs:///var/lib/wizardconvert
//	b2://keyID:appKey@bucket
//	rclone+webdav://127.0.0.1:8080/path
func NewDestination(ctx context.Context, config *url.URL) (dest Destination, err error) {
	switch config.Scheme {
	case "b2":
		dest, err = NewB2(ctx, config)
	case "fs":
		dest, err = NewFSDestination(ctx, config)
	case "rclone+webdav":
		dest, err = NewRCloneWebDAV(ctx, config)
	default:
		err = fmt.Errorf("unknown destination: %s", config.Scheme)
	}
	return dest, err
}

func validateSimpleFilename(filename string) error {
	if filename == "" || filename == "." || filename == ".." || filepath.Base(filename) != filename {
		return fmt.Errorf("filename %q must not contain path separators", filename)
	}
	return nil
}
