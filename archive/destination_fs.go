package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
)

var _ Destination = (*FSDestination)(nil)

type FSDestination struct {
	root *os.Root
}

func NewFSDestination(ctx context.Context, config *url.URL) (*FSDestination, error) {
	path := config.Host + config.Path

	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating root: %w", err)
	}
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, fmt.Errorf("opening root: %w", err)
	}

	return &FSDestination{root: root}, nil
}

func (fs *FSDestination) String() string {
	return fmt.Sprintf("filesystem destination at %s", fs.root.Name())
}

func (fs *FSDestination) Close() error {
	return fs.root.Close()
}

func (fs *FSDestination) Upload(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := validateSimpleFilename(name); err != nil {
		return err
	}

	f, err := fs.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}

func (fs *FSDestination) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateSimpleFilename(name); err != nil {
		return nil, err
	}

	f, err := fs.root.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}
