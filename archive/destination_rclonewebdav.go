package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/robertkozin/wizardconvert/tr"
)

var _ Destination = (*RCloneWebDAVDestination)(nil)

// RCloneWebDAVDestination talks to `rclone serve webdav`, plain http only.
type RCloneWebDAVDestination struct {
	baseURL string
	client  *http.Client
}

func NewRCloneWebDAV(ctx context.Context, config *url.URL) (*RCloneWebDAVDestination, error) {
	base := *config
	base.Scheme = "http"

	return &RCloneWebDAVDestination{
		baseURL: base.String(),
		client:  http.DefaultClient,
	}, nil
}

func (r *RCloneWebDAVDestination) String() string {
	return fmt.Sprintf("rclone+webdav: %q", r.baseURL)
}

func (r *RCloneWebDAVDestination) Close() error {
	return nil
}

func (r *RCloneWebDAVDestination) Download(ctx context.Context, name string) (_ io.ReadCloser, err error) {
	ctx, span := tracer.Start(ctx, "rclone+webdav_download")
	defer tr.End(span, &err)

	if err := validateSimpleFilename(name); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlCat(r.baseURL, name), nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file from rclone+webdav: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fs.ErrNotExist
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected response status: %s", resp.Status)
	}

	return resp.Body, nil
}

func (r *RCloneWebDAVDestination) Upload(ctx context.Context, name string, body io.Reader, size int64) (err error) {
	ctx, span := tracer.Start(ctx, "rclone+webdav_upload")
	defer tr.End(span, &err)

	if err := validateSimpleFilename(name); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, urlCat(r.baseURL, name), body)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading file to rclone+webdav: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %s", resp.Status)
	}

	return nil
}

func urlCat(a, b string) string {
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}
