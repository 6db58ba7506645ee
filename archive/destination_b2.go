package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"path/filepath"

	blazer "github.com/Backblaze/blazer/b2"
	"github.com/robertkozin/wizardconvert/tr"
)

var _ Destination = (*B2Destination)(nil)

type B2Destination struct {
	bucket *blazer.Bucket
}

func NewB2(ctx context.Context, config *url.URL) (*B2Destination, error) {
	keyID := config.User.Username()
	appKey, _ := config.User.Password()
	bucketName := config.Hostname()

	client, err := blazer.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("creating blazer/b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("getting b2 bucket: %w", err)
	}

	return &B2Destination{bucket: bucket}, nil
}

func (b2 *B2Destination) String() string {
	return fmt.Sprintf("b2 %q bucket", b2.bucket.Name())
}

func (b2 *B2Destination) Close() error {
	return nil
}

func (b2 *B2Destination) Download(ctx context.Context, name string) (_ io.ReadCloser, err error) {
	ctx, span := tracer.Start(ctx, "b2_download")
	defer tr.End(span, &err)

	if err := validateSimpleFilename(name); err != nil {
		return nil, err
	}

	obj := b2.bucket.Object(name)
	// the reader only reports a missing object on first read
	if _, err := obj.Attrs(ctx); err != nil {
		if blazer.IsNotExist(err) {
			return nil, fs.ErrNotExist
		}
		return nil, fmt.Errorf("reading attributes from b2: %w", err)
	}

	return obj.NewReader(ctx), nil
}

func (b2 *B2Destination) Upload(ctx context.Context, name string, r io.Reader, size int64) (err error) {
	ctx, span := tracer.Start(ctx, "b2_upload")
	defer tr.End(span, &err)

	if err := validateSimpleFilename(name); err != nil {
		return err
	}

	uploadAttrs := blazer.Attrs{}
	{
		ext := filepath.Ext(name)
		if ext == "" {
			return fmt.Errorf("expecting extension for b2 file upload: %s", name)
		}
		mimeType := mime.TypeByExtension(ext)
		if mimeType == "" {
			return fmt.Errorf("expecting to find mime type for b2 file upload extension: %s", name)
		}
		uploadAttrs.ContentType = mimeType
	}

	writer := b2.bucket.Object(name).NewWriter(ctx, blazer.WithAttrsOption(&uploadAttrs))
	writer.UseFileBuffer = false

	if _, err := writer.ReadFrom(r); err != nil {
		writer.Close()
		return fmt.Errorf("copying file to b2: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing b2 file: %w", err)
	}

	return nil
}
