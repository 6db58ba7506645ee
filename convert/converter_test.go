package convert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robertkozin/wizardconvert/extract"
	"github.com/robertkozin/wizardconvert/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	md       extract.Metadata
	probeErr error
	fetchErr error
	// write, when set, is the file name Fetch creates inside the output dir.
	write   string
	panics  bool
	fetched []extract.FetchRequest
}

func (f *fakeClient) Probe(ctx context.Context, url, cookies string) (extract.Metadata, error) {
	return f.md, f.probeErr
}

func (f *fakeClient) Fetch(ctx context.Context, req extract.FetchRequest) error {
	f.fetched = append(f.fetched, req)
	if f.panics {
		panic("boom")
	}
	if f.fetchErr != nil {
		return f.fetchErr
	}
	if f.write != "" {
		if req.Progress != nil {
			req.Progress(1, 1)
		}
		return os.WriteFile(filepath.Join(filepath.Dir(req.Output), f.write), []byte("data"), 0o644)
	}
	return nil
}

func newTestConverter(c extract.Client) *Converter {
	return New(c, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConvertSuccess(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "id")
	client := &fakeClient{
		md:    extract.Metadata{Title: "My Song", ID: "abcdefghijk"},
		write: "My Song.mp3",
	}

	var progressed bool
	res, err := newTestConverter(client).Convert(context.Background(), Request{
		URL:      "https://youtu.be/abcdefghijk",
		Format:   media.MP3,
		Dir:      dir,
		Progress: func(_, _ int64) { progressed = true },
	})
	require.NoError(t, err)
	assert.Equal(t, "My Song", res.Title)
	assert.Equal(t, filepath.Join(dir, "My Song.mp3"), res.FilePath)
	assert.True(t, progressed)

	require.Len(t, client.fetched, 1)
	assert.Equal(t, filepath.Join(dir, "My Song.mp3"), client.fetched[0].Output)
	assert.Equal(t, media.MP3, client.fetched[0].Format)
}

func TestConvertFindsRenamedOutput(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{
		md:    extract.Metadata{Title: "clip", ID: "abcdefghijk"},
		write: "clip (1).mp4",
	}

	res, err := newTestConverter(client).Convert(context.Background(), Request{URL: "u", Format: media.MP4, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip (1).mp4"), res.FilePath)
}

func TestConvertEmptyTitleUsesID(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{md: extract.Metadata{Title: "", ID: "abcdefghijk"}, write: "abcdefghijk.mp3"}

	_, err := newTestConverter(client).Convert(context.Background(), Request{URL: "u", Format: media.MP3, Dir: dir})
	require.NoError(t, err)
	require.Len(t, client.fetched, 1)
	assert.True(t, strings.HasSuffix(client.fetched[0].Output, "abcdefghijk.mp3"))
}

func TestConvertProbeFailureSkipsFetch(t *testing.T) {
	client := &fakeClient{probeErr: &extract.Error{Op: "probe", Message: "ERROR: Video unavailable"}}

	_, err := newTestConverter(client).Convert(context.Background(), Request{URL: "u", Format: media.MP3, Dir: t.TempDir()})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Unavailable, cerr.Kind)
	assert.Empty(t, client.fetched)
}

func TestConvertEmptyMetadata(t *testing.T) {
	client := &fakeClient{}

	_, err := newTestConverter(client).Convert(context.Background(), Request{URL: "u", Format: media.MP3, Dir: t.TempDir()})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, MalformedMetadata, cerr.Kind)
	assert.Empty(t, client.fetched)
}

func TestConvertNoOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cookies.txt"), []byte("x"), 0o644))
	client := &fakeClient{md: extract.Metadata{Title: "a", ID: "b"}, write: "a.webm"}

	_, err := newTestConverter(client).Convert(context.Background(), Request{
		URL: "u", Format: media.MP3, Dir: dir, Cookies: filepath.Join(dir, "cookies.txt"),
	})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, FileNotProduced, cerr.Kind)
	assert.ErrorIs(t, err, ErrFileNotProduced)
}

func TestConvertBotWithCookies(t *testing.T) {
	dir := t.TempDir()
	cookies := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("x"), 0o644))
	client := &fakeClient{
		md:       extract.Metadata{Title: "a", ID: "b"},
		fetchErr: &extract.Error{Op: "fetch", Message: "Sign in to confirm you're not a bot"},
	}

	_, err := newTestConverter(client).Convert(context.Background(), Request{URL: "u", Format: media.MP4, Dir: dir, Cookies: cookies})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, BotProtection, cerr.Kind)
	assert.Contains(t, cerr.Message, "even with cookies")
}

func TestConvertRecoversPanic(t *testing.T) {
	client := &fakeClient{md: extract.Metadata{Title: "a", ID: "b"}, panics: true}

	res, err := newTestConverter(client).Convert(context.Background(), Request{URL: "u", Format: media.MP3, Dir: t.TempDir()})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Generic, cerr.Kind)
	assert.Equal(t, "Error converting video: boom", cerr.Message)
	assert.Equal(t, Result{}, res)
}

func TestConvertBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := newTestConverter(&fakeClient{}).Convert(context.Background(), Request{URL: "u", Format: media.MP3, Dir: filepath.Join(file, "sub")})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Generic, cerr.Kind)
	assert.False(t, errors.Is(err, ErrFileNotProduced))
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "Song", outputName(extract.Metadata{Title: "Song", ID: "x"}))
	assert.Equal(t, "abc", outputName(extract.Metadata{Title: "???", ID: "abc"}))
	assert.Equal(t, "download", outputName(extract.Metadata{Title: "", ID: "//"}))
}
