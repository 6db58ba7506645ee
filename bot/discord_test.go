package bot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/robertkozin/wizardconvert/convert"
	"github.com/robertkozin/wizardconvert/media"
	"github.com/robertkozin/wizardconvert/workdir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindVideoURL(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"check this https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"<https://youtu.be/dQw4w9WgXcQ>", "https://youtu.be/dQw4w9WgXcQ"},
		{"https://example.com/x then https://youtu.be/dQw4w9WgXcQ mp3", "https://youtu.be/dQw4w9WgXcQ"},
		{"https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"no links here", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, findVideoURL(tt.content), tt.content)
	}
}

func TestRequestedFormat(t *testing.T) {
	assert.Equal(t, media.MP3, requestedFormat("https://youtu.be/dQw4w9WgXcQ mp3"))
	assert.Equal(t, media.MP3, requestedFormat("Audio please: https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, media.MP4, requestedFormat("https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, media.MP4, requestedFormat("https://youtu.be/mp3mp3mp3mp"))
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "https://wiz.example/download/abc", downloadURL("https://wiz.example/", "abc"))
	assert.Equal(t, "https://wiz.example/download/abc", downloadURL("https://wiz.example", "abc"))
}

func TestBuildReply(t *testing.T) {
	ref := &discordgo.MessageReference{MessageID: "1", ChannelID: "2"}
	reply := buildReply(successContent("Song", "https://wiz.example/download/abc"), ref)

	assert.Equal(t, "**Song** https://wiz.example/download/abc", reply.Content)
	assert.Same(t, ref, reply.Reference)
	assert.Empty(t, reply.AllowedMentions.Parse)
	assert.Equal(t, "https://x", successContent("", "https://x"))
}

type stubConverter struct {
	err      error
	requests []convert.Request
}

func (s *stubConverter) Convert(ctx context.Context, req convert.Request) (convert.Result, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return convert.Result{}, s.err
	}
	return convert.Result{FilePath: filepath.Join(req.Dir, "Song.mp3"), Title: "Song"}, nil
}

func newTestDiscord(t *testing.T, c Converter) *Discord {
	t.Helper()
	return &Discord{
		PublicURL: "https://wiz.example",
		Converter: c,
		Workdirs:  workdir.Store{Root: t.TempDir()},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRespondSuccess(t *testing.T) {
	c := &stubConverter{}
	b := newTestDiscord(t, c)

	got := b.respond(context.Background(), "https://youtu.be/dQw4w9WgXcQ", media.MP3)
	require.Len(t, c.requests, 1)
	id := filepath.Base(c.requests[0].Dir)
	assert.Equal(t, "**Song** https://wiz.example/download/"+id, got)
	assert.DirExists(t, c.requests[0].Dir)
}

func TestRespondConversionFailure(t *testing.T) {
	c := &stubConverter{err: &convert.Error{Kind: convert.Unavailable, Message: "This video is unavailable. It may have been removed or is restricted."}}
	b := newTestDiscord(t, c)

	got := b.respond(context.Background(), "https://youtu.be/dQw4w9WgXcQ", media.MP4)
	assert.Equal(t, "This video is unavailable. It may have been removed or is restricted.", got)
}

func TestRespondWorkdirFailure(t *testing.T) {
	c := &stubConverter{}
	b := newTestDiscord(t, c)
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, nil, 0o644))
	b.Workdirs = workdir.Store{Root: root}

	got := b.respond(context.Background(), "https://youtu.be/dQw4w9WgXcQ", media.MP4)
	assert.Equal(t, msgInternalError, got)
	assert.False(t, strings.Contains(got, root))
	assert.Empty(t, c.requests)
}
