package convert

import (
	"errors"
	"fmt"
	"testing"

	"github.com/robertkozin/wizardconvert/extract"
	"github.com/stretchr/testify/assert"
)

func backend(msg string) error {
	return &extract.Error{Op: "fetch", Message: msg, Err: errors.New("exit status 1")}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		withCookies bool
		kind        Kind
		message     string
	}{
		{
			name:    "bot without cookies",
			err:     backend("ERROR: [youtube] abc: Sign in to confirm you're not a bot. Use --cookies"),
			kind:    BotProtection,
			message: "YouTube bot protection triggered. Try uploading your YouTube cookies file or try a different video.",
		},
		{
			name:        "bot with cookies",
			err:         backend("bot protection kicked in"),
			withCookies: true,
			kind:        BotProtection,
			message:     "YouTube bot protection triggered even with cookies. Your cookies may be invalid or expired.",
		},
		{
			name:    "bot beats cookies rule",
			err:     backend("Sign in to confirm you're not a bot. Use --cookies-from-browser or --cookies"),
			kind:    BotProtection,
			message: "YouTube bot protection triggered. Try uploading your YouTube cookies file or try a different video.",
		},
		{
			name:    "private",
			err:     backend("ERROR: [youtube] abc: Private video. Sign in if you've been granted access"),
			kind:    Unavailable,
			message: "This video is private and cannot be accessed.",
		},
		{
			name:    "private lowercase",
			err:     backend("this is a private video"),
			kind:    Unavailable,
			message: "This video is private and cannot be accessed.",
		},
		{
			name:    "private wins over unavailable",
			err:     backend("Video unavailable. This video is private"),
			kind:    Unavailable,
			message: "This video is private and cannot be accessed.",
		},
		{
			name:    "unavailable",
			err:     backend("ERROR: [youtube] abc: Video unavailable"),
			kind:    Unavailable,
			message: "This video is unavailable. It may have been removed or is restricted.",
		},
		{
			name:    "copyright",
			err:     backend("This video contains content from SME, who has blocked it on Copyright grounds"),
			kind:    Copyright,
			message: "This video cannot be downloaded due to copyright restrictions.",
		},
		{
			name:    "age",
			err:     backend("Sign in to confirm your age"),
			kind:    AgeRestricted,
			message: "This video is age-restricted and cannot be downloaded.",
		},
		{
			name:    "ffmpeg",
			err:     backend("ERROR: ffmpeg not found"),
			kind:    Transcode,
			message: "Error during media conversion. Please try a different video.",
		},
		{
			name:    "postprocessing",
			err:     backend("ERROR: Postprocessing: Conversion failed!"),
			kind:    Transcode,
			message: "Error during media conversion. Please try a different video.",
		},
		{
			name:    "no metadata sentinel",
			err:     fmt.Errorf("probe: %w", extract.ErrNoMetadata),
			kind:    MalformedMetadata,
			message: "Failed to process video information. YouTube may be restricting access to this video.",
		},
		{
			name:    "nonetype",
			err:     backend("TypeError: 'NoneType' object is not subscriptable"),
			kind:    MalformedMetadata,
			message: "Failed to process video information. YouTube may be restricting access to this video.",
		},
		{
			name:    "cookies",
			err:     backend("invalid Netscape format cookies file"),
			kind:    CookieFormat,
			message: "Error with cookies file. Make sure it's in the correct format (Netscape/Mozilla).",
		},
		{
			name:    "file not produced",
			err:     ErrFileNotProduced,
			kind:    FileNotProduced,
			message: "Conversion completed but file not found",
		},
		{
			name:    "generic",
			err:     errors.New("network is unreachable"),
			kind:    Generic,
			message: "Error converting video: network is unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.withCookies)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.message, got.Message)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyPassThrough(t *testing.T) {
	assert.Nil(t, Classify(nil, false))

	orig := &Error{Kind: Copyright, Message: "x"}
	assert.Same(t, orig, Classify(fmt.Errorf("wrapped: %w", orig), true))
}
