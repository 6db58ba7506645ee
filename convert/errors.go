package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robertkozin/wizardconvert/extract"
)

type Kind string

const (
	BotProtection     Kind = "bot_protection"
	Unavailable       Kind = "unavailable"
	Copyright         Kind = "copyright"
	AgeRestricted     Kind = "age_restricted"
	Transcode         Kind = "transcode"
	MalformedMetadata Kind = "malformed_metadata"
	CookieFormat      Kind = "cookie_format"
	FileNotProduced   Kind = "file_not_produced"
	Generic           Kind = "generic"
)

// ErrFileNotProduced means the backend reported success but no file with
// the requested extension showed up.
var ErrFileNotProduced = errors.New("conversion completed but file not found")

// Error is what every failed conversion turns into. Message is safe to show
// to the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type rule struct {
	kind     Kind
	sentinel error
	needles  []string
	message  func(raw string, withCookies bool) string
}

func fixed(msg string) func(string, bool) string {
	return func(string, bool) string { return msg }
}

// Evaluated in order, first match wins.
var rules = []rule{
	{
		kind:    BotProtection,
		needles: []string{"Sign in to confirm you're not a bot", "bot protection"},
		message: func(_ string, withCookies bool) string {
			if withCookies {
				return "YouTube bot protection triggered even with cookies. Your cookies may be invalid or expired."
			}
			return "YouTube bot protection triggered. Try uploading your YouTube cookies file or try a different video."
		},
	},
	{
		kind:    Unavailable,
		needles: []string{"This video is private", "private video"},
		message: fixed("This video is private and cannot be accessed."),
	},
	{
		kind:    Unavailable,
		needles: []string{"Video unavailable"},
		message: fixed("This video is unavailable. It may have been removed or is restricted."),
	},
	{
		kind:    Copyright,
		needles: []string{"copyright"},
		message: fixed("This video cannot be downloaded due to copyright restrictions."),
	},
	{
		kind:    AgeRestricted,
		needles: []string{"age-restricted", "confirm your age"},
		message: fixed("This video is age-restricted and cannot be downloaded."),
	},
	{
		kind:    Transcode,
		needles: []string{"ffmpeg", "postprocessing"},
		message: fixed("Error during media conversion. Please try a different video."),
	},
	{
		kind:     MalformedMetadata,
		sentinel: extract.ErrNoMetadata,
		needles:  []string{"'NoneType' object", "not subscriptable"},
		message:  fixed("Failed to process video information. YouTube may be restricting access to this video."),
	},
	{
		kind:    CookieFormat,
		needles: []string{"cookies"},
		message: fixed("Error with cookies file. Make sure it's in the correct format (Netscape/Mozilla)."),
	},
	{
		kind:     FileNotProduced,
		sentinel: ErrFileNotProduced,
		message:  fixed("Conversion completed but file not found"),
	},
}

// matches compares needles case-insensitively.
func (r rule) matches(err error, raw string) bool {
	if r.sentinel != nil && errors.Is(err, r.sentinel) {
		return true
	}
	lower := strings.ToLower(raw)
	for _, needle := range r.needles {
		if strings.Contains(lower, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

// Classify maps a failure from any stage of a conversion to an *Error.
// Errors that are already classified pass through unchanged.
func Classify(err error, withCookies bool) *Error {
	if err == nil {
		return nil
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}

	raw := rawMessage(err)
	for _, r := range rules {
		if r.matches(err, raw) {
			return &Error{Kind: r.kind, Message: r.message(raw, withCookies), Err: err}
		}
	}
	return &Error{
		Kind:    Generic,
		Message: fmt.Sprintf("Error converting video: %s", raw),
		Err:     err,
	}
}

// rawMessage prefers the backend's own text over our wrapping.
func rawMessage(err error) string {
	var xerr *extract.Error
	if errors.As(err, &xerr) {
		return xerr.Message
	}
	return err.Error()
}
