// Package media holds the small pieces of domain knowledge shared by the
// extractor, the converter and the http front ends: which URLs we accept,
// which output formats exist and how titles become filenames.
package media

import (
	"mime"
	"strings"
	"unicode"
)

type Format string

const (
	MP3 Format = "mp3"
	MP4 Format = "mp4"
)

var Formats = []Format{MP3, MP4}

func init() {
	mime.AddExtensionType(".mp3", "audio/mpeg")
	mime.AddExtensionType(".mp4", "video/mp4")
}

// ParseFormat accepts exactly "mp3" or "mp4".
func ParseFormat(s string) (Format, bool) {
	for _, f := range Formats {
		if s == string(f) {
			return f, true
		}
	}
	return "", false
}

func (f Format) Ext() string {
	return "." + string(f)
}

func (f Format) String() string {
	return string(f)
}

// Extensions returns the file extensions of every supported format.
func Extensions() []string {
	exts := make([]string, len(Formats))
	for i, f := range Formats {
		exts[i] = f.Ext()
	}
	return exts
}

// SanitizeTitle keeps letters, digits, space, hyphen, underscore and period,
// then trims surrounding whitespace.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(" -_.", r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
