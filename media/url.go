package media

import (
	"net/url"
	"regexp"

	"github.com/tidwall/match"
)

var videoURLPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?` +
		`(youtube|youtu|youtube-nocookie)\.(com|be)/` +
		`(watch\?v=|embed/|v/|.+\?v=)?([^&=%\?]{11})`,
)

var shortURLPatterns = []string{
	"youtu.be/?*",
}

// ValidateURL reports whether rawURL has the shape of a video page on the
// supported host. It never touches the network, so a true result says
// nothing about whether the video exists.
func ValidateURL(rawURL string) bool {
	if videoURLPattern.MatchString(rawURL) {
		return true
	}
	return isShortURL(rawURL)
}

func isShortURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	hostPath := u.Host + u.Path
	for _, p := range shortURLPatterns {
		if match.Match(hostPath, p) {
			return true
		}
	}
	return false
}
