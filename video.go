package unfurl

import (
	"fmt"
	"regexp"
)

// Video platform URL templates.
const (
	videoWatchTemplate     = "https://www.youtube.com/watch?v=%s"
	videoThumbnailTemplate = "https://i.ytimg.com/vi/%s/maxresdefault.jpg"

	// VideoFavicon is the platform icon used when a video page exposes none.
	VideoFavicon = "https://www.youtube.com/favicon.ico"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// videoIDPatterns match the known URL shapes carrying a video identifier.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	regexp.MustCompile(`/v/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
}

// VideoID extracts the 11-character video identifier from a video platform
// URL. It reports false for non-video hosts and unrecognized shapes.
func VideoID(pageURL string) (string, bool) {
	if Classify(pageURL) != SiteVideo {
		return "", false
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// IsVideoID reports whether id has the shape of a video identifier.
func IsVideoID(id string) bool {
	return videoIDRe.MatchString(id)
}

// VideoWatchURL returns the canonical watch page URL for a video id.
func VideoWatchURL(id string) string {
	return fmt.Sprintf(videoWatchTemplate, id)
}

// VideoThumbnailURL returns the maximum-resolution thumbnail URL for a video
// id. It needs no network access.
func VideoThumbnailURL(id string) string {
	return fmt.Sprintf(videoThumbnailTemplate, id)
}
