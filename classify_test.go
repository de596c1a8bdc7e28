package unfurl_test

import (
	"testing"

	"github.com/fwojciec/unfurl"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want unfurl.Site
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", unfurl.SiteVideo},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", unfurl.SiteVideo},
		{"https://youtu.be/dQw4w9WgXcQ", unfurl.SiteVideo},
		{"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", unfurl.SiteVideo},
		{"https://twitter.com/golang/status/1", unfurl.SiteMicroblog},
		{"https://mobile.twitter.com/golang", unfurl.SiteMicroblog},
		{"https://x.com/golang", unfurl.SiteMicroblog},
		{"https://notx.com/page", unfurl.SiteGeneric},
		{"https://example.com/youtube.com", unfurl.SiteGeneric},
		{"example.com", unfurl.SiteGeneric},
		{"", unfurl.SiteGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, unfurl.Classify(tt.url))
		})
	}
}

func TestVideoID(t *testing.T) {
	t.Parallel()

	t.Run("recognized shapes share one thumbnail", func(t *testing.T) {
		t.Parallel()

		shapes := []string{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ",
			"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1",
			"https://youtu.be/dQw4w9WgXcQ",
			"https://www.youtube.com/v/dQw4w9WgXcQ",
			"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		}

		for _, s := range shapes {
			id, ok := unfurl.VideoID(s)
			assert.True(t, ok, s)
			assert.Equal(t, "dQw4w9WgXcQ", id, s)
			assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", unfurl.VideoThumbnailURL(id))
		}
	})

	t.Run("rejects non-video hosts", func(t *testing.T) {
		t.Parallel()

		_, ok := unfurl.VideoID("https://example.com/watch?v=dQw4w9WgXcQ")
		assert.False(t, ok)
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		t.Parallel()

		_, ok := unfurl.VideoID("https://www.youtube.com/watch?v=short")
		assert.False(t, ok)
		_, ok = unfurl.VideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQextra")
		assert.False(t, ok)
	})

	t.Run("builds canonical watch URL", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", unfurl.VideoWatchURL("dQw4w9WgXcQ"))
	})
}
