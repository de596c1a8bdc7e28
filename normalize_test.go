package unfurl_test

import (
	"testing"

	"github.com/fwojciec/unfurl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds https scheme", "example.com", "https://example.com"},
		{"strips root trailing slash", "https://example.com/", "https://example.com"},
		{"lower-cases scheme and host", "HTTPS://EXAMPLE.com/Path", "https://example.com/Path"},
		{"keeps non-root trailing slash", "https://example.com/docs/", "https://example.com/docs/"},
		{"drops default port", "http://example.com:80/a", "http://example.com/a"},
		{"keeps explicit port", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"drops fragment", "https://example.com/a#section", "https://example.com/a"},
		{"strips tracking params and sorts query", "https://example.com/a?utm_source=x&b=2&fbclid=z&a=1", "https://example.com/a?a=1&b=2"},
		{"resolves video short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"keeps timestamp on video short link", "youtu.be/dQw4w9WgXcQ?t=42", "https://www.youtube.com/watch?t=42&v=dQw4w9WgXcQ"},
		{"converts unicode host to punycode", "https://bücher.example/", "https://xn--bcher-kva.example"},
		{"trims whitespace", "  example.com/a  ", "https://example.com/a"},
		{"keeps a query with semicolons verbatim", "https://example.com/page?a=1;b=2", "https://example.com/page?a=1;b=2"},
		{"keeps semicolon query on video short link", "https://youtu.be/dQw4w9WgXcQ?a=1;b=2", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&a=1;b=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := unfurl.NormalizeURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURL_Equivalence(t *testing.T) {
	t.Parallel()

	variants := []string{
		"example.com",
		"example.com/",
		"https://example.com",
		"https://example.com/",
		"https://EXAMPLE.COM/",
		"Example.Com",
	}

	want, err := unfurl.NormalizeURL(variants[0])
	require.NoError(t, err)
	for _, v := range variants {
		got, err := unfurl.NormalizeURL(v)
		require.NoError(t, err)
		assert.Equal(t, want, got, "variant %q", v)
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"example.com",
		"HTTP://Example.com:80/a/b/?z=1&a=2#x",
		"https://youtu.be/dQw4w9WgXcQ?t=10",
		"https://example.com/?",
		"https://example.com/?q=a+b",
		"https://example.com/page?a=1;b=2",
		"https://youtu.be/dQw4w9WgXcQ?a=1;b=2",
	}

	for _, in := range inputs {
		once, err := unfurl.NormalizeURL(in)
		require.NoError(t, err)
		twice, err := unfurl.NormalizeURL(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"ftp://example.com/file",
		"https://",
		"https://exa mple.com",
	}

	for _, in := range inputs {
		_, err := unfurl.NormalizeURL(in)
		require.Error(t, err, "input %q", in)
		assert.Equal(t, unfurl.EINVALID, unfurl.ErrorCode(err))
	}
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.com", unfurl.Origin("https://example.com/a/b?c=d"))
	assert.Equal(t, "http://example.com:8080", unfurl.Origin("http://example.com:8080/"))
	assert.Empty(t, unfurl.Origin("/relative/path"))
	assert.Equal(t, "https://example.com/favicon.ico", unfurl.DefaultFavicon("https://example.com/path"))
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"root-relative", "/img/a.png", "https://example.com/img/a.png"},
		{"relative", "a.png", "https://example.com/dir/a.png"},
		{"protocol-relative", "//cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"absolute", "http://other.example.com/a.png", "http://other.example.com/a.png"},
		{"data URI", "data:image/png;base64,AAAA", ""},
		{"javascript", "javascript:void(0)", ""},
		{"empty", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, unfurl.ResolveURL("https://example.com/dir/page", tt.ref))
		})
	}
}
