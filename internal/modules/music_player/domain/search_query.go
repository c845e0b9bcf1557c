package domain

import (
	"net/url"
	"strings"
)

// Reference is a user-supplied song reference: a URL or a search term.
type Reference struct {
	Raw   string
	IsURL bool
}

// NewReference classifies user input.
func NewReference(input string) Reference {
	input = strings.TrimSpace(input)
	return Reference{
		Raw:   input,
		IsURL: isURL(input),
	}
}

// IsValid returns true if the reference is not empty.
func (r Reference) IsValid() bool {
	return r.Raw != ""
}

// IsPlaylist reports whether the reference points at a playlist rather than a
// single video. A watch URL that also carries a list parameter is treated as
// the single video.
func (r Reference) IsPlaylist() bool {
	if !r.IsURL {
		return false
	}

	raw := r.Raw
	if strings.HasPrefix(raw, "www.") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if strings.TrimSuffix(u.Path, "/") == "/playlist" {
		return true
	}

	query := u.Query()
	return query.Get("list") != "" && query.Get("v") == "" && !isShortLink(u)
}

// SearchQuery returns the Lavalink search form of a non-URL reference.
func (r Reference) SearchQuery() string {
	if r.IsURL {
		return r.Raw
	}
	return "ytsearch:" + r.Raw
}

// isURL checks if the input looks like a URL.
func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}

// isShortLink reports youtu.be links, whose path is the video id.
func isShortLink(u *url.URL) bool {
	return strings.TrimPrefix(u.Host, "www.") == "youtu.be" && len(u.Path) > 1
}
