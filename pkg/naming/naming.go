// Package naming turns video metadata and URLs into safe local filenames.
package naming

import (
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// DefaultMaxRunes bounds the descriptive part of a filename.
	DefaultMaxRunes = 50
	// UntitledDesc replaces an empty description.
	UntitledDesc = "無標題"
	// UnknownID replaces a missing aweme id.
	UnknownID = "unknown"
	videoExt  = ".mp4"
)

var strict = bluemonday.StrictPolicy()

// forbidden are the characters rejected by common filesystems.
const forbidden = `<>:"/\|?*`

// Sanitize replaces forbidden and control characters with '_', trims
// surrounding spaces and dots, and cuts the result to maxRunes runes.
func Sanitize(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}

	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if n >= maxRunes {
			break
		}
		if r == utf8.RuneError || unicode.IsControl(r) || strings.ContainsRune(forbidden, r) {
			r = '_'
		}
		b.WriteRune(r)
		n++
	}
	return strings.Trim(b.String(), " .")
}

// CleanText strips markup from DOM-derived text and collapses whitespace.
func CleanText(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// ForAweme names an API result "{id}_{desc}.mp4".
func ForAweme(id, desc string, maxRunes int) string {
	if id == "" {
		id = UnknownID
	}
	desc = Sanitize(CleanText(desc), maxRunes)
	if desc == "" {
		desc = UntitledDesc
	}
	return Sanitize(id, 64) + "_" + desc + videoExt
}

// ForIndexed names a hover result "{index:03d}_{title}.mp4".
func ForIndexed(index int, title string, maxRunes int) string {
	title = Sanitize(CleanText(title), maxRunes)
	if title == "" {
		title = fmt.Sprintf("video_%d", index)
	}
	return fmt.Sprintf("%03d_%s%s", index, title, videoExt)
}

// FromURL names a file after the last non-empty path segment of rawURL,
// adding .mp4 when needed. fallback is used when the URL has no usable
// segment.
func FromURL(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ensureExt(fallback)
	}

	base := path.Base(strings.TrimRight(u.Path, "/"))
	if base == "." || base == "/" || base == "" {
		return ensureExt(fallback)
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	base = Sanitize(base, 120)
	if base == "" {
		return ensureExt(fallback)
	}
	return ensureExt(base)
}

func ensureExt(name string) string {
	if strings.HasSuffix(strings.ToLower(name), videoExt) {
		return name
	}
	return name + videoExt
}

// Unique returns name, or name with a numeric suffix before the extension
// (clip.mp4, clip_1.mp4, clip_2.mp4, ...) when taken reports a clash.
func Unique(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}
