package utils

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// --- Filename Sanitization ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
var consecutiveUnderscores = regexp.MustCompile(`_+`)

const maxFilenameLength = 200 // Max length for a single sanitized path component

// SanitizeFilename cleans a string to be safe for use as a single filename
// component. Slashes are also replaced since callers pass one component at a
// time.
func SanitizeFilename(name string) string {
	sanitized := strings.ReplaceAll(name, "/", "_")
	sanitized = invalidFilenameChars.ReplaceAllString(sanitized, "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_ ")

	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}

// DestinationPath derives the on-disk destination for a URL in recursive
// mode: baseDir/<host>/<path>, with directory-like paths mapped to
// index.html. The host component keeps destinations unique when a crawl
// spans more than one host. A non-empty query is folded into the filename so
// that URLs differing only by query do not collide.
func DestinationPath(u *url.URL, baseDir string) string {
	urlPath := u.EscapedPath()
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		urlPath = path.Join(urlPath, "index.html")
	}
	urlPath = strings.TrimPrefix(urlPath, "/")

	segments := strings.Split(urlPath, "/")
	cleaned := make([]string, 0, len(segments)+1)
	cleaned = append(cleaned, SanitizeFilename(u.Host))
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			continue // never allow escaping baseDir
		}
		cleaned = append(cleaned, SanitizeFilename(seg))
	}

	dest := filepath.Join(append([]string{baseDir}, cleaned...)...)
	if u.RawQuery != "" {
		dest += "@" + SanitizeFilename(u.RawQuery)
	}
	return dest
}

// SingleDestination derives the destination for a non-recursive fetch:
// the explicit output path if given, otherwise the last URL path segment,
// falling back to index.html for directory-like URLs.
func SingleDestination(u *url.URL, output string) string {
	if output != "" {
		return output
	}
	base := path.Base(u.EscapedPath())
	if base == "/" || base == "." || base == "" {
		base = "index.html"
	}
	dest := SanitizeFilename(base)
	if u.RawQuery != "" {
		dest += "@" + SanitizeFilename(u.RawQuery)
	}
	return dest
}
