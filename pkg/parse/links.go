package parse

import (
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// IsHTML reports whether a Content-Type header value indicates an HTML body
// worth inspecting for links.
func IsHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Fall back to a prefix check for sloppy servers
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ExtractLinks finds candidate URLs referenced by an HTML body: anchor hrefs
// and image sources. Relative references are resolved against base (the
// final, post-redirect URL of the page). Fragment-only references and
// non-http(s) schemes are excluded. No deduplication happens here; that is
// the visited set's job.
func ExtractLinks(body io.Reader, base *url.URL, log *logrus.Entry) []*url.URL {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		log.Warnf("Cannot parse HTML from '%s': %v", base, err)
		return nil
	}

	var links []*url.URL
	collect := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "#") {
			return // empty or same-page anchor
		}
		u, parseErr := base.Parse(ref)
		if parseErr != nil {
			log.Debugf("Skipping unparseable reference '%s': %v", ref, parseErr)
			return
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return // mailto:, javascript:, data:, etc.
		}
		if u.Host == "" {
			return
		}
		u.Fragment = ""
		u.RawFragment = ""
		links = append(links, u)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			collect(href)
		}
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			collect(src)
		}
	})

	return links
}
