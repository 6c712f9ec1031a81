package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Headings shorter than this are icon glyphs or layout artifacts, not
// listing titles.
const minHeadingLen = 3

var subtitleQueries = []string{
	`//h1/following::h2[1]`,
	`//div[@data-section-id='OVERVIEW_DEFAULT_V2']//h2`,
	`//div[@data-plugin-in-point-id='OVERVIEW_DEFAULT_V2']//h2`,
	`//h2`,
}

var galleryQueries = []string{
	`//div[contains(@data-section-id,'HERO') or contains(@data-plugin-in-point-id,'HERO')]//img`,
	`//button[contains(@aria-label,'photo') or contains(@aria-label,'Photo')]//img`,
	`//div[.//button[contains(text(),'Show all photos')]]//img`,
}

// imageSourceAttrs in preference order; lazy-loading layouts park the real
// URL in a data attribute until the image scrolls into view.
var imageSourceAttrs = []string{"src", "data-original-uri", "data-src"}

// Detail extracts the title, subtitle, and gallery image set from a
// listing detail snapshot. PageURL is left empty for the caller, which
// knows the live URL the snapshot came from.
func Detail(r io.Reader) (schemas.DetailRecord, error) {
	var rec schemas.DetailRecord

	doc, err := html.Parse(r)
	if err != nil {
		return rec, fmt.Errorf("parsing detail snapshot: %w", err)
	}

	rec.Title = detailTitle(doc)
	rec.Subtitle = detailSubtitle(doc)
	rec.ImageURLs = galleryImages(doc)
	return rec, nil
}

// detailTitle returns the first heading with real text.
func detailTitle(doc *html.Node) string {
	for _, h1 := range htmlquery.Find(doc, `//h1`) {
		if t := strings.TrimSpace(htmlquery.InnerText(h1)); len(t) >= minHeadingLen {
			return t
		}
	}
	return ""
}

// detailSubtitle returns the first qualifying secondary heading, preferring
// the one that directly follows the title in document order.
func detailSubtitle(doc *html.Node) string {
	for _, q := range subtitleQueries {
		for _, h2 := range htmlquery.Find(doc, q) {
			if t := strings.TrimSpace(htmlquery.InnerText(h2)); len(t) >= minHeadingLen {
				return t
			}
		}
	}
	return ""
}

// galleryImages returns the deduplicated gallery image URLs in first-seen
// order. Inline data URIs are lazy-load placeholders, not photos, and are
// skipped everywhere.
func galleryImages(doc *html.Node) []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(img *html.Node) {
		for _, attr := range imageSourceAttrs {
			src := strings.TrimSpace(htmlquery.SelectAttr(img, attr))
			if src == "" || strings.HasPrefix(src, "data:") {
				continue
			}
			if _, dup := seen[src]; !dup {
				seen[src] = struct{}{}
				urls = append(urls, src)
			}
			return
		}
	}

	for _, q := range galleryQueries {
		for _, img := range htmlquery.Find(doc, q) {
			add(img)
		}
	}

	if len(urls) == 0 {
		// No recognizable gallery section; take every absolute image on
		// the page instead.
		for _, img := range htmlquery.Find(doc, `//img`) {
			src := strings.TrimSpace(htmlquery.SelectAttr(img, "src"))
			if !strings.HasPrefix(src, "http") {
				continue
			}
			if _, dup := seen[src]; !dup {
				seen[src] = struct{}{}
				urls = append(urls, src)
			}
		}
	}
	return urls
}
