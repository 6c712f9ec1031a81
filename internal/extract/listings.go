// Package extract reads structured records out of serialized page
// snapshots. Each scrape takes one outerHTML grab from the live page and
// every query after that runs on the parsed snapshot, so extraction is
// deterministic for a given page state and testable without a browser.
package extract

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Tier identifies which strategy produced a result set.
type Tier string

const (
	// TierStructured reads schema.org ListItem markup.
	TierStructured Tier = "structured"
	// TierCards reads generic card containers.
	TierCards Tier = "cards"
	// TierNone means neither tier produced a record.
	TierNone Tier = "none"
)

// DefaultListingCap bounds per-page work on very long result feeds.
const DefaultListingCap = 20

// cardTitleCap limits titles lifted from accessible labels, which on some
// layouts run to whole sentences.
const cardTitleCap = 150

// cardPriceCap rejects long card strings that merely mention a price.
const cardPriceCap = 80

var currencyMarkers = []string{"$", "€", "£"}

// Listings extracts listing records from a results-page snapshot. The two
// tiers are tried in order and the first one to yield any record wins the
// whole page; tiers are never mixed within a page. Records keep document
// order, Position is the 0-based emission index, and items without a
// title are dropped.
func Listings(r io.Reader, limit int) ([]schemas.ListingRecord, Tier, error) {
	if limit <= 0 {
		limit = DefaultListingCap
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, TierNone, fmt.Errorf("parsing results snapshot: %w", err)
	}

	if records := structuredListings(doc, limit); len(records) > 0 {
		return records, TierStructured, nil
	}
	if records := cardListings(doc, limit); len(records) > 0 {
		return records, TierCards, nil
	}
	return nil, TierNone, nil
}

// structuredListings reads schema.org ListItem nodes: name and url come
// from embedded meta tags, the price from the first currency-marked text,
// the image from the first img source.
func structuredListings(doc *html.Node, limit int) []schemas.ListingRecord {
	items := htmlquery.Find(doc, `//*[@itemtype='http://schema.org/ListItem']`)

	records := make([]schemas.ListingRecord, 0, len(items))
	for i, item := range items {
		if i >= limit {
			break
		}
		rec := schemas.ListingRecord{}
		if meta := htmlquery.FindOne(item, `.//meta[@itemprop='name']`); meta != nil {
			rec.Title = strings.TrimSpace(htmlquery.SelectAttr(meta, "content"))
		}
		if meta := htmlquery.FindOne(item, `.//meta[@itemprop='url']`); meta != nil {
			rec.ListingURL = strings.TrimSpace(htmlquery.SelectAttr(meta, "content"))
		}
		rec.Price = firstCurrencyText(item, 0)
		rec.ImageURL = firstImageSrc(item)

		if rec.Title == "" {
			continue
		}
		rec.Position = len(records)
		records = append(records, rec)
	}
	return records
}

// cardListings reads generic card containers: the title comes from the
// room link's accessible label (or the card's first text line), the price
// from a length-bounded currency scan.
func cardListings(doc *html.Node, limit int) []schemas.ListingRecord {
	cards := htmlquery.Find(doc, `//div[@data-testid='card-container']`)

	records := make([]schemas.ListingRecord, 0, len(cards))
	for i, card := range cards {
		if i >= limit {
			break
		}
		rec := schemas.ListingRecord{}
		if link := htmlquery.FindOne(card, `.//a[contains(@href,'/rooms/')]`); link != nil {
			rec.ListingURL = strings.TrimSpace(htmlquery.SelectAttr(link, "href"))
			rec.Title = capRunes(strings.TrimSpace(htmlquery.SelectAttr(link, "aria-label")), cardTitleCap)
		}
		if rec.Title == "" {
			rec.Title = firstTextLine(card)
		}
		rec.Price = firstCurrencyText(card, cardPriceCap)
		rec.ImageURL = firstImageSrc(card)

		if rec.Title == "" {
			continue
		}
		rec.Position = len(records)
		records = append(records, rec)
	}
	return records
}

// firstCurrencyText scans descendant text in document order for the first
// currency-marked string. maxLen > 0 additionally bounds the accepted
// length, which keeps card scans from swallowing description blocks that
// merely mention a price.
func firstCurrencyText(n *html.Node, maxLen int) string {
	var found string
	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if node.Type == html.TextNode {
			text := strings.TrimSpace(node.Data)
			if text != "" && hasCurrencyMarker(text) && (maxLen <= 0 || len(text) <= maxLen) {
				found = text
				return true
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(n)
	return found
}

func hasCurrencyMarker(s string) bool {
	for _, m := range currencyMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func firstImageSrc(n *html.Node) string {
	if img := htmlquery.FindOne(n, `.//img`); img != nil {
		return strings.TrimSpace(htmlquery.SelectAttr(img, "src"))
	}
	return ""
}

// firstTextLine returns the first non-empty line of the node's text.
func firstTextLine(n *html.Node) string {
	for _, line := range strings.Split(htmlquery.InnerText(n), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// capRunes truncates s to at most n runes without splitting a character.
func capRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
