package extract_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/wayfarer-cli/internal/extract"
)

const detailPage = `
<html><body>
  <section>
    <h1>Contemporary Spacious Urban Apartment</h1>
  </section>
  <div data-section-id="OVERVIEW_DEFAULT_V2">
    <h2>Entire rental unit in Berlin, Germany</h2>
  </div>
  <div data-section-id="HERO_DEFAULT">
    <img src="https://img.example.com/a.jpg">
    <img src="data:image/gif;base64,R0lGOD">
    <img data-original-uri="https://img.example.com/b.jpg">
    <img src="https://img.example.com/a.jpg">
  </div>
  <div>
    <img src="https://img.example.com/unrelated.jpg">
  </div>
</body></html>`

func TestDetail(t *testing.T) {
	t.Run("should capture title, subtitle, and deduplicated gallery", func(t *testing.T) {
		rec, err := extract.Detail(strings.NewReader(detailPage))
		require.NoError(t, err)

		assert.Equal(t, "Contemporary Spacious Urban Apartment", rec.Title)
		assert.Equal(t, "Entire rental unit in Berlin, Germany", rec.Subtitle)
		assert.Equal(t, []string{
			"https://img.example.com/a.jpg",
			"https://img.example.com/b.jpg",
		}, rec.ImageURLs, "gallery keeps first-seen order, drops data URIs and duplicates, and ignores images outside the gallery sections")
		assert.Empty(t, rec.PageURL, "the caller owns the live URL")
	})

	t.Run("should prefer the h2 that follows the title in document order", func(t *testing.T) {
		page := `<html><body>
		  <h2>Navigation artifact</h2>
		  <h1>Harbor View Flat</h1>
		  <h2>Entire loft in Copenhagen</h2>
		</body></html>`

		rec, err := extract.Detail(strings.NewReader(page))
		require.NoError(t, err)
		assert.Equal(t, "Harbor View Flat", rec.Title)
		assert.Equal(t, "Entire loft in Copenhagen", rec.Subtitle)
	})

	t.Run("should skip heading glyphs shorter than real text", func(t *testing.T) {
		page := `<html><body><h1>+</h1><h1>Actual Title Here</h1></body></html>`

		rec, err := extract.Detail(strings.NewReader(page))
		require.NoError(t, err)
		assert.Equal(t, "Actual Title Here", rec.Title)
	})

	t.Run("should fall back to absolute page images when no gallery section exists", func(t *testing.T) {
		page := `<html><body>
		  <h1>Minimal Listing</h1>
		  <img src="data:image/gif;base64,AAA">
		  <img src="https://img.example.com/only.jpg">
		</body></html>`

		rec, err := extract.Detail(strings.NewReader(page))
		require.NoError(t, err)
		assert.Equal(t, []string{"https://img.example.com/only.jpg"}, rec.ImageURLs)
	})

	t.Run("should return empty fields rather than failing on a bare page", func(t *testing.T) {
		rec, err := extract.Detail(strings.NewReader("<html><body></body></html>"))
		require.NoError(t, err)
		assert.Empty(t, rec.Title)
		assert.Empty(t, rec.Subtitle)
		assert.Empty(t, rec.ImageURLs)
	})
}

func FuzzDetail(f *testing.F) {
	f.Add([]byte(`<html><h1>Sea View Flat</h1><img src="https://img.example.com/1.jpg"></html>`))
	f.Add([]byte(`<img src="data:image/png;base64,http"><img src="https://img.example.com/2.jpg">`))
	f.Add([]byte(`<<<>>>&#x0;<h1></h1>`))

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := extract.Detail(bytes.NewReader(data))
		if err != nil {
			return
		}

		// Whatever the markup, the gallery invariants hold: no data URIs,
		// no duplicates.
		seen := make(map[string]bool)
		for _, u := range rec.ImageURLs {
			if strings.HasPrefix(u, "data:") {
				t.Fatalf("data URI leaked into the gallery: %q", u)
			}
			if seen[u] {
				t.Fatalf("duplicate gallery image %q", u)
			}
			seen[u] = true
		}
	})
}
