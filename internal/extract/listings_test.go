package extract_test

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
	"github.com/xkilldash9x/wayfarer-cli/internal/extract"
)

const structuredResultsPage = `
<html><body>
  <div itemtype="http://schema.org/ListItem" itemscope>
    <meta itemprop="name" content="Skylit Loft in Mitte">
    <meta itemprop="url" content="https://www.example.com/rooms/101">
    <img src="https://img.example.com/101.jpg">
    <span>$120 per night</span>
  </div>
  <div itemtype="http://schema.org/ListItem" itemscope>
    <meta itemprop="name" content="">
    <meta itemprop="url" content="https://www.example.com/rooms/102">
    <span>$95</span>
  </div>
  <div itemtype="http://schema.org/ListItem" itemscope>
    <meta itemprop="name" content="Canal House">
    <span>from <b>&#8364;210</b> total</span>
  </div>
</body></html>`

const cardResultsPage = `
<html><body>
  <div data-testid="card-container">
    <a href="/rooms/201" aria-label="Bright studio near the park">see it</a>
    <img src="https://img.example.com/201.jpg">
    <div><span>$88 night</span></div>
  </div>
  <div data-testid="card-container">
    <div>Cozy attic hideaway
rated 4.9</div>
    <a href="/rooms/202">plain link</a>
    <span>This long descriptive paragraph happens to mention a $50 deposit somewhere far into the text of the card body.</span>
    <span>$132 night</span>
  </div>
  <div data-testid="card-container">
    <div><img src="https://img.example.com/untitled.jpg"></div>
  </div>
</body></html>`

func TestListings(t *testing.T) {
	t.Run("should extract structured items with positions in document order", func(t *testing.T) {
		records, tier, err := extract.Listings(strings.NewReader(structuredResultsPage), 0)
		require.NoError(t, err)
		require.Equal(t, extract.TierStructured, tier)
		require.Len(t, records, 2, "the unnamed item must be dropped")

		want := []schemas.ListingRecord{
			{
				Title:      "Skylit Loft in Mitte",
				Price:      "$120 per night",
				ImageURL:   "https://img.example.com/101.jpg",
				ListingURL: "https://www.example.com/rooms/101",
				Position:   0,
			},
			{
				Title:    "Canal House",
				Price:    "€210",
				Position: 1,
			},
		}
		if diff := cmp.Diff(want, records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should fall back to card containers when structured markup is absent", func(t *testing.T) {
		records, tier, err := extract.Listings(strings.NewReader(cardResultsPage), 0)
		require.NoError(t, err)
		require.Equal(t, extract.TierCards, tier)
		require.Len(t, records, 2, "the card with no title source must be dropped")

		assert.Equal(t, "Bright studio near the park", records[0].Title, "aria-label wins as the title source")
		assert.Equal(t, "/rooms/201", records[0].ListingURL)
		assert.Equal(t, "$88 night", records[0].Price)
		assert.Equal(t, "https://img.example.com/201.jpg", records[0].ImageURL)

		assert.Equal(t, "Cozy attic hideaway", records[1].Title, "first text line stands in when aria-label is missing")
		assert.Equal(t, "$132 night", records[1].Price, "currency strings over the length bound are skipped")
		assert.Equal(t, 1, records[1].Position)
	})

	t.Run("should never mix tiers even when cards coexist with structured items", func(t *testing.T) {
		page := strings.Replace(structuredResultsPage, "</body>",
			`<div data-testid="card-container"><a href="/rooms/9" aria-label="Card Tier Item">x</a></div></body>`, 1)

		records, tier, err := extract.Listings(strings.NewReader(page), 0)
		require.NoError(t, err)
		assert.Equal(t, extract.TierStructured, tier)
		for _, rec := range records {
			assert.NotEqual(t, "Card Tier Item", rec.Title)
		}
	})

	t.Run("should cap the number of processed items", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("<html><body>")
		for i := 0; i < 30; i++ {
			sb.WriteString(`<div itemtype="http://schema.org/ListItem"><meta itemprop="name" content="Listing"></div>`)
		}
		sb.WriteString("</body></html>")

		records, tier, err := extract.Listings(strings.NewReader(sb.String()), 0)
		require.NoError(t, err)
		assert.Equal(t, extract.TierStructured, tier)
		assert.Len(t, records, extract.DefaultListingCap)
	})

	t.Run("should return no records and no error for a page with neither layout", func(t *testing.T) {
		records, tier, err := extract.Listings(strings.NewReader("<html><body><p>maintenance</p></body></html>"), 0)
		require.NoError(t, err)
		assert.Equal(t, extract.TierNone, tier)
		assert.Empty(t, records)
	})

	t.Run("should be deterministic across repeated runs on the same snapshot", func(t *testing.T) {
		first, firstTier, err := extract.Listings(strings.NewReader(cardResultsPage), 0)
		require.NoError(t, err)
		second, secondTier, err := extract.Listings(strings.NewReader(cardResultsPage), 0)
		require.NoError(t, err)

		assert.Equal(t, firstTier, secondTier)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("extraction is not deterministic (-first +second):\n%s", diff)
		}
	})
}

func FuzzListings(f *testing.F) {
	f.Add([]byte(`<div data-testid="card-container"><a href="/rooms/1" aria-label="Loft">x</a></div>`))
	f.Add([]byte(structuredResultsPage))

	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		snapshot, err := fuzzConsumer.GetString()
		if err != nil {
			return
		}
		limit, err := fuzzConsumer.GetInt()
		if err != nil {
			limit = 0
		}

		records, tier, err := extract.Listings(strings.NewReader(snapshot), limit%64)
		if err != nil {
			return
		}

		// Whatever the input, the output invariants hold: titled records
		// only, contiguous 0-based positions, and a real tier when any
		// record was produced.
		for i, rec := range records {
			if rec.Title == "" {
				t.Fatalf("record %d has an empty title (tier %s)", i, tier)
			}
			if rec.Position != i {
				t.Fatalf("record %d carries position %d", i, rec.Position)
			}
		}
		if len(records) > 0 && tier == extract.TierNone {
			t.Fatalf("%d records but tier is %s", len(records), tier)
		}
	})
}
