package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResolveScript(t *testing.T) {
	t.Run("should bind the candidate as a JSON argument", func(t *testing.T) {
		script, err := buildResolveScript(resolveSpec{
			Strategy:  "testid",
			Value:     "structured-search-input-field-query",
			Visible:   true,
			Enabled:   true,
			Limit:     1,
			TagPrefix: "w7",
		})
		require.NoError(t, err)
		assert.Contains(t, script, `"strategy":"testid"`)
		assert.Contains(t, script, `"value":"structured-search-input-field-query"`)
		assert.Contains(t, script, `"tagPrefix":"w7"`)
		assert.Contains(t, script, `"limit":1`)
	})

	t.Run("should keep the stamped attribute in sync with the script", func(t *testing.T) {
		// The selector built from tagAttribute must address the attribute
		// the script sets, or every handle goes stale instantly.
		assert.Contains(t, resolveScript, "'"+tagAttribute+"'")
	})

	t.Run("should survive hostile candidate values", func(t *testing.T) {
		script, err := buildResolveScript(resolveSpec{
			Strategy: "css",
			Value:    `a[href*="/rooms/"] "quoted"` + "\n",
		})
		require.NoError(t, err)
		assert.Contains(t, script, `\"quoted\"`, "quotes must arrive escaped inside the JSON argument")
		assert.NotContains(t, strings.Split(script, "})(")[1], "\n", "the bound argument must stay on one line")
	})
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"plain"`, jsString("plain"))
	assert.Equal(t, `"say \"hi\""`, jsString(`say "hi"`))
	assert.Equal(t, `"line\nbreak"`, jsString("line\nbreak"))
}
