package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJourneyCmd_FlagBinding(t *testing.T) {
	v := viper.New()
	jc := newJourneyCmd(v)

	require.NoError(t, jc.Flags().Set("destination", "Reykjavik"))
	require.NoError(t, jc.Flags().Set("mobile", "true"))
	require.NoError(t, jc.Flags().Set("junit-output", "journey.xml"))
	require.NoError(t, jc.PreRunE(jc, nil))

	assert.Equal(t, "Reykjavik", v.GetString("journey.destination"))
	assert.True(t, v.GetBool("browser.mobile"))
	assert.Equal(t, "journey.xml", v.GetString("report.junit_output"))

	// Unchanged flags surface their defaults through the binding.
	assert.Equal(t, "json", v.GetString("report.format"))
	assert.True(t, v.GetBool("browser.headless"))
	assert.True(t, v.GetBool("artifacts.screenshots"))
}

// runJourneyCmd executes `journey` through the real root command and
// returns the error. Every case here must fail validation before any
// component is constructed; nothing may reach the browser launch.
func runJourneyCmd(t *testing.T, args ...string) error {
	t.Helper()
	quietLogger(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"journey"}, args...))

	return root.ExecuteContext(context.Background())
}

func TestJourneyCmd_RejectsBadInputs(t *testing.T) {
	t.Run("should reject a stage outside 0..6", func(t *testing.T) {
		err := runJourneyCmd(t, "--stage", "7")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--stage must be between 0 and 6")
	})

	t.Run("should reject an unknown report format", func(t *testing.T) {
		err := runJourneyCmd(t, "--format", "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "report.format must be json or junit")
	})

	t.Run("should reject a target without an http scheme", func(t *testing.T) {
		err := runJourneyCmd(t, "ftp://stay.example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be http or https")
	})

	t.Run("should reject extra positional arguments", func(t *testing.T) {
		err := runJourneyCmd(t, "https://a.example.com", "https://b.example.com")
		require.Error(t, err)
	})
}
