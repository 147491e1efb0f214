package nest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"pipernest/internal/voice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promptVoices = []voice.Descriptor{
	{Key: "en_US-ryan-high", Name: "ryan", Quality: voice.QualityHigh},
	{Key: "en_US-amy-medium", Name: "amy", Quality: voice.QualityMedium},
}

func TestPromptSelectorByNumber(t *testing.T) {
	var out bytes.Buffer
	sel := PromptSelector(strings.NewReader("2\n"), &out, "en_US")

	d, err := sel(context.Background(), promptVoices)
	require.NoError(t, err)
	assert.Equal(t, "en_US-amy-medium", d.Key)
	assert.Contains(t, out.String(), "en_US-ryan-high")
}

func TestPromptSelectorRetriesUntilValid(t *testing.T) {
	var out bytes.Buffer
	sel := PromptSelector(strings.NewReader("kathleen\n9\nryan\n"), &out, "en_US")

	d, err := sel(context.Background(), promptVoices)
	require.NoError(t, err)
	assert.Equal(t, "en_US-ryan-high", d.Key)
	assert.Equal(t, 2, strings.Count(out.String(), "voice not found"))
}

func TestPromptSelectorQuit(t *testing.T) {
	var out bytes.Buffer
	_, err := PromptSelector(strings.NewReader("q\n"), &out, "en_US")(context.Background(), promptVoices)
	require.ErrorIs(t, err, ErrSelectionCancelled)
}

func TestPromptSelectorEOF(t *testing.T) {
	var out bytes.Buffer
	_, err := PromptSelector(strings.NewReader(""), &out, "en_US")(context.Background(), promptVoices)
	require.ErrorIs(t, err, ErrSelectionCancelled)

	// A final answer without a newline still counts.
	d, err := PromptSelector(strings.NewReader("amy"), &out, "en_US")(context.Background(), promptVoices)
	require.NoError(t, err)
	assert.Equal(t, "en_US-amy-medium", d.Key)
}

func TestFormatCatalogEmpty(t *testing.T) {
	assert.Equal(t, "No fr_FR voices available.", FormatCatalog("fr_FR", nil))
}

func TestFormatCatalogCheckFailed(t *testing.T) {
	out := FormatCatalog("en_US", []VoiceEntry{{
		Index:      1,
		Descriptor: voice.Descriptor{Key: "en_US-amy-low", Quality: voice.QualityLow},
		Status:     voice.StatusCheckFailed,
	}})
	assert.Contains(t, out, "en_US-amy-low [low] 0 B, status unknown")
}
