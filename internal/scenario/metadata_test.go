package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResourceOrdinal(t *testing.T) {
	assert.Equal(t, ResourceLow, ParseResource("low"))
	assert.Equal(t, ResourceMedium, ParseResource("medium"))
	assert.Equal(t, ResourceHigh, ParseResource("high"))
	assert.Equal(t, ResourceUnknown, ParseResource("fine-ish"))
	assert.Equal(t, ResourceUnknown, ParseResource(nil))
	assert.True(t, ResourceLow < ResourceMedium && ResourceMedium < ResourceHigh)
}

func TestCardDrawnHandlesJSONNumbers(t *testing.T) {
	n, ok := CardDrawn(map[string]any{"card": float64(7)})
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = CardDrawn(map[string]any{"card": "seven"})
	assert.False(t, ok)

	_, ok = CardDrawn(map[string]any{})
	assert.False(t, ok)
}

func TestCategoryStringifiesScalars(t *testing.T) {
	meta := map[string]any{
		"mood":  "calm",
		"card":  float64(12),
		"blank": "",
	}

	v, ok := Category(meta, "mood")
	assert.True(t, ok)
	assert.Equal(t, "calm", v)

	v, ok = Category(meta, "card")
	assert.True(t, ok)
	assert.Equal(t, "12", v)

	_, ok = Category(meta, "blank")
	assert.False(t, ok)
	_, ok = Category(meta, "missing")
	assert.False(t, ok)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusAbandoned.Terminal())
}

func TestKindValidation(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid(), string(k))
		assert.NotEmpty(t, FunnelFor(k), string(k))
	}
	assert.False(t, Kind("mystery").Valid())
	assert.Nil(t, FunnelFor(Kind("mystery")))
}
