package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseContentType(t *testing.T) {
	for _, ct := range AllContentTypes() {
		got, ok := ParseContentType(string(ct))
		assert.True(t, ok)
		assert.Equal(t, ct, got)
		assert.NotEqual(t, "sparkles", ct.Icon(), "every known type has its own icon")
	}

	_, ok := ParseContentType("HOLOGRAM")
	assert.False(t, ok)

	got, ok := ParseContentType(" MINI_GAME ")
	assert.True(t, ok)
	assert.Equal(t, ContentMiniGame, got)
}

func TestRawNodeValidate(t *testing.T) {
	full := RawNode{
		Title:       strPtr("Orbit Cafe"),
		Description: strPtr("Zero-g coffee meetups"),
		Type:        strPtr("SOCIAL_EVENT"),
		Creator:     strPtr("Barista9"),
		Color:       strPtr("#ff00aa"),
	}
	assert.NoError(t, full.Validate())

	noColor := full
	noColor.Color = nil
	err := noColor.Validate()
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "color")

	blankCreator := full
	blankCreator.Creator = strPtr("   ")
	assert.True(t, errors.Is(blankCreator.Validate(), ErrMissingField))

	badType := full
	badType.Type = strPtr("VR_CONCERT")
	assert.True(t, errors.Is(badType.Validate(), ErrInvalidType))
}

func TestRawNodeDecodeDistinguishesMissing(t *testing.T) {
	var nodes []RawNode
	require.NoError(t, json.Unmarshal([]byte(`[{"title":"a","description":"b","type":"MINI_GAME","creator":"c"}]`), &nodes))
	require.Len(t, nodes, 1)
	assert.Nil(t, nodes[0].Color)
	assert.Error(t, nodes[0].Validate())
}

func TestUniverseNodeJSONShape(t *testing.T) {
	n := UniverseNode{
		ID: "node-1-0", Title: "t", Description: "d", Type: ContentMemoryCapsule,
		Creator: "c", Color: "#000000", Coordinates: Coordinates{X: 1, Y: 2, Z: 3},
		ImageURL: "https://picsum.photos/400/300?random=1",
	}
	assert.True(t, n.Complete())

	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"node-1-0","title":"t","description":"d","type":"MEMORY_CAPSULE",
		"creator":"c","color":"#000000","coordinates":{"x":1,"y":2,"z":3},
		"imageUrl":"https://picsum.photos/400/300?random=1"
	}`, string(b))

	n.ImageURL = ""
	assert.False(t, n.Complete())
}

func TestNormalizeInterests(t *testing.T) {
	got := NormalizeInterests([]string{" Sci-Fi ", "", "music", "sci-fi", "Music "})
	assert.Equal(t, []string{"Sci-Fi", "music"}, got)
}
