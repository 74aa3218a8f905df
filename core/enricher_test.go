package core

import (
	"encoding/json"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universe-gateway/models"
)

// fixedRandom 依次返回预设值
type fixedRandom struct {
	values []float64
	i      int
}

func (f *fixedRandom) Float64() float64 {
	v := f.values[f.i%len(f.values)]
	f.i++
	return v
}

func decodeRaw(t *testing.T, s string) []models.RawNode {
	t.Helper()
	var raw []models.RawNode
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestEnrichFeed_AllComplete(t *testing.T) {
	e := NewResultEnricher(quietLogger(),
		WithRandomSource(rand.New(rand.NewPCG(1, 2))),
		WithClock(fixedClock(1700000000000)),
	)

	nodes, dropped := e.EnrichFeed(decodeRaw(t, validFeedJSON))
	require.Len(t, nodes, 3)
	assert.Zero(t, dropped)

	for i, n := range nodes {
		assert.True(t, n.Complete())
		assert.True(t, strings.HasPrefix(n.ID, "node-1700000000000-"), n.ID)
		assert.GreaterOrEqual(t, n.Coordinates.X, -40.0)
		assert.Less(t, n.Coordinates.X, 40.0)
		assert.GreaterOrEqual(t, n.Coordinates.Y, -30.0)
		assert.Less(t, n.Coordinates.Y, 30.0)
		assert.GreaterOrEqual(t, n.Coordinates.Z, 0.0)
		assert.Less(t, n.Coordinates.Z, 20.0)
		assert.True(t, strings.HasPrefix(n.ImageURL, "https://picsum.photos/400/300?random="+strconv.Itoa(i)+"."), n.ImageURL)
	}
	assert.Equal(t, "Neon Tides", nodes[0].Title)
	assert.Equal(t, models.ContentSocialEvent, nodes[0].Type)
	assert.Equal(t, models.ContentMemoryCapsule, nodes[1].Type)
}

func TestEnrichFeed_CoordinateBounds(t *testing.T) {
	rnd := &fixedRandom{values: []float64{0, 0, 0, 0.25, 0.999999, 0.999999, 0.999999, 0.5}}
	e := NewResultEnricher(quietLogger(), WithRandomSource(rnd), WithClock(fixedClock(1)))

	nodes, _ := e.EnrichFeed(decodeRaw(t, validFeedJSON)[:2])
	require.Len(t, nodes, 2)

	assert.Equal(t, models.Coordinates{X: -40, Y: -30, Z: 0}, nodes[0].Coordinates)
	assert.Equal(t, "https://picsum.photos/400/300?random=0.250000", nodes[0].ImageURL)

	assert.InDelta(t, 40, nodes[1].Coordinates.X, 0.001)
	assert.Less(t, nodes[1].Coordinates.X, 40.0)
	assert.Less(t, nodes[1].Coordinates.Y, 30.0)
	assert.Less(t, nodes[1].Coordinates.Z, 20.0)
	assert.Equal(t, "https://picsum.photos/400/300?random=1.500000", nodes[1].ImageURL)
}

func TestEnrichFeed_DropsIncompleteRecords(t *testing.T) {
	input := `[
		{"title":"A","description":"d","type":"MINI_GAME","creator":"c","color":"#111111"},
		{"title":"B","description":"d","type":"MINI_GAME","creator":"c"},
		{"title":"C","description":"d","type":"HOLOGRAM","creator":"c","color":"#333333"},
		{"title":"  ","description":"d","type":"SOCIAL_EVENT","creator":"c","color":"#444444"},
		{"title":"E","description":"d","type":"SOCIAL_EVENT","creator":"c","color":"#555555"}
	]`
	e := NewResultEnricher(quietLogger(), WithClock(fixedClock(42)))

	nodes, dropped := e.EnrichFeed(decodeRaw(t, input))
	assert.Equal(t, 3, dropped)
	require.Len(t, nodes, 2)
	assert.Equal(t, "A", nodes[0].Title)
	assert.Equal(t, "node-42-0", nodes[0].ID)
	assert.Equal(t, "E", nodes[1].Title)
	assert.Equal(t, "node-42-4", nodes[1].ID)
}

func TestEnrichFeed_AllDropped(t *testing.T) {
	e := NewResultEnricher(quietLogger())
	nodes, dropped := e.EnrichFeed(decodeRaw(t, `[{"title":"x"},{}]`))
	assert.Empty(t, nodes)
	assert.NotNil(t, nodes)
	assert.Equal(t, 2, dropped)
}

func TestEnrichFeed_UniqueIDsAcrossCalls(t *testing.T) {
	// 同一毫秒内的两批也不能撞 ID
	e := NewResultEnricher(quietLogger(), WithClock(fixedClock(1000)))
	raw := decodeRaw(t, validFeedJSON)

	seen := map[string]bool{}
	for range 5 {
		nodes, _ := e.EnrichFeed(raw)
		for _, n := range nodes {
			assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
			seen[n.ID] = true
		}
	}
	assert.Len(t, seen, 15)
}

func TestEnrichFeed_SeededRandomIsReproducible(t *testing.T) {
	raw := decodeRaw(t, validFeedJSON)
	run := func() []models.UniverseNode {
		e := NewResultEnricher(quietLogger(),
			WithRandomSource(rand.New(rand.NewPCG(7, 7))),
			WithClock(fixedClock(5)),
		)
		nodes, _ := e.EnrichFeed(raw)
		return nodes
	}
	assert.Equal(t, run(), run())
}
