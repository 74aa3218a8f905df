package core

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universe-gateway/models"
)

// stubGateway 可阻塞的 ContentGateway
type stubGateway struct {
	release chan struct{}
	calls   atomic.Int32
}

func (g *stubGateway) GetFeed(ctx context.Context, interests []string) []models.UniverseNode {
	g.calls.Add(1)
	if g.release != nil {
		<-g.release
	}
	return MockFeed()
}

func (g *stubGateway) CoCreate(ctx context.Context, prompt string) models.GeneratedContent {
	g.calls.Add(1)
	if g.release != nil {
		<-g.release
	}
	return models.GeneratedContent{Title: "Echo", Content: prompt, SuggestedVisuals: "mirror"}
}

func dialSession(t *testing.T, gw ContentGateway) *websocket.Conn {
	t.Helper()
	return dialSessionWithMetrics(t, gw, nil)
}

func dialSessionWithMetrics(t *testing.T, gw ContentGateway, m *Metrics) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewSessionHandler(gw, m, quietLogger()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.SessionFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f models.SessionFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestSession_FeedAndCoCreate(t *testing.T) {
	conn := dialSession(t, &stubGateway{})

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: FrameFeed, Interests: []string{"Jazz"}}))
	feed := readFrame(t, conn)
	assert.Equal(t, FrameFeed, feed.Type)
	assert.Len(t, feed.Nodes, 3)

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: FrameCoCreate, Prompt: "hello"}))
	co := readFrame(t, conn)
	assert.Equal(t, FrameCoCreate, co.Type)
	require.NotNil(t, co.Content)
	assert.Equal(t, "hello", co.Content.Content)
}

func TestSession_RejectsConcurrentRequest(t *testing.T) {
	gw := &stubGateway{release: make(chan struct{})}
	conn := dialSession(t, gw)

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: FrameFeed}))
	require.Eventually(t, func() bool { return gw.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: FrameCoCreate, Prompt: "second"}))
	busy := readFrame(t, conn)
	assert.Equal(t, FrameBusy, busy.Type)
	assert.EqualValues(t, 1, gw.calls.Load())

	close(gw.release)
	done := readFrame(t, conn)
	assert.Equal(t, FrameFeed, done.Type)
}

func TestSession_InvalidFrames(t *testing.T) {
	gw := &stubGateway{}
	conn := dialSession(t, gw)

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: FrameCoCreate, Prompt: "   "}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, f.Message, "prompt")

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: FrameCoCreate, Prompt: strings.Repeat("界", models.MaxPromptLength+1)}))
	f = readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, f.Message, "exceeds")

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: "teleport"}))
	f = readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, f.Message, "teleport")

	assert.Zero(t, gw.calls.Load())
}

func TestSession_CountsOpenedSessions(t *testing.T) {
	m := NewMetrics()
	conn := dialSessionWithMetrics(t, &stubGateway{}, m)

	require.NoError(t, conn.WriteJSON(models.SessionFrame{Type: FrameFeed}))
	readFrame(t, conn)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SessionsTotal), 0)
}
