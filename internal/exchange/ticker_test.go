package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// tickerServer accepts one subscription and streams the given ticks.
func tickerServer(t *testing.T, ticks []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		for _, tick := range ticks {
			raw, _ := json.Marshal(tick)
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		}
		// Keep the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestMarkFeedStreamsPrices(t *testing.T) {
	server := tickerServer(t, []map[string]any{
		{"type": "v2/ticker", "symbol": "BTCUSD", "mark_price": "65432.1"},
		{"type": "other", "symbol": "BTCUSD", "mark_price": "1"},
		{"type": "v2/ticker", "symbol": "ETHUSD", "mark_price": "3210.5"},
	})
	defer server.Close()

	feed := NewMarkFeed(wsURL(server), []string{"BTCUSD", "ETHUSD"}, zerolog.Nop())
	require.NoError(t, feed.Connect(context.Background()))
	defer feed.Disconnect()

	require.Eventually(t, func() bool {
		_, ok := feed.LastPrice("ETHUSD")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	btc, ok := feed.LastPrice("BTCUSD")
	require.True(t, ok)
	assert.Equal(t, 65432.1, btc)

	// Non-ticker frames are ignored, not applied.
	eth, ok := feed.LastPrice("ETHUSD")
	require.True(t, ok)
	assert.Equal(t, 3210.5, eth)
}

func TestMarkFeedUnknownSymbol(t *testing.T) {
	server := tickerServer(t, nil)
	defer server.Close()

	feed := NewMarkFeed(wsURL(server), []string{"BTCUSD"}, zerolog.Nop())
	require.NoError(t, feed.Connect(context.Background()))
	defer feed.Disconnect()

	_, ok := feed.LastPrice("BTCUSD")
	assert.False(t, ok)
}

func TestMarkFeedConnectIdempotent(t *testing.T) {
	server := tickerServer(t, nil)
	defer server.Close()

	feed := NewMarkFeed(wsURL(server), []string{"BTCUSD"}, zerolog.Nop())
	require.NoError(t, feed.Connect(context.Background()))
	require.NoError(t, feed.Connect(context.Background()))
	require.NoError(t, feed.Disconnect())
	require.NoError(t, feed.Disconnect())
}
