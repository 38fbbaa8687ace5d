package rush

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyline/internal/market"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "rush.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rush", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServerPersistsMatchingBoard(t *testing.T) {
	store := newTestStore(t)
	srv, err := NewServer("127.0.0.1:0", "BitMEX_XBTUSD", store)
	require.NoError(t, err)

	w := postJSON(t, srv.Handler(), `{
		"boardName": "BitMEX_XBTUSD",
		"takerSide": "Buy",
		"volume": 1500000,
		"lastPrice": 9012.5,
		"pairCurrency": "XBT/USD",
		"fromUnixTime": 1553475600000,
		"toUnixTime": 1553475603000
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	events, err := store.Range(context.Background(), 0, time.Now().UnixMilli()+1000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	evt := events[0]
	assert.Equal(t, "buy", evt.TakerSide)
	assert.Equal(t, 9012.5, evt.LastPrice)
	assert.Equal(t, int64(1553475600000), evt.FromUnixTime)
	assert.NotEmpty(t, evt.ToDatetime)
	assert.JSONEq(t, `{
		"boardName": "BitMEX_XBTUSD",
		"takerSide": "Buy",
		"volume": 1500000,
		"lastPrice": 9012.5,
		"pairCurrency": "XBT/USD",
		"fromUnixTime": 1553475600000,
		"toUnixTime": 1553475603000
	}`, string(evt.Payload))

	side, err := evt.Direction()
	require.NoError(t, err)
	assert.Equal(t, market.SideBuy, side)
}

func TestServerIgnoresOtherBoards(t *testing.T) {
	store := newTestStore(t)
	srv, err := NewServer("127.0.0.1:0", "BitMEX_XBTUSD", store)
	require.NoError(t, err)

	w := postJSON(t, srv.Handler(), `{
		"boardName": "Binance_BTCUSDT",
		"takerSide": "sell",
		"volume": 100,
		"lastPrice": 9000,
		"pairCurrency": "BTC/USDT",
		"fromUnixTime": 1,
		"toUnixTime": 2
	}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	events, err := store.Range(context.Background(), 0, time.Now().UnixMilli()+1000)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestServerRejectsInvalidPayload(t *testing.T) {
	store := newTestStore(t)
	srv, err := NewServer("127.0.0.1:0", "BitMEX_XBTUSD", store)
	require.NoError(t, err)

	// 缺 takerSide
	w := postJSON(t, srv.Handler(), `{"boardName": "BitMEX_XBTUSD"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, srv.Handler(), `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerCoercesStringNumbers(t *testing.T) {
	store := newTestStore(t)
	srv, err := NewServer("127.0.0.1:0", "BitMEX_XBTUSD", store)
	require.NoError(t, err)

	w := postJSON(t, srv.Handler(), `{
		"boardName": "BitMEX_XBTUSD",
		"takerSide": "sell",
		"volume": "250000",
		"lastPrice": "8999.5",
		"pairCurrency": "XBT/USD",
		"fromUnixTime": "1553475600000",
		"toUnixTime": "1553475603000"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	events, err := store.Range(context.Background(), 0, time.Now().UnixMilli()+1000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 250000.0, events[0].Volume)
	assert.Equal(t, 8999.5, events[0].LastPrice)
}

func TestStoreRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i, ts := range []int64{1000, 2000, 3000} {
		require.NoError(t, store.Insert(ctx, &Event{
			BoardName: "BitMEX_XBTUSD",
			TakerSide: "buy",
			Volume:    float64(i),
			Timestamp: ts,
		}))
	}
	events, err := store.Range(ctx, 1500, 3000)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2000), events[0].Timestamp)
	assert.Equal(t, int64(3000), events[1].Timestamp)
}
