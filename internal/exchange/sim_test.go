package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyline/internal/market"
)

type stubData struct {
	book market.BookSnapshot
}

func (s *stubData) FetchTicker(context.Context, string) (market.Ticker, error) {
	return market.Ticker{}, nil
}

func (s *stubData) FetchOHLCV(context.Context, string, market.Timeframe, int64, int) ([]market.Candle, error) {
	return nil, nil
}

func (s *stubData) FetchOrderBook(context.Context, string, int) (market.BookSnapshot, error) {
	return s.book, nil
}

func (s *stubData) setBook(bid, ask float64) {
	s.book = market.BookSnapshot{
		Bids: []market.BookLevel{{Price: bid, Size: 100}},
		Asks: []market.BookLevel{{Price: ask, Size: 100}},
	}
}

func TestSimBuyFillsWhenAskReachesPrice(t *testing.T) {
	ctx := context.Background()
	data := &stubData{}
	data.setBook(9040, 9050)
	sim := NewSim(data)

	order, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideBuy, 100, 9000)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, order.Status)

	// 卖一还在委托价上方, 不成交
	got, err := sim.FetchOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, got.Status)

	// 卖一跌破委托价后成交
	data.setBook(8980, 8990)
	got, err = sim.FetchOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, got.Status)
}

func TestSimSellFillsWhenBidReachesPrice(t *testing.T) {
	ctx := context.Background()
	data := &stubData{}
	data.setBook(8990, 9000)
	sim := NewSim(data)

	order, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideSell, 100, 9100)
	require.NoError(t, err)

	data.setBook(9100, 9110)
	got, err := sim.FetchOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, got.Status)
}

func TestSimCancelIsImmediate(t *testing.T) {
	ctx := context.Background()
	data := &stubData{}
	data.setBook(9000, 9010)
	sim := NewSim(data)

	order, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideBuy, 100, 8000)
	require.NoError(t, err)
	got, err := sim.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)

	_, err = sim.CancelOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSimMarketOrderFillsAtOppositeBest(t *testing.T) {
	ctx := context.Background()
	data := &stubData{}
	data.setBook(8995, 9005)
	sim := NewSim(data)

	order, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeMarket, market.SideBuy, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, order.Status)
	assert.Equal(t, 9005.0, order.Price)
}

func TestSimProfitPairsFillsInCreationOrder(t *testing.T) {
	ctx := context.Background()
	data := &stubData{}
	sim := NewSim(data)

	// 做多一轮: 9000 买入, 9020 卖出 → +20
	data.setBook(8990, 9000)
	buyOrder, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideBuy, 100, 9000)
	require.NoError(t, err)
	_, err = sim.FetchOrder(ctx, buyOrder.ID)
	require.NoError(t, err)

	sellOrder, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideSell, 100, 9020)
	require.NoError(t, err)
	data.setBook(9020, 9030)
	_, err = sim.FetchOrder(ctx, sellOrder.ID)
	require.NoError(t, err)

	assert.True(t, sim.Profit().Equal(decimal.NewFromInt(20)), "profit=%s", sim.Profit())

	// 第三笔成交落单, 不参与配对
	data.setBook(9010, 9020)
	extra, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideBuy, 100, 9020)
	require.NoError(t, err)
	_, err = sim.FetchOrder(ctx, extra.ID)
	require.NoError(t, err)
	assert.True(t, sim.Profit().Equal(decimal.NewFromInt(20)))
}

func TestSimProfitShortRound(t *testing.T) {
	ctx := context.Background()
	data := &stubData{}
	sim := NewSim(data)

	// 做空一轮: 9100 卖出, 9050 买回 → +50
	data.setBook(9100, 9110)
	sellOrder, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideSell, 100, 9100)
	require.NoError(t, err)
	_, err = sim.FetchOrder(ctx, sellOrder.ID)
	require.NoError(t, err)

	data.setBook(9040, 9050)
	buyOrder, err := sim.CreateOrder(ctx, "XBTUSD", OrderTypeLimit, market.SideBuy, 100, 9050)
	require.NoError(t, err)
	_, err = sim.FetchOrder(ctx, buyOrder.ID)
	require.NoError(t, err)

	assert.True(t, sim.Profit().Equal(decimal.NewFromInt(50)), "profit=%s", sim.Profit())
}
