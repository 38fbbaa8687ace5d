package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyline/internal/market"
)

func TestCalcOrderPriceAskDominant(t *testing.T) {
	rows := mergeBook(market.BookSnapshot{
		Bids: []market.BookLevel{{Price: 8999.5, Size: 100}},
		Asks: []market.BookLevel{{Price: 9000.5, Size: 5000}, {Price: 9005.5, Size: 20000}},
	})
	price, ok := calcOrderPrice(rows, 9005.0, 3, 10000, 0.5)
	require.True(t, ok)
	// 主力档是 9005.5 的卖单, 下单贴其内侧
	assert.Equal(t, 9005.0, price)
}

func TestCalcOrderPriceBidDominant(t *testing.T) {
	rows := mergeBook(market.BookSnapshot{
		Bids: []market.BookLevel{{Price: 8999.5, Size: 30000}, {Price: 8999.0, Size: 100}},
		Asks: []market.BookLevel{{Price: 9000.5, Size: 200}},
	})
	price, ok := calcOrderPrice(rows, 8999.0, 3, 10000, 0.5)
	require.True(t, ok)
	assert.Equal(t, 9000.0, price)
}

func TestCalcOrderPriceBelowThreshold(t *testing.T) {
	rows := mergeBook(market.BookSnapshot{
		Bids: []market.BookLevel{{Price: 8999.5, Size: 100}},
		Asks: []market.BookLevel{{Price: 9000.5, Size: 100}},
	})
	_, ok := calcOrderPrice(rows, 9000.0, 3, 10000, 0.5)
	assert.False(t, ok)
}

func TestCalcOrderPriceEmptyBook(t *testing.T) {
	_, ok := calcOrderPrice(nil, 9000.0, 3, 10000, 0.5)
	assert.False(t, ok)
}
