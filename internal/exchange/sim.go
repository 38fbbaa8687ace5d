package exchange

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"skyline/internal/logger"
	"skyline/internal/market"
)

// Sim 是回测用的模拟撮合端: 行情从数据源读取, 委托在本地登记。
// 成交判定是拉取式的, 只在 FetchOrder 时对照当时的盘口推进:
// 买单在最优卖价跌到委托价之下时成交, 卖单镜像。
type Sim struct {
	src MarketData

	mu      sync.Mutex
	orders  map[string]*Order
	created []string
	counter int
	profit  decimal.Decimal
}

func NewSim(src MarketData) *Sim {
	return &Sim{
		src:    src,
		orders: make(map[string]*Order),
	}
}

func (s *Sim) FetchTicker(ctx context.Context, pair string) (market.Ticker, error) {
	return s.src.FetchTicker(ctx, pair)
}

func (s *Sim) FetchOHLCV(ctx context.Context, pair string, tf market.Timeframe, since int64, limit int) ([]market.Candle, error) {
	return s.src.FetchOHLCV(ctx, pair, tf, since, limit)
}

func (s *Sim) FetchOrderBook(ctx context.Context, pair string, depth int) (market.BookSnapshot, error) {
	return s.src.FetchOrderBook(ctx, pair, depth)
}

// CreateOrder 登记一笔委托。限价单保持 open 等待拉取判定;
// 市价单立即按对手盘最优价成交。
func (s *Sim) CreateOrder(ctx context.Context, pair string, typ OrderType, side market.Side, amount, price float64) (*Order, error) {
	s.mu.Lock()
	id := strconv.Itoa(s.counter)
	s.counter++
	order := &Order{
		ID:     id,
		Pair:   pair,
		Type:   typ,
		Side:   side,
		Price:  price,
		Amount: amount,
		Status: StatusOpen,
	}
	s.orders[id] = order
	s.created = append(s.created, id)
	s.mu.Unlock()

	if typ == OrderTypeMarket {
		book, err := s.src.FetchOrderBook(ctx, pair, 1)
		if err != nil {
			return nil, fmt.Errorf("市价单取盘口失败: %w", err)
		}
		fill, ok := oppositeBest(book, side)
		if !ok {
			return nil, fmt.Errorf("盘口为空, 市价单无法成交: %s", pair)
		}
		s.mu.Lock()
		order.Price = fill
		order.Status = StatusClosed
		s.recomputeProfit()
		s.mu.Unlock()
		logger.Debugf("[sim] 市价单 %s %s@%v 即时成交", id, side, fill)
	}
	return order.clone(), nil
}

// CancelOrder 无条件标记 canceled。
func (s *Sim) CancelOrder(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	order.Status = StatusCanceled
	return order.clone(), nil
}

// FetchOrder 返回订单当前状态, 并在此刻对照盘口推进成交判定。
func (s *Sim) FetchOrder(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	order, ok := s.orders[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}

	book, err := s.src.FetchOrderBook(ctx, order.Pair, 1)
	if err != nil {
		return nil, fmt.Errorf("成交判定取盘口失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if order.Status == StatusOpen {
		switch order.Side {
		case market.SideBuy:
			if ask, ok := book.BestAsk(); ok && ask.Price <= order.Price {
				order.Status = StatusClosed
			}
		case market.SideSell:
			if bid, ok := book.BestBid(); ok && bid.Price >= order.Price {
				order.Status = StatusClosed
			}
		}
		if order.Status == StatusClosed {
			logger.Infof("[sim] 订单 %s %s@%v 成交", order.ID, order.Side, order.Price)
		}
	}
	if order.Status == StatusClosed {
		s.recomputeProfit()
	}
	return order.clone(), nil
}

// Orders 按创建顺序返回全部委托的副本。
func (s *Sim) Orders() []*Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Order, 0, len(s.created))
	for _, id := range s.created {
		out = append(out, s.orders[id].clone())
	}
	return out
}

// Profit 返回按成交配对计算的累计点差收益。
func (s *Sim) Profit() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profit
}

// recomputeProfit 按创建顺序把已成交订单两两配对:
// 偶数位为开仓、奇数位为平仓, 末尾落单的一笔不计。
// 平仓方向为 buy 说明是空头回补, 收益取 开仓价-平仓价, 反之镜像。
// 调用方须持有 s.mu。
func (s *Sim) recomputeProfit() {
	total := decimal.Zero
	var prev decimal.Decimal
	n := 0
	for _, id := range s.created {
		order := s.orders[id]
		if order.Status != StatusClosed {
			continue
		}
		price := decimal.NewFromFloat(order.Price)
		if n%2 == 0 {
			prev = price
		} else if order.Side == market.SideBuy {
			total = total.Add(prev.Sub(price))
		} else {
			total = total.Add(price.Sub(prev))
		}
		n++
	}
	s.profit = total
}

func oppositeBest(book market.BookSnapshot, side market.Side) (float64, bool) {
	if side == market.SideBuy {
		if ask, ok := book.BestAsk(); ok {
			return ask.Price, true
		}
		return 0, false
	}
	if bid, ok := book.BestBid(); ok {
		return bid.Price, true
	}
	return 0, false
}

func (o *Order) clone() *Order {
	cp := *o
	return &cp
}
