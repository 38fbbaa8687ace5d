package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"skyline/internal/logger"
	"skyline/internal/market"
)

const defaultLiveBaseURL = "https://www.bitmex.com"

// Live 通过签名 REST 访问真实场所。
// 签名方式: HMAC-SHA256(secret, verb+path+expires+body), 随
// api-key / api-expires 头一起发送。
type Live struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
}

// LiveOption 调整 Live 连接器。
type LiveOption func(*Live)

// WithBaseURL 覆盖 REST 入口, 测试网/测试用。
func WithBaseURL(u string) LiveOption {
	return func(l *Live) { l.baseURL = u }
}

// WithHTTPClient 覆盖底层 HTTP 客户端。
func WithHTTPClient(c *http.Client) LiveOption {
	return func(l *Live) { l.client = c }
}

func NewLive(apiKey, apiSecret string, opts ...LiveOption) *Live {
	l := &Live{
		baseURL:   defaultLiveBaseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Live) sign(verb, path string, expires int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(l.apiSecret))
	mac.Write([]byte(verb))
	mac.Write([]byte(path))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *Live) request(ctx context.Context, verb, path string, query url.Values, payload any, out any) error {
	fullPath := path
	if len(query) > 0 {
		fullPath = path + "?" + query.Encode()
	}
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("编码请求体失败: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, verb, l.baseURL+fullPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	expires := time.Now().Add(15 * time.Second).Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", l.apiKey)
	req.Header.Set("api-expires", strconv.FormatInt(expires, 10))
	req.Header.Set("api-signature", l.sign(verb, fullPath, expires, body))

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s %s 失败: %w", verb, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("场所返回 %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

type instrumentPayload struct {
	Timestamp time.Time `json:"timestamp"`
	LastPrice float64   `json:"lastPrice"`
	BidPrice  float64   `json:"bidPrice"`
	AskPrice  float64   `json:"askPrice"`
	Volume24h float64   `json:"volume24h"`
}

func (l *Live) FetchTicker(ctx context.Context, pair string) (market.Ticker, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	var payload []instrumentPayload
	if err := l.request(ctx, http.MethodGet, "/api/v1/instrument", q, nil, &payload); err != nil {
		return market.Ticker{}, err
	}
	if len(payload) == 0 {
		return market.Ticker{}, fmt.Errorf("未知合约: %s", pair)
	}
	in := payload[0]
	return market.Ticker{
		Timestamp: in.Timestamp.UnixMilli(),
		Bid:       in.BidPrice,
		Ask:       in.AskPrice,
		Close:     in.LastPrice,
	}, nil
}

type bucketedPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

var liveBinSizes = map[string]string{"1m": "1m", "5m": "5m", "1h": "1h"}

func (l *Live) FetchOHLCV(ctx context.Context, pair string, tf market.Timeframe, since int64, limit int) ([]market.Candle, error) {
	bin, ok := liveBinSizes[tf.Key]
	if !ok {
		return nil, fmt.Errorf("场所不提供 %s 周期的聚合 K 线", tf.Key)
	}
	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("binSize", bin)
	if since > 0 {
		q.Set("startTime", time.UnixMilli(since).UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		q.Set("count", strconv.Itoa(limit))
	}
	var payload []bucketedPayload
	if err := l.request(ctx, http.MethodGet, "/api/v1/trade/bucketed", q, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(payload))
	for _, row := range payload {
		out = append(out, market.Candle{
			Timestamp: row.Timestamp.UnixMilli(),
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

type bookPayload struct {
	ID    int64   `json:"id"`
	Side  string  `json:"side"`
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

func (l *Live) FetchOrderBook(ctx context.Context, pair string, depth int) (market.BookSnapshot, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}
	var payload []bookPayload
	if err := l.request(ctx, http.MethodGet, "/api/v1/orderBook/L2", q, nil, &payload); err != nil {
		return market.BookSnapshot{}, err
	}
	snap := market.BookSnapshot{Timestamp: time.Now().UnixMilli()}
	for _, row := range payload {
		side, err := market.ParseSide(row.Side)
		if err != nil {
			continue
		}
		lvl := market.BookLevel{Price: row.Price, Size: row.Size}
		if side == market.SideBuy {
			snap.Bids = append(snap.Bids, lvl)
		} else {
			snap.Asks = append(snap.Asks, lvl)
		}
	}
	// 返回序: bids 价高在前, asks 价低在前
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })
	return snap, nil
}

type orderPayload struct {
	OrderID   string  `json:"orderID"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	OrderQty  float64 `json:"orderQty"`
	Price     float64 `json:"price"`
	OrdType   string  `json:"ordType"`
	OrdStatus string  `json:"ordStatus"`
}

func (p orderPayload) toOrder() (*Order, error) {
	side, err := market.ParseSide(p.Side)
	if err != nil {
		return nil, err
	}
	typ, err := ParseOrderType(p.OrdType)
	if err != nil {
		return nil, err
	}
	status := StatusOpen
	switch p.OrdStatus {
	case "Filled":
		status = StatusClosed
	case "Canceled", "Rejected":
		status = StatusCanceled
	}
	return &Order{
		ID:     p.OrderID,
		Pair:   p.Symbol,
		Type:   typ,
		Side:   side,
		Price:  p.Price,
		Amount: p.OrderQty,
		Status: status,
	}, nil
}

func titleSide(s market.Side) string {
	if s == market.SideBuy {
		return "Buy"
	}
	return "Sell"
}

func (l *Live) CreateOrder(ctx context.Context, pair string, typ OrderType, side market.Side, amount, price float64) (*Order, error) {
	// clOrdID 让重试不会重复下单
	body := map[string]any{
		"symbol":   pair,
		"side":     titleSide(side),
		"orderQty": amount,
		"clOrdID":  uuid.NewString(),
	}
	switch typ {
	case OrderTypeLimit:
		body["ordType"] = "Limit"
		body["price"] = price
	case OrderTypeMarket:
		body["ordType"] = "Market"
	default:
		return nil, fmt.Errorf("未知订单类型: %q", typ)
	}
	var payload orderPayload
	if err := l.request(ctx, http.MethodPost, "/api/v1/order", nil, body, &payload); err != nil {
		return nil, err
	}
	logger.Infof("[live] 下单 %s %s %s %v@%v", payload.OrderID, pair, side, amount, price)
	return payload.toOrder()
}

func (l *Live) CancelOrder(ctx context.Context, id string) (*Order, error) {
	q := url.Values{}
	q.Set("orderID", id)
	var payload []orderPayload
	if err := l.request(ctx, http.MethodDelete, "/api/v1/order", q, nil, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return payload[0].toOrder()
}

func (l *Live) FetchOrder(ctx context.Context, id string) (*Order, error) {
	q := url.Values{}
	q.Set("filter", fmt.Sprintf(`{"orderID":%q}`, id))
	var payload []orderPayload
	if err := l.request(ctx, http.MethodGet, "/api/v1/order", q, nil, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return payload[0].toOrder()
}
