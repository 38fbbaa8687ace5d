package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DepthAction 是盘口增量消息的动作类型，在边界处解析为有类型的变体。
type DepthAction string

const (
	ActionPartial DepthAction = "partial"
	ActionInsert  DepthAction = "insert"
	ActionUpdate  DepthAction = "update"
	ActionDelete  DepthAction = "delete"
)

// ParseDepthAction 校验 wire 字段。
func ParseDepthAction(raw string) (DepthAction, error) {
	switch DepthAction(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionPartial:
		return ActionPartial, nil
	case ActionInsert:
		return ActionInsert, nil
	case ActionUpdate:
		return ActionUpdate, nil
	case ActionDelete:
		return ActionDelete, nil
	default:
		return "", fmt.Errorf("unknown depth action: %q", raw)
	}
}

// DepthEntry 是增量消息中的单个档位变更。
type DepthEntry struct {
	ID    int64
	Side  Side
	Price float64
	Size  float64
}

// DepthMessage 是一批同动作的档位变更。
type DepthMessage struct {
	Action  DepthAction
	Entries []DepthEntry
}

// sideBook 保留档位的迭代顺序（等价于按需重排的有序映射）：
// 新档位追加到尾部，update 原地替换，显式排序时按档位 id 重排。
type sideBook struct {
	order  []int64
	levels map[int64]BookLevel
}

func newSideBook() *sideBook {
	return &sideBook{levels: make(map[int64]BookLevel)}
}

func (b *sideBook) upsert(id int64, lvl BookLevel) {
	if _, ok := b.levels[id]; !ok {
		b.order = append(b.order, id)
	}
	b.levels[id] = lvl
}

func (b *sideBook) remove(id int64) bool {
	if _, ok := b.levels[id]; !ok {
		return false
	}
	delete(b.levels, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

func (b *sideBook) sortAsc() {
	sort.Slice(b.order, func(i, j int) bool { return b.order[i] < b.order[j] })
}

func (b *sideBook) sortDesc() {
	sort.Slice(b.order, func(i, j int) bool { return b.order[i] > b.order[j] })
}

func (b *sideBook) top(n int) []BookLevel {
	if n <= 0 || n > len(b.order) {
		n = len(b.order)
	}
	out := make([]BookLevel, 0, n)
	for _, id := range b.order[:n] {
		out = append(out, b.levels[id])
	}
	return out
}

// OrderBookState 按档位 id 重建 L2 盘口。
// 价格在档位创建时确定且不变；update 仅改 size；同一 id 任一时刻至多出现在一侧。
//
// 排序规则刻意保留自采集端的实测行为：每批消息后 asks 一律按 id 降序重排，
// bids 仅在 delete 批次后按 id 升序重排。该场所的档位 id 随价格单调递减，
// 因此两侧排序后均为最优价在前。
type OrderBookState struct {
	priceByID map[int64]float64
	bids      *sideBook
	asks      *sideBook
}

func NewOrderBookState() *OrderBookState {
	return &OrderBookState{
		priceByID: make(map[int64]float64),
		bids:      newSideBook(),
		asks:      newSideBook(),
	}
}

func (s *OrderBookState) side(sd Side) *sideBook {
	if sd == SideBuy {
		return s.bids
	}
	return s.asks
}

// Apply 应用一条增量消息。delete 未知 id 视为已删除并忽略；
// update 未知 id 是数据流损坏，返回错误。
func (s *OrderBookState) Apply(msg DepthMessage) error {
	hadDelete := false
	switch msg.Action {
	case ActionPartial, ActionInsert:
		for _, e := range msg.Entries {
			s.priceByID[e.ID] = e.Price
			s.side(e.Side.Opposite()).remove(e.ID)
			s.side(e.Side).upsert(e.ID, BookLevel{Price: e.Price, Size: e.Size})
		}
	case ActionUpdate:
		for _, e := range msg.Entries {
			price, ok := s.priceByID[e.ID]
			if !ok {
				return fmt.Errorf("update for unknown level id %d", e.ID)
			}
			s.side(e.Side).upsert(e.ID, BookLevel{Price: price, Size: e.Size})
		}
	case ActionDelete:
		hadDelete = true
		for _, e := range msg.Entries {
			delete(s.priceByID, e.ID)
			if !s.bids.remove(e.ID) {
				s.asks.remove(e.ID)
			}
		}
	default:
		return fmt.Errorf("unknown depth action: %q", msg.Action)
	}

	s.asks.sortDesc()
	if hadDelete {
		s.bids.sortAsc()
	}
	return nil
}

// Top 返回两侧前 n 档（当前排序顺序）。
func (s *OrderBookState) Top(n int) (bids, asks []BookLevel) {
	return s.bids.top(n), s.asks.top(n)
}

// Snapshot 返回前 depth 档的盘口切片。
func (s *OrderBookState) Snapshot(ts int64, depth int) BookSnapshot {
	bids, asks := s.Top(depth)
	return BookSnapshot{Timestamp: ts, Bids: bids, Asks: asks}
}

// Len 返回两侧档位数。
func (s *OrderBookState) Len() (int, int) {
	return len(s.bids.order), len(s.asks.order)
}

// SnapshotLine 将一侧前 depth 档展平为日志行:
// ts,price_0,size_0,...,price_{depth-1},size_{depth-1}
func (s *OrderBookState) SnapshotLine(ts int64, sd Side, depth int) string {
	var levels []BookLevel
	if sd == SideBuy {
		levels = s.bids.top(depth)
	} else {
		levels = s.asks.top(depth)
	}
	parts := make([]string, 0, 1+2*len(levels))
	parts = append(parts, strconv.FormatInt(ts, 10))
	for _, lvl := range levels {
		parts = append(parts, formatFloat(lvl.Price), formatFloat(lvl.Size))
	}
	return strings.Join(parts, ",")
}

// ParseSnapshotLine 解析 SnapshotLine 的输出。
func ParseSnapshotLine(line string) (ts int64, levels []BookLevel, err error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 1 || (len(fields)-1)%2 != 0 {
		return 0, nil, fmt.Errorf("malformed snapshot line: %d fields", len(fields))
	}
	ts, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("bad timestamp %q: %w", fields[0], err)
	}
	for i := 1; i < len(fields); i += 2 {
		price, perr := strconv.ParseFloat(fields[i], 64)
		if perr != nil {
			return 0, nil, fmt.Errorf("bad price %q: %w", fields[i], perr)
		}
		size, serr := strconv.ParseFloat(fields[i+1], 64)
		if serr != nil {
			return 0, nil, fmt.Errorf("bad size %q: %w", fields[i+1], serr)
		}
		levels = append(levels, BookLevel{Price: price, Size: size})
	}
	return ts, levels, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
