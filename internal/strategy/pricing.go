package strategy

import (
	"math"

	"skyline/internal/market"
)

// levelRow 是合并后的盘口一行, 买卖两侧拼成一张表后按行号取邻域。
type levelRow struct {
	Side  market.Side
	Price float64
	Size  float64
}

// mergeBook 把快照拼成 买侧在前、卖侧在后 的一张表, 各侧保持最优价在前。
func mergeBook(snap market.BookSnapshot) []levelRow {
	rows := make([]levelRow, 0, len(snap.Bids)+len(snap.Asks))
	for _, lvl := range snap.Bids {
		rows = append(rows, levelRow{Side: market.SideBuy, Price: lvl.Price, Size: lvl.Size})
	}
	for _, lvl := range snap.Asks {
		rows = append(rows, levelRow{Side: market.SideSell, Price: lvl.Price, Size: lvl.Size})
	}
	return rows
}

// calcOrderPrice 在水平位附近的挂单里找下单价:
// 取距离水平位最近的一行, 前后各 scope 行作为邻域;
// 邻域挂单量合计超过阈值时, 以量最大的那档为基准,
// 买档加 shift、卖档减 shift, 即贴着主力档的内侧。
// 量不足阈值时返回 false, 表示该水平位这一轮不值得挂单。
func calcOrderPrice(rows []levelRow, horizonValue float64, scope int, threshold, shift float64) (float64, bool) {
	if len(rows) == 0 {
		return 0, false
	}

	anchor := 0
	best := math.Inf(1)
	for i, row := range rows {
		if d := math.Abs(row.Price - horizonValue); d < best {
			best = d
			anchor = i
		}
	}

	start := anchor - scope
	if start < 0 {
		start = 0
	}
	end := anchor + scope
	if end > len(rows)-1 {
		end = len(rows) - 1
	}

	var total float64
	max := start
	for i := start; i <= end; i++ {
		total += rows[i].Size
		if rows[i].Size > rows[max].Size {
			max = i
		}
	}
	if total <= threshold {
		return 0, false
	}
	if rows[max].Side == market.SideBuy {
		return rows[max].Price + shift, true
	}
	return rows[max].Price - shift, true
}
