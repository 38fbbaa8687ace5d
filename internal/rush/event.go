package rush

import (
	"time"

	"gorm.io/datatypes"

	"skyline/internal/market"
)

// Event 是外部动量监视器推送的一次放量事件("rush")。
// 核心侧只读, 字段在入库时落定。
type Event struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"`
	BoardName    string         `gorm:"column:board_name;index"`
	TakerSide    string         `gorm:"column:taker_side"`
	Volume       float64        `gorm:"column:volume"`
	LastPrice    float64        `gorm:"column:last_price"`
	PairCurrency string         `gorm:"column:pair_currency"`
	FromUnixTime int64          `gorm:"column:from_unix_time"`
	ToUnixTime   int64          `gorm:"column:to_unix_time"`
	FromDatetime string         `gorm:"column:from_datetime"`
	ToDatetime   string         `gorm:"column:to_datetime"`
	Timestamp    int64          `gorm:"column:timestamp;index"` // 入库时刻(Unix ms)
	Payload      datatypes.JSON `gorm:"column:payload;type:TEXT"`
}

func (Event) TableName() string {
	return "rush_events"
}

// Direction 把 taker 方向归一化为交易方向。
func (e Event) Direction() (market.Side, error) {
	return market.ParseSide(e.TakerSide)
}

const datetimeLayout = "2006-01-02 15:04:05"

// FormatUnixMilli 把毫秒时间戳转成入库用的本地时间串。
func FormatUnixMilli(ms int64) string {
	return time.UnixMilli(ms).Format(datetimeLayout)
}
