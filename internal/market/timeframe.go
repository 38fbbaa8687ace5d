package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timeframe 描述一种 K 线周期。
type Timeframe struct {
	Key      string
	Duration time.Duration
}

var supportedTimeframes = map[string]Timeframe{
	"1s": {Key: "1s", Duration: time.Second},
	"1m": {Key: "1m", Duration: time.Minute},
	"5m": {Key: "5m", Duration: 5 * time.Minute},
	"1h": {Key: "1h", Duration: time.Hour},
}

// ParseTimeframe 返回标准化周期定义。
func ParseTimeframe(input string) (Timeframe, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	tf, ok := supportedTimeframes[key]
	if !ok {
		return Timeframe{}, fmt.Errorf("不支持的周期: %s", input)
	}
	return tf, nil
}

// SupportedTimeframes 返回所有支持的 key（排序后）。
func SupportedTimeframes() []string {
	keys := make([]string, 0, len(supportedTimeframes))
	for k := range supportedTimeframes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Millis 返回周期毫秒数。
func (tf Timeframe) Millis() int64 {
	return tf.Duration.Milliseconds()
}

// AlignDown 将毫秒时间戳对齐到周期网格。
func AlignDown(ts, step int64) int64 {
	if step <= 0 {
		return ts
	}
	rem := ts % step
	if rem < 0 {
		rem += step
	}
	return ts - rem
}
