package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skyline/internal/clock"
	"skyline/internal/datasource"
	"skyline/internal/logger"
)

// Supervise 以有界重启运行策略: 每次失败从干净状态重建 fn 内部的引擎,
// 在途订单不跨重启恢复。回放数据缺口是数据集损坏, 不重启, 直接退出。
func Supervise(ctx context.Context, limit int, wait time.Duration, waiter clock.Waiter, fn func(context.Context) error) error {
	if limit <= 0 {
		limit = 1
	}
	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return err
		}
		if errors.Is(err, datasource.ErrDataGap) {
			return err
		}
		lastErr = err
		logger.Errorf("[supervisor] 策略异常退出 (第 %d/%d 次): %v", attempt, limit, err)
		if attempt < limit {
			if werr := waiter.Wait(ctx, wait); werr != nil {
				return werr
			}
			logger.Infof("[supervisor] 重启策略")
		}
	}
	return fmt.Errorf("策略重启次数用尽: %w", lastErr)
}
