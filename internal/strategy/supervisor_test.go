package strategy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyline/internal/clock"
	"skyline/internal/datasource"
)

func TestSuperviseRestartsUntilSuccess(t *testing.T) {
	calls := 0
	fn := func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("网络抖动")
		}
		return nil
	}
	err := Supervise(context.Background(), 5, time.Second, clock.NewVirtual(0), fn)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestSuperviseExhaustsLimit(t *testing.T) {
	calls := 0
	boom := errors.New("持续故障")
	fn := func(context.Context) error {
		calls++
		return boom
	}
	err := Supervise(context.Background(), 2, time.Second, clock.NewVirtual(0), fn)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestSuperviseDataGapIsFatal(t *testing.T) {
	calls := 0
	fn := func(context.Context) error {
		calls++
		return fmt.Errorf("ticker@123: %w", datasource.ErrDataGap)
	}
	err := Supervise(context.Background(), 5, time.Second, clock.NewVirtual(0), fn)
	assert.ErrorIs(t, err, datasource.ErrDataGap)
	assert.Equal(t, 1, calls)
}

func TestSuperviseStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(ctx context.Context) error {
		calls++
		cancel()
		return ctx.Err()
	}
	err := Supervise(ctx, 5, time.Second, clock.NewVirtual(0), fn)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
