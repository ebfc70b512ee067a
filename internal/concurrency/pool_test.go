package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachProcessesAllItems(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	var sum atomic.Int64
	err := ForEach(context.Background(), 4, items, func(ctx context.Context, item int) error {
		sum.Add(int64(item))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(49*50/2), sum.Load())
}

func TestForEachCollectsAllErrors(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	err := ForEach(context.Background(), 2, items, func(ctx context.Context, item int) error {
		if item%2 == 0 {
			return fmt.Errorf("item %d failed", item)
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "item 2 failed")
	assert.ErrorContains(t, err, "item 4 failed")
}

func TestForEachEmptyInput(t *testing.T) {
	err := ForEach(context.Background(), 4, nil, func(ctx context.Context, item int) error {
		t.Fatal("must not be called")
		return nil
	})
	assert.NoError(t, err)
}

func TestForEachCancelledContextSkipsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := ForEach(ctx, 4, []int{1, 2, 3}, func(ctx context.Context, item int) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestForEachZeroWorkers(t *testing.T) {
	var calls atomic.Int32
	err := ForEach(context.Background(), 0, []int{1, 2, 3}, func(ctx context.Context, item int) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
