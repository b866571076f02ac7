package processor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_KeepsInputOrder(t *testing.T) {
	items := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	results, err := Process(context.Background(), items, Config{Workers: 3}, func(ctx context.Context, item string) (int, error) {
		return len(item), nil
	})
	require.NoError(t, err)
	require.Len(t, results, len(items))

	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, items[i], res.Item)
		assert.Equal(t, len(items[i]), res.Value)
		assert.NoError(t, res.Err)
	}
}

func TestProcess_ItemFailuresDoNotStopTheBatch(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")

	results, err := Process(context.Background(), []string{"ok", "fail", "ok"}, Config{Workers: 2, JobBuffer: 1}, func(ctx context.Context, item string) (string, error) {
		calls.Add(1)
		if item == "fail" {
			return "", boom
		}
		return strings.ToUpper(item), nil
	})
	require.EqualError(t, err, "encountered 1 errors during processing")
	assert.Equal(t, int32(3), calls.Load())

	assert.Equal(t, "OK", results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.Equal(t, "OK", results[2].Value)
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Process(ctx, []string{"a", "b"}, Config{Workers: 1}, func(ctx context.Context, item string) (string, error) {
		return item, nil
	})
	require.Error(t, err)
	require.Len(t, results, 2)
}

func TestProcess_Empty(t *testing.T) {
	results, err := Process(context.Background(), nil, Config{}, func(ctx context.Context, item string) (string, error) {
		t.Fatal("must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReadLines(t *testing.T) {
	input := "first line\n\n   \n# a comment\n  second line  \r\nthird"

	lines, err := ReadLines(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second line", "third"}, lines)
}
