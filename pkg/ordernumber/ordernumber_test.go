package ordernumber

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func counterSource(start int64) Source {
	var counter atomic.Int64
	counter.Store(start - 1)
	return SourceFunc(func(ctx context.Context) (int64, error) {
		return counter.Add(1), nil
	})
}

func TestGeneratorFormatsNumbers(t *testing.T) {
	gen, err := NewGenerator(counterSource(100000))
	require.NoError(t, err)

	first, err := gen.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "BEL-100000", first)

	second, err := gen.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "BEL-100001", second)
}

func TestGeneratorPadsSmallValues(t *testing.T) {
	gen, err := NewGenerator(counterSource(7))
	require.NoError(t, err)

	got, err := gen.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "BEL-000007", got)
}

func TestGeneratorRequiresSource(t *testing.T) {
	_, err := NewGenerator(nil)
	require.Error(t, err)
}

func TestGeneratorConcurrentNumbersAreDistinct(t *testing.T) {
	const total = 10000

	gen, err := NewGenerator(counterSource(100000))
	require.NoError(t, err)

	results := make(chan string, total)
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := gen.Next(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			results <- number
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{}, total)
	for number := range results {
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate order number %s", number)
		}
		seen[number] = struct{}{}
	}
	require.Len(t, seen, total)
}
