package pager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casebot/internal/store"
)

// sliceLister pages over an in-memory slice the same way the store does:
// each call returns up to pageSize+1 rows, the extra row being the probe.
type sliceLister struct {
	cases []store.Case
	err   error
}

func (l *sliceLister) ListCases(_ context.Context, _ string, page, pageSize int) ([]store.Case, error) {
	if l.err != nil {
		return nil, l.err
	}
	start := page * pageSize
	if start >= len(l.cases) {
		return nil, nil
	}
	end := start + pageSize + 1
	if end > len(l.cases) {
		end = len(l.cases)
	}
	return l.cases[start:end], nil
}

func makeCases(n int) []store.Case {
	cases := make([]store.Case, n)
	for i := range cases {
		cases[i] = store.Case{ID: int64(i + 1)}
	}
	return cases
}

func TestWindowFlags(t *testing.T) {
	lister := &sliceLister{cases: makeCases(20)}

	w, err := FetchPage(context.Background(), lister, "", 0, 8)
	require.NoError(t, err)
	assert.Len(t, w.Cases, 8)
	assert.False(t, w.HasPrev)
	assert.True(t, w.HasNext)

	w, err = FetchPage(context.Background(), lister, "", 2, 8)
	require.NoError(t, err)
	assert.Len(t, w.Cases, 4)
	assert.True(t, w.HasPrev)
	assert.False(t, w.HasNext)
}

func TestPagesPartitionAllItems(t *testing.T) {
	const n, limit = 27, 8
	lister := &sliceLister{cases: makeCases(n)}

	seen := map[int64]bool{}
	for page := 0; ; page++ {
		w, err := FetchPage(context.Background(), lister, "", page, limit)
		require.NoError(t, err)

		wantLen := n - limit*page
		if wantLen > limit {
			wantLen = limit
		}
		assert.Len(t, w.Cases, wantLen, "page %d", page)
		assert.Equal(t, n > limit*(page+1), w.HasNext, "page %d", page)
		assert.Equal(t, page > 0, w.HasPrev, "page %d", page)

		for _, c := range w.Cases {
			assert.False(t, seen[c.ID], "case %d duplicated", c.ID)
			seen[c.ID] = true
		}
		if !w.HasNext {
			break
		}
	}
	assert.Len(t, seen, n)
}

func TestExactMultipleHasNoPhantomPage(t *testing.T) {
	lister := &sliceLister{cases: makeCases(16)}

	w, err := FetchPage(context.Background(), lister, "", 1, 8)
	require.NoError(t, err)
	assert.Len(t, w.Cases, 8)
	assert.False(t, w.HasNext)
}

func TestClamping(t *testing.T) {
	lister := &sliceLister{cases: makeCases(3)}

	w, err := FetchPage(context.Background(), lister, "", -5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Page)
	assert.Equal(t, 1, w.Limit)
	assert.False(t, w.HasPrev)
}

func TestFetchError(t *testing.T) {
	lister := &sliceLister{err: errors.New("db gone")}
	_, err := FetchPage(context.Background(), lister, "", 0, 8)
	assert.Error(t, err)
}
