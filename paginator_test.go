package gotable

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(n int) *SliceSource {
	rows := make([]int, n)
	for i := range n {
		rows[i] = i + 1
	}

	return NewSliceSource(rows)
}

func pageItems(t *testing.T, p Paginator) []any {
	t.Helper()

	items, err := p.Items(context.Background())
	require.NoError(t, err)

	return items
}

func Test_EagerPaginator_Calc(t *testing.T) {
	ctx := context.Background()
	p := NewPaginator(numbers(95), 10)

	require.NoError(t, p.Calc(ctx, "1"))
	assert.Equal(t, 10, p.PageCount())
	assert.EqualValues(t, 95, p.RowsCount())
	assert.Equal(t, []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, pageItems(t, p))

	require.NoError(t, p.Calc(ctx, "10"))
	assert.Equal(t, []any{91, 92, 93, 94, 95}, pageItems(t, p))

	require.ErrorIs(t, p.Calc(ctx, "11"), ErrPageNotFound)
	require.ErrorIs(t, p.Calc(ctx, "0"), ErrPageNotFound)
	require.ErrorIs(t, p.SetPage(ctx, -1), ErrPageNotFound)

	require.NoError(t, p.Calc(ctx, "garbage"))
	assert.Equal(t, 1, p.Page())
}

func Test_EagerPaginator_Edges(t *testing.T) {
	ctx := context.Background()

	empty := NewPaginator(numbers(0), 10)
	require.NoError(t, empty.Calc(ctx, "1"))
	assert.Equal(t, 1, empty.PageCount())
	assert.False(t, empty.IsPaginate())
	assert.Empty(t, pageItems(t, empty))

	exact := NewPaginator(numbers(20), 10)
	require.NoError(t, exact.Calc(ctx, "2"))
	assert.Equal(t, 2, exact.PageCount())
	assert.Len(t, pageItems(t, exact), 10)

	all := NewPaginator(numbers(95), AllRows)
	require.NoError(t, all.Calc(ctx, "1"))
	assert.Equal(t, 1, all.PageCount())
	assert.False(t, all.IsPaginate())
	assert.Len(t, pageItems(t, all), 95)

	normalized := NewPaginator(numbers(5), 0)
	assert.Equal(t, DefaultRowsPerPage, normalized.PerPage())
	assert.Equal(t, DefaultSegment, normalized.Segment())
}

func Test_EagerPaginator_Navigation(t *testing.T) {
	ctx := context.Background()
	p := NewPaginator(numbers(95), 10).WithSegment(2)

	require.NoError(t, p.SetPage(ctx, 5))
	assert.True(t, p.IsPaginate())
	assert.Equal(t, []int{3, 4, 5, 6, 7}, p.Bar())
	assert.Equal(t, 4, p.PrevPage())
	assert.Equal(t, 6, p.NextPage())
	assert.Equal(t, 0, p.PrevPageGroup())
	assert.Equal(t, 10, p.NextPageGroup())
	assert.Equal(t, 2, p.PrevPageSegment())
	assert.Equal(t, 8, p.NextPageSegment())
	assert.Equal(t, 10, p.LastPage())

	require.NoError(t, p.SetPage(ctx, 1))
	assert.Equal(t, []int{1, 2, 3}, p.Bar())
	assert.Equal(t, 0, p.PrevPage())

	require.NoError(t, p.SetPage(ctx, 10))
	assert.Equal(t, []int{8, 9, 10}, p.Bar())
	assert.Equal(t, 0, p.NextPage())
	assert.Equal(t, 0, p.NextPageSegment())
}

func Test_EagerPaginator_Position(t *testing.T) {
	ctx := context.Background()

	p := NewPaginator(numbers(95), 10)
	for position, page := range map[int]int{1: 1, 10: 1, 11: 2, 95: 10} {
		require.NoError(t, p.SetPageByPosition(ctx, position))
		assert.Equal(t, page, p.Page(), "position %d", position)
	}

	inverted := NewPaginator(numbers(33), 10)
	for position, page := range map[int]int{1: 4, 3: 4, 4: 3, 23: 2, 24: 1, 33: 1} {
		require.NoError(t, inverted.SetInvertedPageByPosition(ctx, position))
		assert.Equal(t, page, inverted.Page(), "position %d", position)
	}

	require.NoError(t, inverted.SetInvertedPageByPosition(ctx, 1))
	require.Equal(t, 4, inverted.Page())
	for _, position := range []int{-7, -100} {
		require.NoError(t, inverted.SetInvertedPageByPosition(ctx, position))
		assert.Equal(t, 1, inverted.Page(), "position %d", position)
	}
}

func Test_pager_StartURL(t *testing.T) {
	p := &pager{}

	assert.Equal(t, "?", p.StartURL(url.Values{}))
	assert.Equal(t, "?", p.StartURL(url.Values{"page": {"3"}}))
	assert.Equal(t, "?q=x&sort_by=-name&", p.StartURL(url.Values{"page": {"3"}, "q": {"x"}, "sort_by": {"-name"}}))
}

func Test_LazyPaginator_Calc(t *testing.T) {
	ctx := context.Background()
	p := NewLazyPaginator(numbers(23), 10)

	require.NoError(t, p.Calc(ctx, "1"))
	assert.Equal(t, 1, p.Page())
	assert.Len(t, pageItems(t, p), 10)
	assert.Equal(t, 0, p.LastPage(), "terminal page must not be pinned yet")
	assert.Equal(t, 2, p.PageCount())
	assert.Equal(t, 2, p.NextPage())
	assert.Equal(t, []int{1, 2, 3, 4}, p.Bar())
	assert.True(t, p.IsPaginate())

	require.NoError(t, p.Calc(ctx, "3"))
	assert.Equal(t, 3, p.Page())
	assert.Equal(t, []any{21, 22, 23}, pageItems(t, p))
	assert.Equal(t, 3, p.LastPage())
	assert.EqualValues(t, 23, p.RowsCount())

	require.NoError(t, p.Calc(ctx, "4"))
	assert.Equal(t, 3, p.Page(), "pages past the terminal one clamp to it")
	assert.Len(t, pageItems(t, p), 3)
	assert.Equal(t, []int{1, 2, 3}, p.Bar())
	assert.Equal(t, 0, p.NextPage())
	assert.Equal(t, 0, p.NextPageGroup())

	require.NoError(t, p.Calc(ctx, "-2"))
	assert.Equal(t, 1, p.Page())
}

func Test_LazyPaginator_Probe(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		rows     int
		page     string
		wantPage int
		wantLast int
		wantLen  int
	}{
		{"probe finds a partial page", 23, "5", 3, 3, 3},
		{"probe finds an exact multiple", 20, "5", 2, 2, 10},
		{"probe too far restarts", 23, "50", 1, 0, 10},
		{"single full page", 10, "1", 1, 1, 10},
		{"empty first page", 0, "1", 1, 1, 0},
		{"empty beyond first page", 0, "3", 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewLazyPaginator(numbers(tt.rows), 10)

			require.NoError(t, p.Calc(ctx, tt.page))
			assert.Equal(t, tt.wantPage, p.Page())
			assert.Equal(t, tt.wantLast, p.LastPage())
			assert.Len(t, pageItems(t, p), tt.wantLen)
		})
	}
}

func Test_LazyPaginator_Misc(t *testing.T) {
	ctx := context.Background()

	p := NewLazyPaginator(numbers(23), 10)
	assert.Equal(t, DefaultLazySegment, p.Segment())
	assert.Len(t, pageItems(t, p), 10, "items calc the first page on demand")

	require.NoError(t, p.SetPageByPosition(ctx, 15))
	assert.Equal(t, 2, p.Page())

	err := p.SetInvertedPageByPosition(ctx, 1)
	require.True(t, errors.Is(err, errors.ErrUnsupported))

	all := NewLazyPaginator(numbers(23), AllRows)
	require.NoError(t, all.Calc(ctx, "2"))
	assert.Equal(t, 1, all.Page())
	assert.Len(t, pageItems(t, all), 23)
	assert.EqualValues(t, 23, all.RowsCount())
	assert.False(t, all.IsPaginate())
}

func Test_LazySegmentPaginator_Calc(t *testing.T) {
	ctx := context.Background()
	p := NewLazySegmentPaginator(numbers(95), 10).WithSegment(2)

	require.NoError(t, p.Calc(ctx, "1"))
	assert.Equal(t, 3, p.PageCount())
	assert.EqualValues(t, 30, p.RowsCount())
	assert.Len(t, pageItems(t, p), 10)

	require.NoError(t, p.Calc(ctx, "9"))
	assert.Equal(t, 10, p.PageCount())
	assert.EqualValues(t, 95, p.RowsCount())

	require.NoError(t, p.Calc(ctx, "10"))
	assert.Equal(t, []any{91, 92, 93, 94, 95}, pageItems(t, p))

	require.ErrorIs(t, p.Calc(ctx, "11"), ErrPageNotFound)
	require.ErrorIs(t, p.Calc(ctx, "0"), ErrPageNotFound)

	require.ErrorIs(t, p.SetInvertedPageByPosition(ctx, 1), errors.ErrUnsupported)

	empty := NewLazySegmentPaginator(numbers(0), 10)
	require.NoError(t, empty.Calc(ctx, "1"))
	assert.Equal(t, 1, empty.PageCount())
	assert.Empty(t, pageItems(t, empty))
}

func Test_PaginatorFactories(t *testing.T) {
	src := numbers(5)

	eager, ok := Eager(2)(src, 10).(*EagerPaginator)
	require.True(t, ok)
	assert.Equal(t, 2, eager.Segment())

	lazy, ok := Lazy(0)(src, 10).(*LazyPaginator)
	require.True(t, ok)
	assert.Equal(t, DefaultLazySegment, lazy.Segment())

	segment, ok := LazySegment(4)(src, 5000).(*LazySegmentPaginator)
	require.True(t, ok)
	assert.Equal(t, 4, segment.Segment())
	assert.Equal(t, MaxRowsPerPage, segment.PerPage())
}
