package gotable

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// LazySegmentPaginator counts only a window reaching segment pages past the
// current page, which bounds the count cost while still yielding a forward
// page estimate. Requests below page 1 or past the estimate fail with
// ErrPageNotFound.
type LazySegmentPaginator struct {
	pager
	src  DataSource
	hits int64
}

// NewLazySegmentPaginator returns a lazy-segment paginator. perPage is
// normalized.
func NewLazySegmentPaginator(src DataSource, perPage int) *LazySegmentPaginator {
	return &LazySegmentPaginator{
		pager: pager{
			perPage: NormalizeRowsPerPage(perPage),
			segment: DefaultSegment,
		},
		src: src,
	}
}

// WithSegment sets the number of page links around the current page and the
// count window.
func (p *LazySegmentPaginator) WithSegment(segment int) *LazySegmentPaginator {
	p.segment = normalizeSegment(segment, DefaultSegment)

	return p
}

// Calc - implements Paginator.
//
// With hits rows counted in the window starting at the current page:
//
//	pages = page - 1 + ceil(hits / perPage)
func (p *LazySegmentPaginator) Calc(ctx context.Context, page string) error {
	p.page = parsePage(page)
	p.pages = 1
	p.hits = 0

	if p.page < 1 {
		return fmt.Errorf("%w: page %d", ErrPageNotFound, p.page)
	}

	if p.perPage != AllRows {
		start, _ := p.offset()
		end := start + p.perPage*(1+p.segment)

		hits, err := Count(ctx, p.src.Clone().SetLimit(start, end))
		if err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		p.hits = hits

		if hits > 0 {
			p.pages = p.page - 1 + int((hits+int64(p.perPage)-1)/int64(p.perPage))
		}
	}

	if p.page > p.pages {
		return fmt.Errorf("%w: page %d of %d", ErrPageNotFound, p.page, p.pages)
	}

	return nil
}

// SetPage - implements Paginator.
func (p *LazySegmentPaginator) SetPage(ctx context.Context, page int) error {
	return p.Calc(ctx, strconv.Itoa(page))
}

// RowsCount - implements Paginator. It is a lower bound of the total.
func (p *LazySegmentPaginator) RowsCount() int64 {
	if p.perPage == AllRows || p.page < 1 {
		return p.hits
	}

	return int64((p.page-1)*p.perPage) + p.hits
}

// Items - implements Paginator.
func (p *LazySegmentPaginator) Items(ctx context.Context) ([]any, error) {
	src := p.src.Clone()
	if p.perPage != AllRows {
		start, end := p.offset()
		src = src.SetLimit(start, end)
	}

	return src.Rows(ctx)
}

// SetPageByPosition - implements Paginator.
func (p *LazySegmentPaginator) SetPageByPosition(ctx context.Context, position int) error {
	return p.SetPage(ctx, p.positionPage(position))
}

// SetInvertedPageByPosition - implements Paginator. Not supported: inverted
// positions need the total row count.
func (p *LazySegmentPaginator) SetInvertedPageByPosition(context.Context, int) error {
	return fmt.Errorf("lazy segment paginator: inverted positioning: %w", errors.ErrUnsupported)
}

var _ Paginator = (*LazySegmentPaginator)(nil)
