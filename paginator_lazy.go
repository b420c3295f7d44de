package gotable

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// LazyPaginator never counts the source. Each Calc fetches the requested page
// plus one lookahead row: a full page with a lookahead row proves a further
// page exists, a short page pins the terminal page. An empty page beyond the
// first triggers a bounded backward probe of segment pages to find the
// terminal page.
//
// Requests below page 1 are clamped to 1, requests past a pinned terminal page
// are clamped to it.
type LazyPaginator struct {
	pager
	src      DataSource
	lastPage int
	rows     []any
}

// NewLazyPaginator returns a lazy paginator. perPage is normalized.
func NewLazyPaginator(src DataSource, perPage int) *LazyPaginator {
	return &LazyPaginator{
		pager: pager{
			perPage: NormalizeRowsPerPage(perPage),
			segment: DefaultLazySegment,
		},
		src: src,
	}
}

// WithSegment sets the number of page links around the current page and the
// backward probe depth.
func (p *LazyPaginator) WithSegment(segment int) *LazyPaginator {
	p.segment = normalizeSegment(segment, DefaultLazySegment)

	return p
}

// Calc - implements Paginator.
func (p *LazyPaginator) Calc(ctx context.Context, page string) error {
	p.page = max(1, parsePage(page))
	if p.lastPage > 0 && p.page > p.lastPage {
		p.page = p.lastPage
	}

	if p.perPage == AllRows {
		rows, err := p.src.Clone().Rows(ctx)
		if err != nil {
			return fmt.Errorf("fetch rows: %w", err)
		}

		p.rows = rows
		p.page = 1
		p.pin(1)

		return nil
	}

	window, rows, err := p.fetch(ctx, p.page)
	if err != nil {
		return err
	}

	if p.lastPage > 0 {
		p.rows = TrimResultSet(window, rows)
		return nil
	}

	if len(rows) == 0 {
		if p.page == 1 {
			p.rows = nil
			p.pin(1)

			return nil
		}

		found, err := p.probe(ctx)
		if err != nil {
			return err
		}

		if found {
			return nil
		}

		// Nothing behind either: start over from the first page.
		p.page = 1
		if window, rows, err = p.fetch(ctx, 1); err != nil {
			return err
		}

		if len(rows) == 0 {
			p.rows = nil
			p.pin(1)

			return nil
		}
	}

	if IsLastPage(window, rows) {
		p.pin(p.page)
	} else {
		p.pages = p.page + 1
	}
	p.rows = TrimResultSet(window, rows)

	return nil
}

// fetch reads the rows of page with one lookahead row.
func (p *LazyPaginator) fetch(ctx context.Context, page int) (*Window, []any, error) {
	start := (page - 1) * p.perPage
	window := NewWindow(start, start+p.perPage).WithLookahead()

	rows, err := p.src.Clone().SetLimit(window.GetOffset(), window.GetOffset()+window.GetDatasetLimit()).Rows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch rows: %w", err)
	}

	return window, rows, nil
}

// probe scans up to segment pages behind the current one for the terminal
// page. It reports whether one was found, in which case it becomes the
// current and pinned page.
func (p *LazyPaginator) probe(ctx context.Context) (bool, error) {
	from := max(1, p.page-p.segment)
	start := (from - 1) * p.perPage

	rows, err := p.src.Clone().SetLimit(start, start+p.perPage*p.segment).Rows(ctx)
	if err != nil {
		return false, fmt.Errorf("probe rows: %w", err)
	}

	if len(rows) == 0 {
		return false, nil
	}

	full := len(rows) / p.perPage
	if len(rows)%p.perPage == 0 {
		full--
	}

	p.page = from + full
	p.pin(p.page)
	p.rows = rows[full*p.perPage:]

	return true, nil
}

func (p *LazyPaginator) pin(page int) {
	p.lastPage = page
	p.pages = page
}

// SetPage - implements Paginator.
func (p *LazyPaginator) SetPage(ctx context.Context, page int) error {
	return p.Calc(ctx, strconv.Itoa(page))
}

// RowsCount - implements Paginator. The count is a lower bound until the
// terminal page is pinned.
func (p *LazyPaginator) RowsCount() int64 {
	if p.perPage == AllRows {
		return int64(len(p.rows))
	}

	return int64((p.page-1)*p.perPage + len(p.rows))
}

// Items - implements Paginator.
func (p *LazyPaginator) Items(ctx context.Context) ([]any, error) {
	if p.page == 0 {
		if err := p.Calc(ctx, "1"); err != nil {
			return nil, err
		}
	}

	return p.rows, nil
}

// LastPage returns the pinned terminal page, 0 while it is unknown.
func (p *LazyPaginator) LastPage() int {
	return p.lastPage
}

// Bar - implements Paginator. Pages past the current one are offered until
// the terminal page is known.
func (p *LazyPaginator) Bar() []int {
	return p.bar(p.lastPage)
}

// NextPageGroup - implements Paginator.
func (p *LazyPaginator) NextPageGroup() int {
	next := p.page + 2*p.segment + 1
	if p.lastPage > 0 && next > p.lastPage {
		return 0
	}

	return next
}

// IsPaginate - implements Paginator. The pager is always shown since the
// page count is not known upfront.
func (p *LazyPaginator) IsPaginate() bool {
	return p.perPage != AllRows
}

// SetPageByPosition - implements Paginator.
func (p *LazyPaginator) SetPageByPosition(ctx context.Context, position int) error {
	return p.SetPage(ctx, p.positionPage(position))
}

// SetInvertedPageByPosition - implements Paginator. Not supported: inverted
// positions need the total row count.
func (p *LazyPaginator) SetInvertedPageByPosition(context.Context, int) error {
	return fmt.Errorf("lazy paginator: inverted positioning: %w", errors.ErrUnsupported)
}

var _ Paginator = (*LazyPaginator)(nil)
