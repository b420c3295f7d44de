package gotable

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Paginator splits a data source into pages and provides the helpers a pager
// bar is built from. Calc must be called before the page getters are used.
// Page helpers return 0 when there is no such page.
type Paginator interface {
	// Calc (re)computes the page bounds for the requested page. Missing or
	// malformed input selects page 1.
	Calc(ctx context.Context, page string) error
	SetPage(ctx context.Context, page int) error
	Page() int
	PageCount() int
	RowsCount() int64
	PerPage() int
	Segment() int
	Items(ctx context.Context) ([]any, error)
	Bar() []int
	PrevPage() int
	NextPage() int
	PrevPageGroup() int
	NextPageGroup() int
	PrevPageSegment() int
	NextPageSegment() int
	LastPage() int
	IsPaginate() bool
	// StartURL returns the query string prefix page links are appended to.
	StartURL(query url.Values) string
	SetPageByPosition(ctx context.Context, position int) error
	SetInvertedPageByPosition(ctx context.Context, position int) error
}

// PaginatorFactory builds a paginator over src.
type PaginatorFactory func(src DataSource, perPage int) Paginator

// Eager returns a factory of eager paginators.
func Eager(segment int) PaginatorFactory {
	return func(src DataSource, perPage int) Paginator {
		return NewPaginator(src, perPage).WithSegment(segment)
	}
}

// Lazy returns a factory of lazy paginators.
func Lazy(segment int) PaginatorFactory {
	return func(src DataSource, perPage int) Paginator {
		return NewLazyPaginator(src, perPage).WithSegment(segment)
	}
}

// LazySegment returns a factory of lazy-segment paginators.
func LazySegment(segment int) PaginatorFactory {
	return func(src DataSource, perPage int) Paginator {
		return NewLazySegmentPaginator(src, perPage).WithSegment(segment)
	}
}

// parsePage converts page input to a number, 1 when it is not numeric.
func parsePage(page string) int {
	n, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil {
		return 1
	}

	return n
}

// pager holds the page arithmetic shared by the paginator variants.
type pager struct {
	perPage int
	segment int
	page    int
	pages   int
}

func (p *pager) Page() int      { return p.page }
func (p *pager) PageCount() int { return p.pages }
func (p *pager) PerPage() int   { return p.perPage }
func (p *pager) Segment() int   { return p.segment }
func (p *pager) LastPage() int  { return p.pages }

// offset returns the [start, end) row window of the current page.
func (p *pager) offset() (int, int) {
	return (p.page - 1) * p.perPage, p.page * p.perPage
}

// Bar returns the page numbers within segment pages of the current one.
func (p *pager) Bar() []int {
	return p.bar(p.pages)
}

func (p *pager) bar(upper int) []int {
	ret := make([]int, 0, 2*p.segment+1)
	for page := p.page - p.segment; page <= p.page+p.segment; page++ {
		if page <= 0 || (upper > 0 && page > upper) {
			continue
		}

		ret = append(ret, page)
	}

	return ret
}

func (p *pager) PrevPage() int {
	return p.before(1)
}

func (p *pager) NextPage() int {
	return p.after(1)
}

func (p *pager) PrevPageGroup() int {
	return p.before(2*p.segment + 1)
}

func (p *pager) NextPageGroup() int {
	return p.after(2*p.segment + 1)
}

func (p *pager) PrevPageSegment() int {
	return p.before(p.segment + 1)
}

func (p *pager) NextPageSegment() int {
	return p.after(p.segment + 1)
}

func (p *pager) before(n int) int {
	if p.page-n <= 0 {
		return 0
	}

	return p.page - n
}

func (p *pager) after(n int) int {
	if p.page+n > p.pages {
		return 0
	}

	return p.page + n
}

func (p *pager) IsPaginate() bool {
	return p.perPage != AllRows && p.pages > 1
}

// StartURL returns "?" followed by the query without its page parameter and
// a trailing "&" when anything is left.
func (p *pager) StartURL(query url.Values) string {
	rest := url.Values{}
	for key, values := range query {
		if key == "page" {
			continue
		}
		rest[key] = values
	}

	if len(rest) == 0 {
		return "?"
	}

	return "?" + rest.Encode() + "&"
}

// positionPage returns the page holding the 1-based row position.
func (p *pager) positionPage(position int) int {
	if p.perPage == AllRows {
		return 1
	}

	return (position-1)/p.perPage + 1
}

// EagerPaginator counts the whole source to know the exact page count.
// Requests outside [1, PageCount] fail with ErrPageNotFound.
type EagerPaginator struct {
	pager
	src  DataSource
	hits int64
}

// NewPaginator returns an eager paginator. perPage is normalized, AllRows
// disables pagination.
func NewPaginator(src DataSource, perPage int) *EagerPaginator {
	return &EagerPaginator{
		pager: pager{
			perPage: NormalizeRowsPerPage(perPage),
			segment: DefaultSegment,
		},
		src: src,
	}
}

// WithSegment sets the number of page links around the current page.
func (p *EagerPaginator) WithSegment(segment int) *EagerPaginator {
	p.segment = normalizeSegment(segment, DefaultSegment)

	return p
}

// Calc - implements Paginator.
func (p *EagerPaginator) Calc(ctx context.Context, page string) error {
	p.page = parsePage(page)

	hits, err := Count(ctx, p.src.Clone())
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	p.hits = hits

	p.pages = 1
	if p.perPage != AllRows {
		p.pages = max(1, int((hits+int64(p.perPage)-1)/int64(p.perPage)))
	}

	if p.page < 1 || p.page > p.pages {
		return fmt.Errorf("%w: page %d of %d", ErrPageNotFound, p.page, p.pages)
	}

	return nil
}

// SetPage - implements Paginator.
func (p *EagerPaginator) SetPage(ctx context.Context, page int) error {
	return p.Calc(ctx, strconv.Itoa(page))
}

// RowsCount - implements Paginator.
func (p *EagerPaginator) RowsCount() int64 {
	return p.hits
}

// Items - implements Paginator.
func (p *EagerPaginator) Items(ctx context.Context) ([]any, error) {
	src := p.src.Clone()
	if p.perPage != AllRows {
		start, end := p.offset()
		src = src.SetLimit(start, end)
	}

	return src.Rows(ctx)
}

// SetPageByPosition - implements Paginator.
func (p *EagerPaginator) SetPageByPosition(ctx context.Context, position int) error {
	return p.SetPage(ctx, p.positionPage(position))
}

// SetInvertedPageByPosition - implements Paginator. Positions count a
// reverse ordered listing, so position 1 lands on the last page, e.g. for 33
// rows by 10:
//
//	page 1: 33..24
//	page 2: 23..14
//	page 3: 13..4
//	page 4: 3..1
//
// Positions before the first row select the first page.
func (p *EagerPaginator) SetInvertedPageByPosition(ctx context.Context, position int) error {
	if p.pages == 0 {
		if err := p.Calc(ctx, "1"); err != nil {
			return err
		}
	}

	if p.perPage == AllRows {
		return p.SetPage(ctx, 1)
	}

	i := p.hits + 1
	for page := 1; page <= p.pages; page++ {
		i -= int64(p.perPage)
		if i <= int64(position) {
			return p.SetPage(ctx, page)
		}
	}

	return p.SetPage(ctx, 1)
}

var _ Paginator = (*EagerPaginator)(nil)
