package gotable

import (
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// NoEnd marks a window without an upper bound.
const NoEnd = -1

// Window is a half-open [start, end) slice over an ordered row sequence. It
// is the LIMIT/OFFSET primitive every data source applies when rows are
// fetched.
//
// With lookahead enabled the window fetches one row past its end, which lets
// callers tell whether at least one more row exists without counting.
type Window struct {
	start     int
	end       int
	lookahead bool
}

// NewWindow returns the window [start, end). Use NoEnd for an unbounded tail.
func NewWindow(start, end int) *Window {
	return new(Window).WithBounds(start, end)
}

// WithBounds sets the window bounds.
func (w *Window) WithBounds(start, end int) *Window {
	if w == nil {
		w = &Window{end: NoEnd}
	}

	w.start = start
	w.end = end

	return w
}

// WithLookahead enables lookahead fetching.
//
// IMPORTANT:
// Cannot be used together with an unbounded window.
func (w *Window) WithLookahead() *Window {
	if w == nil {
		w = &Window{end: NoEnd}
	}

	w.lookahead = true

	return w
}

// GetOffset returns the first row index of the window.
func (w *Window) GetOffset() int {
	if w == nil {
		return 0
	}

	return w.start
}

// GetEnd returns the exclusive end of the window, or NoEnd.
func (w *Window) GetEnd() int {
	if w == nil {
		return NoEnd
	}

	return w.end
}

// IsUnbounded returns true if the window has no upper bound.
func (w *Window) IsUnbounded() bool {
	return w == nil || w.end == NoEnd
}

// IsLookahead returns true if lookahead fetching is enabled.
func (w *Window) IsLookahead() bool {
	return w != nil && w.lookahead
}

// GetLimit returns the number of rows the window covers, or NoEnd when
// unbounded. The return value is never negative otherwise.
func (w *Window) GetLimit() int {
	if w.IsUnbounded() {
		return NoEnd
	}

	return max(0, w.end-w.start)
}

// GetDatasetLimit returns the limit adjusted for lookahead:
//   - if Lookahead = true → GetLimit() + 1
//   - if Lookahead = false → GetLimit()
func (w *Window) GetDatasetLimit() int {
	limit := w.GetLimit()
	if limit == NoEnd {
		return NoEnd
	}

	return lo.Ternary(w.IsLookahead(), limit+1, limit)
}

// Apply applies the window to a gorm query.
func (w *Window) Apply(db *gorm.DB) *gorm.DB {
	if w == nil {
		return db
	}

	if offset := w.GetOffset(); offset > 0 {
		db = db.Offset(offset)
	}

	if limit := w.GetDatasetLimit(); limit != NoEnd {
		db = db.Limit(limit)
	}

	return db
}

// Bounds returns the [lo, hi) indexes of the window over a sequence of n rows,
// lookahead included.
func (w *Window) Bounds(n int) (int, int) {
	start := min(max(0, w.GetOffset()), n)

	limit := w.GetDatasetLimit()
	if limit == NoEnd {
		return start, n
	}

	return start, min(start+limit, n)
}

func (w *Window) validate() error {
	if w == nil {
		return nil
	}

	if w.start < 0 {
		return fmt.Errorf("negative window start %d", w.start)
	}

	if w.end != NoEnd && w.end < w.start {
		return fmt.Errorf("window end %d precedes start %d", w.end, w.start)
	}

	if w.end == NoEnd && w.lookahead {
		return fmt.Errorf("cannot apply lookahead to an unbounded window")
	}

	return nil
}

// IsLastPage returns true if the result set fetched through the window is the
// last one in the dataset.
//
// The last page is determined by one of two conditions:
//  1. The number of returned records is less than the window limit.
//  2. Lookahead = true and the number of returned records is less than or
//     equal to the window limit.
func IsLastPage[T any](w *Window, resultSet []T) bool {
	limit := w.GetLimit()
	if limit == NoEnd {
		return true
	}

	return len(resultSet) < limit ||
		(w.IsLookahead() && len(resultSet) <= limit)
}

// TrimResultSet trims the result set to what should be returned to the
// client: the lookahead row, if it was fetched, is dropped.
func TrimResultSet[T any](w *Window, resultSet []T) []T {
	limit := w.GetLimit()
	if w.IsLookahead() && limit != NoEnd && len(resultSet) > limit {
		resultSet = resultSet[:limit]
	}

	return resultSet
}
