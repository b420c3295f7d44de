package gotable

const (
	// AllRows disables pagination: every matching row is rendered on one page.
	AllRows = -1

	MaxRowsPerPage     = 1000
	DefaultRowsPerPage = 25

	DefaultSegment     = 5
	DefaultLazySegment = 3
)

func IsNormalizedRowsPerPageMax(rowsPerPage int, maxRowsPerPage int) (int, bool) {
	if rowsPerPage == AllRows {
		return AllRows, true
	}

	if rowsPerPage <= 0 {
		return DefaultRowsPerPage, false
	} else if rowsPerPage > maxRowsPerPage {
		return maxRowsPerPage, false
	}

	return rowsPerPage, true
}

func NormalizeRowsPerPageMax(rowsPerPage int, maxRowsPerPage int) int {
	ret, _ := IsNormalizedRowsPerPageMax(rowsPerPage, maxRowsPerPage)
	return ret
}

func NormalizeRowsPerPage(rowsPerPage int) int {
	return NormalizeRowsPerPageMax(rowsPerPage, MaxRowsPerPage)
}

func normalizeSegment(segment, fallback int) int {
	if segment <= 0 {
		return fallback
	}

	return segment
}
