package gotable

import "testing"

func Test_IsNormalizedRowsPerPageMax(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		max      int
		want     int
		isStrict bool
	}{
		{"zero uses default", 0, 50, DefaultRowsPerPage, false},
		{"negative uses default", -10, 50, DefaultRowsPerPage, false},
		{"all rows kept", AllRows, 50, AllRows, true},
		{"within max unchanged", 7, 50, 7, true},
		{"equal max unchanged", 50, 50, 50, true},
		{"above max clamped", 51, 50, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strict := IsNormalizedRowsPerPageMax(tt.rows, tt.max)
			if got != tt.want || strict != tt.isStrict {
				t.Errorf("%s: got=(%d,%v) want=(%d,%v)", tt.name, got, strict, tt.want, tt.isStrict)
			}
		})
	}
}

func Test_NormalizeRowsPerPage(t *testing.T) {
	tests := []struct {
		name string
		rows int
		want int
	}{
		{"zero -> default", 0, DefaultRowsPerPage},
		{"negative -> default", -5, DefaultRowsPerPage},
		{"all rows", AllRows, AllRows},
		{"clamp to MaxRowsPerPage", MaxRowsPerPage + 1, MaxRowsPerPage},
		{"keep when ok", 17, 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRowsPerPage(tt.rows); got != tt.want {
				t.Errorf("%s: got %d want %d", tt.name, got, tt.want)
			}
		})
	}
}

func Test_normalizeSegment(t *testing.T) {
	tests := []struct{ in, fallback, want int }{
		{0, DefaultSegment, DefaultSegment},
		{-1, DefaultLazySegment, DefaultLazySegment},
		{7, DefaultSegment, 7},
	}
	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got := normalizeSegment(tt.in, tt.fallback); got != tt.want {
				t.Errorf("normalizeSegment(%d,%d)=%d want %d", tt.in, tt.fallback, got, tt.want)
			}
		})
	}
}
