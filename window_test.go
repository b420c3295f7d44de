package gotable

import (
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_Window_Limits(t *testing.T) {
	tests := []struct {
		name         string
		window       *Window
		offset       int
		limit        int
		datasetLimit int
		unbounded    bool
	}{
		{
			name:         "nil window",
			window:       nil,
			offset:       0,
			limit:        NoEnd,
			datasetLimit: NoEnd,
			unbounded:    true,
		},
		{
			name:         "bounded",
			window:       NewWindow(4, 6),
			offset:       4,
			limit:        2,
			datasetLimit: 2,
		},
		{
			name:         "bounded with lookahead",
			window:       NewWindow(2, 4).WithLookahead(),
			offset:       2,
			limit:        2,
			datasetLimit: 3,
		},
		{
			name:         "unbounded tail",
			window:       NewWindow(10, NoEnd),
			offset:       10,
			limit:        NoEnd,
			datasetLimit: NoEnd,
			unbounded:    true,
		},
		{
			name:         "empty",
			window:       NewWindow(5, 5),
			offset:       5,
			limit:        0,
			datasetLimit: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.offset, tt.window.GetOffset())
			require.Equal(t, tt.limit, tt.window.GetLimit())
			require.Equal(t, tt.datasetLimit, tt.window.GetDatasetLimit())
			require.Equal(t, tt.unbounded, tt.window.IsUnbounded())
		})
	}
}

func Test_Window_validate(t *testing.T) {
	require.NoError(t, (*Window)(nil).validate())
	require.NoError(t, NewWindow(0, 10).validate())
	require.NoError(t, NewWindow(3, NoEnd).validate())
	require.Error(t, NewWindow(-1, 10).validate())
	require.Error(t, NewWindow(5, 4).validate())
	require.Error(t, NewWindow(0, NoEnd).WithLookahead().validate())
}

func Test_Window_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		window *Window
		n      int
		lo, hi int
	}{
		{"inside", NewWindow(2, 4), 10, 2, 4},
		{"lookahead", NewWindow(2, 4).WithLookahead(), 10, 2, 5},
		{"clipped", NewWindow(8, 12), 10, 8, 10},
		{"past end", NewWindow(12, 14), 10, 10, 10},
		{"unbounded", NewWindow(3, NoEnd), 10, 3, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := tt.window.Bounds(tt.n)
			require.Equal(t, tt.lo, lo)
			require.Equal(t, tt.hi, hi)
		})
	}
}

func Test_Window_Apply(t *testing.T) {
	sqlMockFnList := []func() (string, *gorm.DB, sqlmock.Sqlmock, error){
		newGORMMySQLMock,
		newGORMPostgresMock,
	}

	type item struct{ ID int }

	tests := []struct {
		name          string
		window        *Window
		expectedQuery string
		expectedRows  *sqlmock.Rows
	}{
		{
			name:          "offset and limit",
			window:        NewWindow(5, 8),
			expectedQuery: "^SELECT \\* FROM [`'\"]items[`'\"] LIMIT 3 OFFSET 5$",
			expectedRows:  sqlmock.NewRows([]string{"id"}).AddRow(6),
		},
		{
			name:          "lookahead",
			window:        NewWindow(5, 8).WithLookahead(),
			expectedQuery: "^SELECT \\* FROM [`'\"]items[`'\"] LIMIT 4 OFFSET 5$",
			expectedRows:  sqlmock.NewRows([]string{"id"}).AddRow(6),
		},
		{
			name:          "first page",
			window:        NewWindow(0, 5),
			expectedQuery: "^SELECT \\* FROM [`'\"]items[`'\"] LIMIT 5$",
			expectedRows:  sqlmock.NewRows([]string{"id"}).AddRow(1),
		},
		{
			name:          "unbounded tail",
			window:        NewWindow(10, NoEnd),
			expectedQuery: "^SELECT \\* FROM [`'\"]items[`'\"] OFFSET 10$",
			expectedRows:  sqlmock.NewRows([]string{"id"}).AddRow(11),
		},
		{
			name:          "nil window",
			window:        nil,
			expectedQuery: "^SELECT \\* FROM [`'\"]items[`'\"]$",
			expectedRows:  sqlmock.NewRows([]string{"id"}).AddRow(1),
		},
	}

	for _, sqlMockFn := range sqlMockFnList {
		for _, tt := range tests {
			dialect, db, dbMock, err := sqlMockFn()
			t.Run(fmt.Sprintf("%s %s", dialect, tt.name), func(t *testing.T) {
				require.NoError(t, err)

				dbMock.ExpectQuery(tt.expectedQuery).WillReturnRows(tt.expectedRows)

				err = tt.window.Apply(db.Select("*").Table("items")).Find(&[]item{}).Error
				require.NoError(t, err)
				require.NoError(t, dbMock.ExpectationsWereMet())
			})
		}
	}
}

func Test_IsLastPage_TrimResultSet(t *testing.T) {
	type item struct{ ID int }

	tests := []struct {
		name        string
		description string
		window      *Window
		input       []item
		expectedRes []item
		last        bool
	}{
		{
			name:        "last page without lookahead",
			description: "fewer rows than the limit means the dataset ended",
			window:      NewWindow(0, 3),
			input:       []item{{1}, {2}},
			expectedRes: []item{{1}, {2}},
			last:        true,
		},
		{
			name:        "ordinary page without lookahead",
			description: "a full page without lookahead may be followed by more rows",
			window:      NewWindow(4, 6),
			input:       []item{{1}, {2}},
			expectedRes: []item{{1}, {2}},
			last:        false,
		},
		{
			name:        "last page with lookahead",
			description: "no lookahead row came back, so nothing follows and nothing is trimmed",
			window:      NewWindow(2, 4).WithLookahead(),
			input:       []item{{1}, {2}},
			expectedRes: []item{{1}, {2}},
			last:        true,
		},
		{
			name:        "ordinary page with lookahead",
			description: "the lookahead row proves a next page exists and is dropped",
			window:      NewWindow(2, 4).WithLookahead(),
			input:       []item{{1}, {2}, {3}},
			expectedRes: []item{{1}, {2}},
			last:        false,
		},
		{
			name:        "unbounded",
			description: "an unbounded window always reaches the end",
			window:      NewWindow(0, NoEnd),
			input:       []item{{1}, {2}, {3}},
			expectedRes: []item{{1}, {2}, {3}},
			last:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Logf("Test description: %s", tt.description)

			require.Equal(t, tt.last, IsLastPage(tt.window, tt.input))
			require.Equal(t, tt.expectedRes, TrimResultSet(tt.window, tt.input))
		})
	}
}
