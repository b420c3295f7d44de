package gotable

import (
	"fmt"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newGORMMock opens gorm with the dialector of dialect over a regexp
// matching sqlmock connection.
func newGORMMock(dialect string) (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		return "", nil, nil, err
	}

	var dialector gorm.Dialector
	switch dialect {
	case dialectMySQL:
		dialector = mysql.New(mysql.Config{
			Conn:                      mockDB,
			SkipInitializeWithVersion: true,
		})
	case dialectPostgres:
		dialector = postgres.New(postgres.Config{
			Conn: mockDB,
		})
	default:
		return "", nil, nil, fmt.Errorf("no mock dialector for %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return dialect, db.Debug(), mock, nil
}

func newGORMMySQLMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	return newGORMMock(dialectMySQL)
}

func newGORMPostgresMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	return newGORMMock(dialectPostgres)
}
