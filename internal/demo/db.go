package demo

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Alp4ka/gotable/internal/config"
)

// OpenDatabase connects to the configured database. Driver errors are
// translated so that unique violations surface as gorm.ErrDuplicatedKey.
func OpenDatabase(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case config.DialectSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case config.DialectPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DialectMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: database.dialect = %s", config.ErrInvalidConfig, cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Dialect, err)
	}

	return db, nil
}

func newGormLogger(log *slog.Logger) logger.Interface {
	return logger.New(slogWriter{log: log}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.log.Warn(fmt.Sprintf(format, args...), slog.String("component", "gorm"))
}
