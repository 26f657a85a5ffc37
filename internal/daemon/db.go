package daemon

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/dsn"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/logger/adapter/stdlogger"
)

const (
	engineMySQL    = "mysql"
	enginePostgres = "postgres"
	engineSQLite   = "sqlite"

	defaultSQLitePath = "usuarios.db"
	slowQuery         = 200 * time.Millisecond
)

// openDB opens the user database selected by cfg.DB.GormEngine, mysql by default.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case engineMySQL, "":
		dialector = gormmysql.Open(dsn.MySQL(cfg.DB))
	case enginePostgres:
		dialector = gormpostgres.Open(dsn.Postgres(cfg.DB))
	case engineSQLite:
		path := cfg.DB.Path
		if path == "" {
			path = defaultSQLitePath
		}

		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.DB.GormEngine)
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(stdlogger.New("gorm"), gormlogger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return db, nil
}
