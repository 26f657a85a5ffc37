// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
)

// MySQL builds the go-sql-driver Data Source Name from the configuration.
func MySQL(db config.DB) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Extras,
	)
}

// Postgres builds the keyword/value Data Source Name understood by pgx from the configuration.
// Extras are appended verbatim, e.g. "sslmode=disable TimeZone=UTC".
func Postgres(db config.DB) string {
	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		db.Host,
		db.Port,
		db.User,
		db.Password,
		db.Name,
	)

	if db.Extras != "" {
		out += " " + db.Extras
	}

	return out
}
