package store

import "strings"

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

// DetectType picks the backend from a DSN. Anything that isn't a postgres
// URL or keyword string is treated as a SQLite path.
func DetectType(dsn string) DatabaseType {
	for _, prefix := range []string{"postgres://", "postgresql://", "host="} {
		if strings.HasPrefix(dsn, prefix) {
			return DBTypePostgres
		}
	}
	return DBTypeSQLite
}
