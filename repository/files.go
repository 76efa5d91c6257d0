package repository

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the dialect migration files for the accounts schema
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
