package database

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsPath - каталог миграций внутри MigrationsFS.
const MigrationsPath = "migrations"

// MigrationsFS возвращает встроенные SQL-миграции.
func MigrationsFS() fs.FS {
	return migrationsFS
}
