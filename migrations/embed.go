// Package migrations embeds the SQL schema for the SDK's local database.
package migrations

import (
	"embed"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
