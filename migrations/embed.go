// Package migrations embeds the mapping database schema.
//
// Deployed clients read an existing mapping database; the schema here is
// applied to development and test databases when database.migrate is set.
package migrations

import (
	"embed"

	"github.com/nerrad567/pas-client-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
