// Package migrations embeds the catalog service's SQL migration files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
