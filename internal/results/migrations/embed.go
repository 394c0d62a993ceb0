// Package migrations embeds the schema migration files for the run store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
