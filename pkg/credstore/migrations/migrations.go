// Package migrations embeds the SQLite credential store schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
