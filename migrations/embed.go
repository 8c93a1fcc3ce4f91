// Package migrations embeds the goose SQL migration files so the binary
// is self-contained and needs no migration files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
