// Package migrations embeds the postgres schema used by cmd/migrate.
package migrations

import "embed"

// FS holds the *.sql files of this directory.
//
//go:embed *.sql
var FS embed.FS
