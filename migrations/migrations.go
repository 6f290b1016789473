// Package migrations embeds the SQL schema so binaries carry their own migrations.
package migrations

import "embed"

// FS holds the numbered migration scripts
//
//go:embed *.sql
var FS embed.FS
