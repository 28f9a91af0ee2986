// Package migrations embeds the SQL schema migrations for gchat.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
