// Package migrations embeds the goose SQL migrations so binaries carry
// their own schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
