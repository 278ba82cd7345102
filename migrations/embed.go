// Package migrations holds the goose SQL migrations, embedded so the server
// and cmd/migrate carry the schema with them.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
