// Package migrations embeds the goose SQL migrations applied by `vidtube migrate`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
