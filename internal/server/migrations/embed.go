// Package migrations embeds the database schema migrations applied with goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
