// Package migration holds the schema scripts for the sqlite settings
// backend, applied in lexical order.
package migration

import "embed"

//go:embed *.sql
var Scripts embed.FS
