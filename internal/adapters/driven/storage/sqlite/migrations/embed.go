// Package migrations holds the run history schema as numbered .up.sql and
// .down.sql pairs.
package migrations

import "embed"

// FS is applied in file-name order by the store on open.
//
//go:embed *.sql
var FS embed.FS
