// Package migrations menyimpan skema database booking.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
