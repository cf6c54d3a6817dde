// Package migrations embeds the booking-service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

const (
	Dir   = "."
	Table = "booking_goose_db_version"
)
