package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

const (
	Dir   = "."
	Table = "notification_goose_db_version"
)
