package persistence

import (
	"embed"
	"io/fs"
)

//go:embed schema/*.sql
var migrationFiles embed.FS

// Schema returns the goose migrations of the newsletter tables.
func Schema() fs.FS {
	sub, err := fs.Sub(migrationFiles, "schema")
	if err != nil {
		panic(err)
	}
	return sub
}
