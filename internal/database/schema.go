package database

import _ "embed"

// Schema is the flattened DDL produced from the migrations. Tests apply it
// directly to in-memory databases.
//
//go:embed sqlc/schema.sql
var Schema string
