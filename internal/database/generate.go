package database

// Regenerate the sqlc schema and query code after changing a migration:
//
//	go generate ./internal/database

//go:generate sh -c "cd ../.. && go run ./internal/database/tools"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
