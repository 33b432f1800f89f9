package sqlite

import "database/sql"

// schema sets up the snapshot table. The snapshot is stored as one JSON
// document in a single row; saved_at records the last write for debugging.
const schema = `
CREATE TABLE IF NOT EXISTS snapshot (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    document BLOB NOT NULL,
    saved_at INTEGER NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
