package store

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS folders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			position INTEGER NOT NULL
		);

		-- album_key is not unique: duplicates must load so a pass can merge them
		CREATE TABLE IF NOT EXISTS albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			folder_id INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
			album_key TEXT NOT NULL,
			title TEXT NOT NULL,
			position INTEGER NOT NULL,
			release_estimate INTEGER
		);

		CREATE TABLE IF NOT EXISTS songs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			track_id TEXT NOT NULL,
			position INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_albums_folder ON albums(folder_id, position);
		CREATE INDEX IF NOT EXISTS idx_albums_key ON albums(album_key);
		CREATE INDEX IF NOT EXISTS idx_songs_album ON songs(album_id, position);
		CREATE INDEX IF NOT EXISTS idx_songs_track ON songs(track_id);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
