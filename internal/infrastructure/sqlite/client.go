// Package sqlite implements the persistence layer on a local single-file
// SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Open opens (creating if necessary) the archive database and applies the
// schema. The handle is limited to a single connection: SQLite allows one
// writer, and a single connection keeps worker transactions from
// interleaving.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	var currentVersion int
	if err := db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		mid  INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS videos (
		aid           INTEGER PRIMARY KEY,
		bvid          TEXT NOT NULL UNIQUE,
		mid           INTEGER NOT NULL,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		pic           TEXT NOT NULL DEFAULT '',
		created       INTEGER NOT NULL,
		tags          TEXT NOT NULL DEFAULT '',
		season_id     INTEGER NOT NULL DEFAULT 0,
		touhou_status INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_videos_mid ON videos(mid);
	CREATE INDEX IF NOT EXISTS idx_videos_created ON videos(created);

	CREATE TABLE IF NOT EXISTS video_parts (
		cid      INTEGER PRIMARY KEY,
		aid      INTEGER NOT NULL REFERENCES videos(aid) ON DELETE CASCADE,
		page     INTEGER NOT NULL,
		part     TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		ctime    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_video_parts_aid ON video_parts(aid);
	`

	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
