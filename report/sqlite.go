package report

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	format       TEXT NOT NULL,
	size         INTEGER NOT NULL,
	magic        TEXT NOT NULL,
	compressed   INTEGER NOT NULL,
	generated_at TEXT NOT NULL,
	records      INTEGER NOT NULL,
	flagged      INTEGER NOT NULL,
	failed       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cookies (
	report_id     TEXT NOT NULL REFERENCES reports(id),
	page          INTEGER NOT NULL,
	record_offset INTEGER NOT NULL,
	domain        TEXT NOT NULL,
	name          TEXT NOT NULL,
	path          TEXT NOT NULL,
	value         TEXT NOT NULL,
	comment       TEXT NOT NULL,
	flags         TEXT NOT NULL,
	secure        INTEGER NOT NULL,
	http_only     INTEGER NOT NULL,
	created       TEXT NOT NULL,
	expires       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS log_entries (
	report_id     TEXT NOT NULL REFERENCES reports(id),
	record_offset INTEGER NOT NULL,
	created       TEXT NOT NULL,
	state         INTEGER NOT NULL,
	crc_passed    INTEGER NOT NULL,
	stored_crc    TEXT NOT NULL,
	size          INTEGER NOT NULL,
	data          TEXT NOT NULL,
	raw           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS errors (
	report_id     TEXT NOT NULL REFERENCES reports(id),
	kind          TEXT NOT NULL,
	page          INTEGER NOT NULL,
	idx           INTEGER NOT NULL,
	record_offset INTEGER NOT NULL,
	message       TEXT NOT NULL
);
`

// writeSQLite stores doc in the database at path, creating the schema when
// needed. Several documents can share one database.
func writeSQLite(path string, doc *Document) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sql.Open %s -> %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema -> %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("db.Begin -> %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO reports VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ReportID, doc.Source, doc.Format, doc.Size, doc.Magic, doc.Compressed,
		doc.GeneratedAt, doc.Summary.Records, doc.Summary.Flagged, doc.Summary.Failed,
	); err != nil {
		return fmt.Errorf("insert report -> %w", err)
	}

	for _, c := range doc.Cookies {
		if _, err := tx.Exec(
			`INSERT INTO cookies VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ReportID, c.Page, c.Offset, c.Domain, c.Name, c.Path, c.Value,
			c.Comment, c.Flags, c.Secure, c.HttpOnly, c.Created, c.Expires,
		); err != nil {
			return fmt.Errorf("insert cookie page %d offset %d -> %w", c.Page, c.Offset, err)
		}
	}

	for _, e := range doc.Entries {
		if _, err := tx.Exec(
			`INSERT INTO log_entries VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ReportID, e.Offset, e.Created, e.State, e.CRCPassed, e.StoredCRC, e.Size, e.Data, e.Raw,
		); err != nil {
			return fmt.Errorf("insert entry offset %d -> %w", e.Offset, err)
		}
	}

	for _, e := range doc.Errors {
		if _, err := tx.Exec(
			`INSERT INTO errors VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ReportID, e.Kind, e.Page, e.Index, e.Offset, e.Message,
		); err != nil {
			return fmt.Errorf("insert error offset %d -> %w", e.Offset, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit -> %w", err)
	}

	return nil
}
