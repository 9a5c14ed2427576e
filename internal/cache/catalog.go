package cache

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // sqlite driver
)

// CatalogFile is the catalog database name inside a cache directory.
const CatalogFile = "default.sqlite"

const (
	createTable = `CREATE TABLE IF NOT EXISTS detailed (
	key TEXT PRIMARY KEY,
	filename TEXT,
	inline_data BLOB,
	size INTEGER,
	last_access_time INTEGER
)`
	createIndex = `CREATE INDEX IF NOT EXISTS last_access_time_idx ON detailed (last_access_time)`
)

// Record is one catalog row. Filename is empty for inline records.
type Record struct {
	Key        string
	Filename   string
	Inline     []byte
	Size       int64
	LastAccess int64
}

// IsInline reports whether the record's bytes live in the catalog row.
func (r Record) IsInline() bool {
	return r.Filename == ""
}

// Catalog is the SQLite table indexing every disk entry. It is not safe for
// concurrent use; the disk tier serializes access.
type Catalog struct {
	db *sql.DB

	upsert        *sql.Stmt
	lookup        *sql.Stmt
	filename      *sql.Stmt
	touch         *sql.Stmt
	exists        *sql.Stmt
	remove        *sql.Stmt
	removeAll     *sql.Stmt
	keys          *sql.Stmt
	oldest        *sql.Stmt
	expiredFiles  *sql.Stmt
	removeExpired *sql.Stmt
	count         *sql.Stmt
	totalSize     *sql.Stmt
}

// OpenCatalog opens or creates the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("open catalog: path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode = wal",
		"PRAGMA synchronous = normal",
		"PRAGMA busy_timeout = 5000",
		createTable,
		createIndex,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init catalog: %w", err)
		}
	}

	c := &Catalog{db: db}
	if err := c.prepare(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) prepare() error {
	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&c.upsert, `INSERT OR REPLACE INTO detailed (key, filename, inline_data, size, last_access_time) VALUES (?, ?, ?, ?, ?)`},
		{&c.lookup, `SELECT filename, inline_data, size, last_access_time FROM detailed WHERE key = ?`},
		{&c.filename, `SELECT filename FROM detailed WHERE key = ?`},
		{&c.touch, `UPDATE detailed SET last_access_time = ? WHERE key = ?`},
		{&c.exists, `SELECT 1 FROM detailed WHERE key = ? LIMIT 1`},
		{&c.remove, `DELETE FROM detailed WHERE key = ?`},
		{&c.removeAll, `DELETE FROM detailed`},
		{&c.keys, `SELECT key FROM detailed ORDER BY last_access_time DESC, key ASC`},
		{&c.oldest, `SELECT key, filename, size, last_access_time FROM detailed ORDER BY last_access_time ASC, key ASC LIMIT ?`},
		{&c.expiredFiles, `SELECT filename FROM detailed WHERE last_access_time < ? AND filename IS NOT NULL`},
		{&c.removeExpired, `DELETE FROM detailed WHERE last_access_time < ?`},
		{&c.count, `SELECT COUNT(*) FROM detailed`},
		{&c.totalSize, `SELECT COALESCE(SUM(size), 0) FROM detailed`},
	}
	for _, s := range statements {
		stmt, err := c.db.Prepare(s.query)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", s.query, err)
		}
		*s.dst = stmt
	}
	return nil
}

// Upsert inserts or replaces the row for r.Key. Exactly one of Filename and
// Inline is written; the other column is NULL.
func (c *Catalog) Upsert(r Record) error {
	var filename, inline any
	if r.Filename != "" {
		filename = r.Filename
	} else {
		inline = r.Inline
		if r.Inline == nil {
			inline = []byte{}
		}
	}
	if _, err := c.upsert.Exec(r.Key, filename, inline, r.Size, r.LastAccess); err != nil {
		return fmt.Errorf("upsert %q: %w", r.Key, err)
	}
	return nil
}

// Lookup returns the row for key.
func (c *Catalog) Lookup(key string) (Record, bool, error) {
	var (
		filename sql.NullString
		inline   []byte
		size     sql.NullInt64
		access   sql.NullInt64
	)
	err := c.lookup.QueryRow(key).Scan(&filename, &inline, &size, &access)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup %q: %w", key, err)
	}
	r := Record{
		Key:        key,
		Filename:   filename.String,
		Size:       size.Int64,
		LastAccess: access.Int64,
	}
	if !filename.Valid {
		r.Inline = inline
		if r.Inline == nil {
			r.Inline = []byte{}
		}
	}
	return r, true, nil
}

// Filename returns the blob file name recorded for key, if any.
func (c *Catalog) Filename(key string) (string, bool, error) {
	var filename sql.NullString
	err := c.filename.QueryRow(key).Scan(&filename)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filename %q: %w", key, err)
	}
	return filename.String, filename.Valid, nil
}

// Touch sets the last access time of key.
func (c *Catalog) Touch(key string, at int64) error {
	if _, err := c.touch.Exec(at, key); err != nil {
		return fmt.Errorf("touch %q: %w", key, err)
	}
	return nil
}

// Exists reports whether key has a row.
func (c *Catalog) Exists(key string) (bool, error) {
	var one int
	err := c.exists.QueryRow(key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", key, err)
	}
	return true, nil
}

// Delete removes the row for key and reports whether one existed.
func (c *Catalog) Delete(key string) (bool, error) {
	res, err := c.remove.Exec(key)
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}
	return n > 0, nil
}

// DeleteAll removes every row and returns how many were removed.
func (c *Catalog) DeleteAll() (int64, error) {
	res, err := c.removeAll.Exec()
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return res.RowsAffected()
}

// Keys lists every key, most recently accessed first.
func (c *Catalog) Keys() ([]string, error) {
	rows, err := c.keys.Query()
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Oldest returns up to limit rows in ascending access order. Inline bytes are
// not loaded.
func (c *Catalog) Oldest(limit int) ([]Record, error) {
	rows, err := c.oldest.Query(limit)
	if err != nil {
		return nil, fmt.Errorf("oldest: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			r        Record
			filename sql.NullString
			size     sql.NullInt64
			access   sql.NullInt64
		)
		if err := rows.Scan(&r.Key, &filename, &size, &access); err != nil {
			return nil, fmt.Errorf("scan oldest: %w", err)
		}
		r.Filename, r.Size, r.LastAccess = filename.String, size.Int64, access.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExpiredFiles lists blob file names of rows last accessed before cutoff.
func (c *Catalog) ExpiredFiles(cutoff int64) ([]string, error) {
	rows, err := c.expiredFiles.Query(cutoff)
	if err != nil {
		return nil, fmt.Errorf("expired files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan expired file: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteExpired removes rows last accessed before cutoff.
func (c *Catalog) DeleteExpired(cutoff int64) (int64, error) {
	res, err := c.removeExpired.Exec(cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of rows.
func (c *Catalog) Count() (int64, error) {
	var n int64
	if err := c.count.QueryRow().Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// TotalSize returns the summed size column.
func (c *Catalog) TotalSize() (int64, error) {
	var n int64
	if err := c.totalSize.QueryRow().Scan(&n); err != nil {
		return 0, fmt.Errorf("total size: %w", err)
	}
	return n, nil
}

// Checkpoint copies the write-ahead log into the main database file.
func (c *Catalog) Checkpoint() error {
	if _, err := c.db.Exec("PRAGMA wal_checkpoint"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Close finalizes prepared statements and closes the database.
func (c *Catalog) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{
		c.upsert, c.lookup, c.filename, c.touch, c.exists, c.remove, c.removeAll,
		c.keys, c.oldest, c.expiredFiles, c.removeExpired, c.count, c.totalSize,
	} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
