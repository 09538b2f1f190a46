package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/models"
)

// DocumentRow is an indexed document with its derived metadata.
type DocumentRow struct {
	models.Document
	Tags      []string
	LinkCount int
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const documentColumns = `id, collection_id, name, path, title, checksum, tags, content, link_count, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (DocumentRow, error) {
	var r DocumentRow
	var tags string
	err := s.Scan(&r.ID, &r.CollectionID, &r.Name, &r.Path, &r.Title, &r.Checksum,
		&tags, &r.Content, &r.LinkCount, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	_ = json.Unmarshal([]byte(tags), &r.Tags)
	return r, nil
}

func scanCollection(s rowScanner) (models.Collection, error) {
	var c models.Collection
	err := s.Scan(&c.ID, &c.Name, &c.Position, &c.CreatedAt)
	return c, err
}

// EnsureCollection returns the collection called name, creating it at the end
// of the display order if it does not exist yet.
func (db *DB) EnsureCollection(name string) (models.Collection, error) {
	c, err := db.collectionByName(name)
	if err == nil || !errors.Is(err, apperr.ErrNotFound) {
		return c, err
	}
	_, err = db.conn.Exec(`
		INSERT INTO collections (id, name, position, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM collections), ?)
		ON CONFLICT(name) DO NOTHING
	`, uuid.NewString(), name, time.Now().UTC())
	if err != nil {
		return models.Collection{}, fmt.Errorf("index: create collection: %w", err)
	}
	return db.collectionByName(name)
}

func (db *DB) collectionByName(name string) (models.Collection, error) {
	c, err := scanCollection(db.conn.QueryRow(
		`SELECT id, name, position, created_at FROM collections WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("index: collection %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("index: collection %q: %w", name, err)
	}
	return c, nil
}

// CollectionByID returns one collection.
func (db *DB) CollectionByID(id string) (models.Collection, error) {
	c, err := scanCollection(db.conn.QueryRow(
		`SELECT id, name, position, created_at FROM collections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("index: collection %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("index: collection %s: %w", id, err)
	}
	return c, nil
}

// Collections returns every collection in display order.
func (db *DB) Collections() ([]models.Collection, error) {
	rows, err := db.conn.Query(`SELECT id, name, position, created_at FROM collections ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("index: collections: %w", err)
	}
	defer rows.Close()
	var out []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCollection removes a collection that no longer holds documents.
// Non-empty collections are left alone.
func (db *DB) DeleteCollection(id string) error {
	_, err := db.conn.Exec(`
		DELETE FROM collections
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM documents WHERE collection_id = ?)
	`, id, id)
	if err != nil {
		return fmt.Errorf("index: delete collection: %w", err)
	}
	return nil
}

// UpsertDocument inserts or replaces the document at r.Path together with its
// FTS entry. A document keeps its ID across updates of the same path; new
// paths get r.ID or a fresh UUID.
func (db *DB) UpsertDocument(r DocumentRow) (DocumentRow, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return r, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var id string
	err = tx.QueryRow(`SELECT id FROM documents WHERE path = ?`, r.Path).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = r.ID
		if id == "" {
			id = uuid.NewString()
		}
	case err != nil:
		return r, fmt.Errorf("index: lookup document: %w", err)
	}
	r.ID = id
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	tagsJSON, _ := json.Marshal(r.Tags)

	_, err = tx.Exec(`
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			collection_id = excluded.collection_id,
			name          = excluded.name,
			title         = excluded.title,
			checksum      = excluded.checksum,
			tags          = excluded.tags,
			content       = excluded.content,
			link_count    = excluded.link_count,
			updated_at    = excluded.updated_at
	`, r.ID, r.CollectionID, r.Name, r.Path, r.Title, r.Checksum, string(tagsJSON), r.Content, r.LinkCount, r.UpdatedAt)
	if err != nil {
		return r, fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.ID, r.Path, r.Title, r.Content, r.Tags); err != nil {
		return r, err
	}
	if err := tx.Commit(); err != nil {
		return r, fmt.Errorf("index: commit: %w", err)
	}
	return r, nil
}

// MoveDocument changes the path and name of a document, keeping its ID.
func (db *DB) MoveDocument(id, newPath, newName string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`UPDATE documents SET path = ?, name = ?, updated_at = ? WHERE id = ?`,
		newPath, newName, time.Now().UTC(), id)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("index: move to %s: %w", newPath, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("index: move document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: document %s: %w", id, apperr.ErrNotFound)
	}
	ftsMove(tx, id, newPath)
	return tx.Commit()
}

// DeleteDocument removes the document at path and its FTS entry. It returns
// the ID of the removed document, or "" if nothing was indexed at path.
func (db *DB) DeleteDocument(path string) (string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	err = tx.QueryRow(`SELECT id FROM documents WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: lookup document: %w", err)
	}
	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("index: delete document: %w", err)
	}
	return id, tx.Commit()
}

// DocumentByID returns one document.
func (db *DB) DocumentByID(id string) (DocumentRow, error) {
	r, err := scanDocument(db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("index: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("index: document %s: %w", id, err)
	}
	return r, nil
}

// DocumentByPath returns the document stored at path.
func (db *DB) DocumentByPath(path string) (DocumentRow, error) {
	r, err := scanDocument(db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("index: document %s: %w", path, err)
	}
	return r, nil
}

// Documents returns every document ordered by collection position, then path.
func (db *DB) Documents() ([]DocumentRow, error) {
	return db.queryDocuments(`
		SELECT d.id, d.collection_id, d.name, d.path, d.title, d.checksum, d.tags, d.content, d.link_count, d.updated_at
		FROM documents d JOIN collections c ON c.id = d.collection_id
		ORDER BY c.position, d.path
	`)
}

// CollectionDocuments returns the documents of one collection ordered by path.
func (db *DB) CollectionDocuments(collectionID string) ([]DocumentRow, error) {
	return db.queryDocuments(`SELECT `+documentColumns+` FROM documents WHERE collection_id = ? ORDER BY path`, collectionID)
}

func (db *DB) queryDocuments(query string, args ...any) ([]DocumentRow, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	defer rows.Close()
	var out []DocumentRow
	for rows.Next() {
		r, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
