package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/parser"
	"github.com/starford/notegraph/internal/storage"
)

// ErrOutsideCollection is returned for vault files that do not live inside a
// top-level collection directory.
var ErrOutsideCollection = errors.New("index: file is not inside a collection")

// SplitPath returns the collection and document name of a vault-relative
// path: "work/sub/Plan.md" belongs to "work" and is named "Plan.md".
func SplitPath(p string) (collection, name string, ok bool) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	i := strings.IndexByte(p, '/')
	if i <= 0 || strings.HasPrefix(p, "../") {
		return "", "", false
	}
	return p[:i], path.Base(p), true
}

// Sync walks the vault and brings the index up to date:
//   - every top-level directory becomes a collection
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//   - collections whose directory is gone and that hold no documents are dropped
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	names, err := store.Collections()
	if err != nil {
		return err
	}
	onDisk := make(map[string]struct{}, len(names))
	for _, n := range names {
		onDisk[n] = struct{}{}
		if _, err := db.EnsureCollection(n); err != nil {
			return err
		}
	}

	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if _, _, ok := SplitPath(m.Path); !ok {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if _, err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	collections, err := db.Collections()
	if err != nil {
		return err
	}
	for _, c := range collections {
		if _, ok := onDisk[c.Name]; ok {
			continue
		}
		if err := db.DeleteCollection(c.ID); err != nil {
			logger.Warn("sync: prune collection failed", slog.String("collection", c.Name), slog.String("error", err.Error()))
		}
	}

	return nil
}

// IndexFile parses data and upserts it into the DB, creating the owning
// collection on first use.
func IndexFile(db *DB, p string, data []byte) (DocumentRow, error) {
	collection, name, ok := SplitPath(p)
	if !ok {
		return DocumentRow{}, fmt.Errorf("%w: %s", ErrOutsideCollection, p)
	}
	res, err := parser.Parse(data)
	if err != nil {
		return DocumentRow{}, err
	}
	c, err := db.EnsureCollection(collection)
	if err != nil {
		return DocumentRow{}, err
	}

	row := DocumentRow{
		Tags:      res.Tags,
		LinkCount: len(res.Links),
	}
	row.CollectionID = c.ID
	row.Name = name
	row.Path = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	row.Title = res.Title
	row.Content = string(data)
	row.Checksum = checksum.Sum(data)
	return db.UpsertDocument(row)
}
