package index

import "github.com/starford/notegraph/internal/models"

// DocumentIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	EnsureCollection(name string) (models.Collection, error)
	Collections() ([]models.Collection, error)
	CollectionByID(id string) (models.Collection, error)
	DeleteCollection(id string) error
	UpsertDocument(r DocumentRow) (DocumentRow, error)
	MoveDocument(id, newPath, newName string) error
	DeleteDocument(path string) (string, error)
	DocumentByID(id string) (DocumentRow, error)
	DocumentByPath(path string) (DocumentRow, error)
	Documents() ([]DocumentRow, error)
	CollectionDocuments(collectionID string) ([]DocumentRow, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
