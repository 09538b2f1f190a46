// Package storage defines the vault file-system abstraction. Every top-level
// directory of the vault is a collection; documents are the .md files below it.
package storage

import "github.com/starford/notegraph/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// Collections returns the names of the top-level directories, sorted.
	Collections() ([]string, error)
	// CreateCollection creates the top-level directory name.
	CreateCollection(name string) error
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
}
