// Package models defines the domain types for notegraph.
package models

import "time"

// Document is a Markdown note inside a collection.
type Document struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content"`
	Checksum     string    `json:"checksum"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Collection is a top-level vault directory grouping documents.
// Position orders collections; it doubles as the palette index in
// collection-colored graph views.
type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentMetadata is a lightweight representation returned by vault listings.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
