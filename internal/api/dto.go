package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notegraph/internal/index"
	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/mutator"
	"github.com/starford/notegraph/internal/notes"
)

// CreateCollectionRequest is the request body for creating a collection.
type CreateCollectionRequest struct {
	Name string `json:"name" example:"projects" validate:"required"`
}

// Validate implements validation.Validatable.
func (r CreateCollectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Name    string `json:"name" example:"Todo" validate:"required"`
	Content string `json:"content" example:"# Todo\n[[Plan]]"`
}

// Validate implements validation.Validatable.
func (r CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// UpdateDocumentRequest is the request body for updating a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// Validate implements validation.Validatable.
func (r UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

// RenameDocumentRequest is the request body for renaming a document.
type RenameDocumentRequest struct {
	Name string `json:"name" example:"Roadmap" validate:"required"`
}

// Validate implements validation.Validatable.
func (r RenameDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// LinkRequest names the two ends of a link.
type LinkRequest struct {
	Source string `json:"source" example:"6f1c..." validate:"required"`
	Target string `json:"target" example:"9a2e..." validate:"required"`
}

// Validate implements validation.Validatable.
func (r LinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Target, validation.Required),
	)
}

// LinkResponse reports whether a link edit changed the source document.
type LinkResponse struct {
	Changed bool `json:"changed" example:"true"`
}

// CollectionListResponse wraps collection listings.
type CollectionListResponse struct {
	Collections []models.Collection `json:"collections" validate:"required"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = notes.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = notes.DocumentListItem

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
}

// BacklinksResponse lists the documents linking to a document.
type BacklinksResponse struct {
	Backlinks []notes.DocumentRef `json:"backlinks" validate:"required"`
}

// BrokenLinksResponse lists unresolved links of a collection.
type BrokenLinksResponse struct {
	BrokenLinks []linkgraph.BrokenLink `json:"broken_links" validate:"required"`
}

// CascadeReport is returned by rename and unlinking delete.
type CascadeReport = mutator.CascadeReport

// GraphResponse is a laid-out graph view.
type GraphResponse = linkgraph.View

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
