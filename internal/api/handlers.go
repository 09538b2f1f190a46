package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/notes"
)

// Handler holds API route handlers.
type Handler struct {
	svc *notes.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *notes.Service) *Handler {
	return &Handler{svc: svc}
}

// ListCollections handles GET /api/collections.
//
//	@Summary		List collections in display order
//	@Tags			collections
//	@Produce		json
//	@Success		200	{object}	CollectionListResponse
//	@Security		BearerAuth
//	@Router			/collections [get]
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Collections(r.Context())
	if err != nil {
		writeError(w, "list collections", err)
		return
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Collections: cs})
}

// CreateCollection handles POST /api/collections.
//
//	@Summary		Create a collection
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateCollectionRequest	true	"Collection to create"
//	@Success		201		{object}	models.Collection
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections [post]
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	c, err := h.svc.CreateCollection(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create collection", err, slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListDocuments handles GET /api/collections/{id}/documents.
//
//	@Summary		List the documents of a collection
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Collection ID"
//	@Success		200	{object}	DocumentListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{id}/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	items, err := h.svc.ListDocuments(r.Context(), id)
	if err != nil {
		writeError(w, "list documents", err, slog.String("collection", id))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items})
}

// CreateDocument handles POST /api/collections/{id}/documents.
//
//	@Summary		Create a document in a collection
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Collection ID"
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{id}/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), id, req.Name, req.Content)
	if err != nil {
		writeError(w, "create document", err, slog.String("collection", id), slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get a single document by ID
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, "get document", err, slog.String("id", id))
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument handles PUT /api/documents/{id}.
//
//	@Summary		Update a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Document ID"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateDocumentRequest	true	"Updated content"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	doc, err := h.svc.UpdateDocument(r.Context(), id, req.Content, ifMatch)
	if err != nil {
		writeError(w, "update document", err, slog.String("id", id))
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document
//	@Description	With unlink=true every link to the document is removed from other documents.
//	@Tags			documents
//	@Produce		json
//	@Param			id		path	string	true	"Document ID"
//	@Param			unlink	query	bool	false	"Remove links to the document"
//	@Success		204		"Document deleted"
//	@Success		200		{object}	CascadeReport
//	@Success		207		{object}	CascadeReport
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlink, _ := strconv.ParseBool(r.URL.Query().Get("unlink"))
	report, err := h.svc.DeleteDocument(r.Context(), id, unlink)
	if err == nil && report == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeCascade(w, "delete document", report, err, slog.String("id", id))
}

// RenameDocument handles POST /api/documents/{id}/rename.
//
//	@Summary		Rename a document and rewrite links to it
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Document ID"
//	@Param			body	body		RenameDocumentRequest	true	"New name"
//	@Success		200		{object}	CascadeReport
//	@Success		207		{object}	CascadeReport
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/rename [post]
func (h *Handler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RenameDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	report, err := h.svc.RenameDocument(r.Context(), id, req.Name)
	writeCascade(w, "rename document", report, err, slog.String("id", id), slog.String("name", req.Name))
}

// Backlinks handles GET /api/documents/{id}/backlinks.
//
//	@Summary		List documents linking to a document
//	@Tags			links
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	refs, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, "backlinks", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: refs})
}

// Connect handles POST /api/links.
//
//	@Summary		Add a link from source to target
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LinkRequest	true	"Link ends"
//	@Success		200		{object}	LinkResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [post]
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	changed, err := h.svc.Connect(r.Context(), req.Source, req.Target)
	if err != nil {
		writeError(w, "connect", err, slog.String("source", req.Source), slog.String("target", req.Target))
		return
	}
	writeJSON(w, http.StatusOK, LinkResponse{Changed: changed})
}

// Disconnect handles DELETE /api/links.
//
//	@Summary		Remove every link from source to target
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LinkRequest	true	"Link ends"
//	@Success		200		{object}	LinkResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [delete]
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	changed, err := h.svc.Disconnect(r.Context(), req.Source, req.Target)
	if err != nil {
		writeError(w, "disconnect", err, slog.String("source", req.Source), slog.String("target", req.Target))
		return
	}
	writeJSON(w, http.StatusOK, LinkResponse{Changed: changed})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the laid-out graph of a collection
//	@Tags			graph
//	@Produce		json
//	@Param			collection	query		string	true	"Focal collection ID"
//	@Param			scope		query		string	false	"View scope"	Enums(local, global)
//	@Success		200			{object}	GraphResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	collection := q.Get("collection")
	if collection == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'collection' is required"))
		return
	}
	scope, err := linkgraph.ParseScope(q.Get("scope"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	view, err := h.svc.Graph(r.Context(), collection, scope)
	if err != nil {
		writeError(w, "graph", err, slog.String("collection", collection))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// BrokenLinks handles GET /api/collections/{id}/broken-links.
//
//	@Summary		List links of a collection that resolve to no document
//	@Tags			links
//	@Produce		json
//	@Param			id	path		string	true	"Collection ID"
//	@Success		200	{object}	BrokenLinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{id}/broken-links [get]
func (h *Handler) BrokenLinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	broken, err := h.svc.BrokenLinks(r.Context(), id)
	if err != nil {
		writeError(w, "broken links", err, slog.String("collection", id))
		return
	}
	writeJSON(w, http.StatusOK, BrokenLinksResponse{BrokenLinks: broken})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
