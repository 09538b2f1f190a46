// Package notes coordinates the vault, the index, the graph pipeline and the
// link mutator behind one service used by the HTTP API, the MCP server and
// the CLI.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/index"
	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/mutator"
	"github.com/starford/notegraph/internal/parser"
	"github.com/starford/notegraph/internal/storage"
	"github.com/starford/notegraph/internal/wikilink"
)

// Document change kinds passed to a Notifier.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
	KindRenamed = "renamed"
)

// Notifier receives document change notifications.
type Notifier interface {
	DocumentChanged(kind, id, path string)
}

// Options configures a Service.
type Options struct {
	Graph     linkgraph.Options
	CacheSize int
	Cascade   mutator.Options
	Notifier  Notifier
	Logger    *slog.Logger
}

// Service coordinates storage, index and graph operations.
type Service struct {
	store   storage.Provider
	db      *index.DB
	views   *linkgraph.Cache
	mutator *mutator.Mutator
	notify  Notifier
	logger  *slog.Logger
}

// Verify *Service satisfies mutator.Store at compile time.
var _ mutator.Store = (*Service)(nil)

// NewService creates a new document service.
func NewService(store storage.Provider, db *index.DB, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		db:     db,
		views:  linkgraph.NewCache(linkgraph.NewBuilder(opts.Graph), opts.CacheSize),
		notify: opts.Notifier,
		logger: logger,
	}
	s.mutator = mutator.New(s, opts.Cascade, logger)
	return s
}

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	models.Document
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Links       []string       `json:"links"`
	Backlinks   []DocumentRef  `json:"backlinks"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Title        string    `json:"title"`
	Checksum     string    `json:"checksum"`
	Tags         []string  `json:"tags"`
	LinkCount    int       `json:"link_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentRef identifies a document in link listings.
type DocumentRef struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	Name         string `json:"name"`
}

// Collections returns every collection in display order.
func (s *Service) Collections(_ context.Context) ([]models.Collection, error) {
	cs, err := s.db.Collections()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(cs), nil
}

// CreateCollection creates a collection directory and registers it.
func (s *Service) CreateCollection(_ context.Context, name string) (models.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return models.Collection{}, fmt.Errorf("notes: collection %q: %w", name, apperr.ErrInvalidName)
	}
	if err := s.store.CreateCollection(name); err != nil {
		return models.Collection{}, err
	}
	return s.db.EnsureCollection(name)
}

// ListDocuments returns the documents of one collection.
func (s *Service) ListDocuments(_ context.Context, collectionID string) ([]DocumentListItem, error) {
	if _, err := s.db.CollectionByID(collectionID); err != nil {
		return nil, err
	}
	rows, err := s.db.CollectionDocuments(collectionID)
	if err != nil {
		return nil, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			ID:           r.ID,
			CollectionID: r.CollectionID,
			Name:         r.Name,
			Path:         r.Path,
			Title:        r.Title,
			Checksum:     r.Checksum,
			Tags:         nonNilSlice(r.Tags),
			LinkCount:    r.LinkCount,
			UpdatedAt:    r.UpdatedAt,
		}
	}
	return items, nil
}

// GetDocument reads a document from storage, parses it, and enriches it with
// backlinks.
func (s *Service) GetDocument(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, doc)
}

// CreateDocument writes a new document into a collection and indexes it.
func (s *Service) CreateDocument(ctx context.Context, collectionID, name, content string) (*DocumentDetail, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	c, err := s.db.CollectionByID(collectionID)
	if err != nil {
		return nil, err
	}
	p := path.Join(c.Name, name)
	if _, err := s.store.Read(p); err == nil {
		return nil, fmt.Errorf("notes: create %s: %w", p, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(p, []byte(content)); err != nil {
		return nil, err
	}
	row, err := index.IndexFile(s.db, p, []byte(content))
	if err != nil {
		return nil, err
	}
	s.changed(KindCreated, row.ID, row.Path)
	return s.GetDocument(ctx, row.ID)
}

// UpdateDocument writes updated content with optimistic concurrency: a
// non-empty ifMatch must equal the checksum of the stored content.
func (s *Service) UpdateDocument(ctx context.Context, id, content, ifMatch string) (*DocumentDetail, error) {
	current, err := s.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum([]byte(current.Content)) {
		return nil, fmt.Errorf("notes: update %s: %w", id, apperr.ErrConflict)
	}
	if err := s.SetContent(ctx, id, content); err != nil {
		return nil, err
	}
	return s.GetDocument(ctx, id)
}

// DeleteDocument removes a document from storage and index. With unlink set,
// links to it are removed from every other document unless another document
// still answers to the same name. The report is nil without unlink.
func (s *Service) DeleteDocument(ctx context.Context, id string, unlink bool) (*mutator.CascadeReport, error) {
	row, err := s.db.DocumentByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(row.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if _, err := s.db.DeleteDocument(row.Path); err != nil {
		return nil, err
	}
	s.changed(KindDeleted, row.ID, row.Path)
	if !unlink {
		return nil, nil
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := linkgraph.NewResolver(snap.Documents).Resolve(wikilink.Base(row.Name), ""); ok {
		return &mutator.CascadeReport{Updated: []string{}}, nil
	}
	return s.mutator.Unlink(ctx, id, row.Name, snap.Documents)
}

// RenameDocument renames a document inside its collection and rewrites the
// links of the collection's other documents. On partial failure the report
// is returned together with a *mutator.CascadeError.
func (s *Service) RenameDocument(ctx context.Context, id, newName string) (*mutator.CascadeReport, error) {
	newName, err := NormalizeName(newName)
	if err != nil {
		return nil, err
	}
	row, err := s.db.DocumentByID(id)
	if err != nil {
		return nil, err
	}
	if row.Name == newName {
		return &mutator.CascadeReport{Renamed: id, Updated: []string{}}, nil
	}
	rows, err := s.db.CollectionDocuments(row.CollectionID)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, len(rows))
	for i, r := range rows {
		docs[i] = r.Document
	}
	report, err := s.mutator.RenameCascade(ctx, id, row.Name, newName, docs)
	if report != nil && report.Updated == nil {
		report.Updated = []string{}
	}
	return report, err
}

// Connect adds a link from source to target.
func (s *Service) Connect(ctx context.Context, sourceID, targetID string) (bool, error) {
	return s.mutator.Connect(ctx, sourceID, targetID)
}

// Disconnect removes every link from source to target.
func (s *Service) Disconnect(ctx context.Context, sourceID, targetID string) (bool, error) {
	return s.mutator.Disconnect(ctx, sourceID, targetID)
}

// Backlinks returns the documents linking to id, across all collections.
func (s *Service) Backlinks(ctx context.Context, id string) ([]DocumentRef, error) {
	if _, err := s.db.DocumentByID(id); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	adj := linkgraph.BuildAdjacency(snap.Documents)
	return refs(adj, adj.Incoming(id)), nil
}

// Snapshot returns the current document universe from the index.
func (s *Service) Snapshot(_ context.Context) (linkgraph.Snapshot, error) {
	cs, err := s.db.Collections()
	if err != nil {
		return linkgraph.Snapshot{}, err
	}
	rows, err := s.db.Documents()
	if err != nil {
		return linkgraph.Snapshot{}, err
	}
	docs := make([]models.Document, len(rows))
	for i, r := range rows {
		docs[i] = r.Document
	}
	return linkgraph.Snapshot{Collections: cs, Documents: docs}, nil
}

// Graph returns the view of a collection in the given scope.
func (s *Service) Graph(ctx context.Context, collectionID string, scope linkgraph.Scope) (*linkgraph.View, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.views.View(snap, linkgraph.Request{CollectionID: collectionID, Scope: scope})
}

// BrokenLinks lists link names of a collection that resolve to no document.
func (s *Service) BrokenLinks(ctx context.Context, collectionID string) ([]linkgraph.BrokenLink, error) {
	if _, err := s.db.CollectionByID(collectionID); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(linkgraph.BrokenLinks(snap, collectionID)), nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Stats summarizes the document universe.
type Stats struct {
	Collections int      `json:"collections"`
	Documents   int      `json:"documents"`
	Links       int      `json:"links"`
	BrokenLinks int      `json:"broken_links"`
	Bytes       int64    `json:"bytes"`
	Ambiguous   []string `json:"ambiguous"`
}

// Stats computes counts over the current snapshot.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}
	adj := linkgraph.BuildAdjacency(snap.Documents)
	st := Stats{
		Collections: len(snap.Collections),
		Documents:   len(snap.Documents),
		Links:       adj.EdgeCount(),
		Ambiguous:   nonNilSlice(adj.Resolver().Ambiguous()),
	}
	for _, d := range snap.Documents {
		st.Bytes += int64(len(d.Content))
		st.BrokenLinks += len(adj.Unresolved(d.ID))
	}
	return st, nil
}

// Document returns the document with its latest stored content.
func (s *Service) Document(_ context.Context, id string) (models.Document, error) {
	row, err := s.db.DocumentByID(id)
	if err != nil {
		return models.Document{}, err
	}
	data, err := s.store.Read(row.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Document{}, fmt.Errorf("notes: document %s: %w", id, apperr.ErrNotFound)
		}
		return models.Document{}, err
	}
	doc := row.Document
	doc.Content = string(data)
	doc.Checksum = checksum.Sum(data)
	return doc, nil
}

// SetContent persists new content for id and re-indexes it.
func (s *Service) SetContent(_ context.Context, id, content string) error {
	row, err := s.db.DocumentByID(id)
	if err != nil {
		return err
	}
	if err := s.store.Write(row.Path, []byte(content)); err != nil {
		return err
	}
	if _, err := index.IndexFile(s.db, row.Path, []byte(content)); err != nil {
		return err
	}
	s.changed(KindUpdated, id, row.Path)
	return nil
}

// SetName renames the file of id within its directory. The index is updated
// first so that watcher events for the new path find the existing ID.
func (s *Service) SetName(_ context.Context, id, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	row, err := s.db.DocumentByID(id)
	if err != nil {
		return err
	}
	newPath := path.Join(path.Dir(row.Path), name)
	if _, err := s.store.Read(newPath); err == nil {
		return fmt.Errorf("notes: rename to %s: %w", newPath, apperr.ErrAlreadyExists)
	}
	if err := s.db.MoveDocument(id, newPath, name); err != nil {
		return err
	}
	if err := s.store.Move(row.Path, newPath); err != nil {
		if revertErr := s.db.MoveDocument(id, row.Path, row.Name); revertErr != nil {
			s.logger.Error("notes: rename revert failed", slog.String("id", id), slog.String("error", revertErr.Error()))
		}
		return err
	}
	s.changed(KindRenamed, id, newPath)
	return nil
}

// NormalizeName validates a document name and appends the .md suffix when
// missing. Names cannot contain path separators or link brackets.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case wikilink.Base(name) == "",
		strings.HasPrefix(name, "."),
		strings.ContainsAny(name, `/\`),
		strings.Contains(name, "[["),
		strings.Contains(name, "]]"):
		return "", fmt.Errorf("notes: name %q: %w", name, apperr.ErrInvalidName)
	}
	if !strings.HasSuffix(name, wikilink.Ext) {
		name += wikilink.Ext
	}
	return name, nil
}

func (s *Service) buildDetail(ctx context.Context, doc models.Document) (*DocumentDetail, error) {
	res, err := parser.Parse([]byte(doc.Content))
	if err != nil {
		return nil, err
	}
	if doc.Title == "" {
		doc.Title = res.Title
	}
	backlinks, err := s.Backlinks(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		Document:    doc,
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Links:       nonNilSlice(res.Links),
		Backlinks:   backlinks,
	}, nil
}

func (s *Service) changed(kind, id, p string) {
	if s.notify != nil {
		s.notify.DocumentChanged(kind, id, p)
	}
}

func refs(adj *linkgraph.Adjacency, ids []string) []DocumentRef {
	out := make([]DocumentRef, len(ids))
	for i, id := range ids {
		out[i] = DocumentRef{ID: id, CollectionID: adj.CollectionOf(id), Name: adj.Name(id)}
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
