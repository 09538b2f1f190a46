// Package mutator applies link edits and rename cascades to stored documents.
package mutator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/wikilink"
)

// Store is the persistence boundary the mutator writes through.
type Store interface {
	Document(ctx context.Context, id string) (models.Document, error)
	SetContent(ctx context.Context, id, content string) error
	SetName(ctx context.Context, id, name string) error
}

// Options tunes cascade writes.
type Options struct {
	// Concurrency bounds parallel document writes. Values <= 0 mean 1.
	Concurrency int
	// WriteInterval is the minimum spacing between cascade writes. Zero
	// disables pacing.
	WriteInterval time.Duration
}

// Mutator serializes edits per document. Every write re-reads the document
// first, so edits are based on its latest stored content.
type Mutator struct {
	store   Store
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
	locks   *keyedMutex
}

// New creates a Mutator over store.
func New(store Store, opts Options, logger *slog.Logger) *Mutator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.WriteInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.WriteInterval), 1)
	}
	return &Mutator{
		store:   store,
		opts:    opts,
		limiter: limiter,
		logger:  logger,
		locks:   newKeyedMutex(),
	}
}

// Connect adds a link from source to target unless one is already present.
// It reports whether source was rewritten.
func (m *Mutator) Connect(ctx context.Context, sourceID, targetID string) (bool, error) {
	if sourceID == targetID {
		return false, fmt.Errorf("mutator: connect %s: %w", sourceID, apperr.ErrSelfLink)
	}
	target, err := m.store.Document(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("mutator: connect: target %s: %w", targetID, err)
	}
	changed, err := m.rewrite(ctx, sourceID, func(content string) (string, bool) {
		return wikilink.Connect(content, target.Name)
	})
	if err != nil {
		return false, fmt.Errorf("mutator: connect %s -> %s: %w", sourceID, targetID, err)
	}
	return changed, nil
}

// Disconnect removes every link from source to target.
func (m *Mutator) Disconnect(ctx context.Context, sourceID, targetID string) (bool, error) {
	target, err := m.store.Document(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("mutator: disconnect: target %s: %w", targetID, err)
	}
	return m.DisconnectName(ctx, sourceID, target.Name)
}

// DisconnectName removes every link to targetName from source. The target
// does not need to exist.
func (m *Mutator) DisconnectName(ctx context.Context, sourceID, targetName string) (bool, error) {
	changed, err := m.rewrite(ctx, sourceID, func(content string) (string, bool) {
		return wikilink.Disconnect(content, targetName)
	})
	if err != nil {
		return false, fmt.Errorf("mutator: disconnect %s -> %q: %w", sourceID, targetName, err)
	}
	return changed, nil
}

// RenameCascade sets the name of renamedID and rewrites links to oldName in
// every other document of docs. The rename itself must succeed before any
// reference is touched; after that every affected document is attempted.
//
// A non-nil report is returned whenever the rename succeeded. If some
// references could not be rewritten the error is a *CascadeError.
func (m *Mutator) RenameCascade(ctx context.Context, renamedID, oldName, newName string, docs []models.Document) (*CascadeReport, error) {
	err := m.locks.with(renamedID, func() error {
		return m.store.SetName(ctx, renamedID, newName)
	})
	if err != nil {
		return nil, fmt.Errorf("mutator: rename %s: %w", renamedID, err)
	}

	report := &CascadeReport{Renamed: renamedID}
	if wikilink.Base(oldName) == wikilink.Base(newName) {
		return report, nil
	}

	var ids []string
	for _, d := range docs {
		if d.ID != renamedID && wikilink.References(d.Content, oldName) {
			ids = append(ids, d.ID)
		}
	}
	updated, failed := m.rewriteAll(ctx, ids, func(content string) (string, bool) {
		return wikilink.Rename(content, oldName, newName)
	})
	report.Updated, report.Failed = updated, failed

	m.logger.Info("mutator: rename cascade",
		slog.String("id", renamedID),
		slog.String("from", oldName),
		slog.String("to", newName),
		slog.Int("updated", len(updated)),
		slog.Int("failed", len(failed)))
	if len(failed) > 0 {
		return report, &CascadeError{Op: "rename", Failures: failed}
	}
	return report, nil
}

// Unlink removes links to name from every document of docs except skipID.
// It is best-effort cleanup after a delete and attempts every document.
func (m *Mutator) Unlink(ctx context.Context, skipID, name string, docs []models.Document) (*CascadeReport, error) {
	var ids []string
	for _, d := range docs {
		if d.ID != skipID && wikilink.References(d.Content, name) {
			ids = append(ids, d.ID)
		}
	}
	updated, failed := m.rewriteAll(ctx, ids, func(content string) (string, bool) {
		return wikilink.Disconnect(content, name)
	})
	report := &CascadeReport{Updated: updated, Failed: failed}
	if len(failed) > 0 {
		return report, &CascadeError{Op: "unlink", Failures: failed}
	}
	return report, nil
}

// rewriteAll applies fn to every id with bounded parallelism. It never stops
// early; ids that vanished in the meantime are skipped.
func (m *Mutator) rewriteAll(ctx context.Context, ids []string, fn func(string) (string, bool)) ([]string, []CascadeFailure) {
	type result struct {
		changed bool
		err     error
	}
	results := make([]result, len(ids))

	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := m.limiter.Wait(ctx); err != nil {
				results[i].err = err
				return nil
			}
			changed, err := m.rewrite(ctx, id, fn)
			if errors.Is(err, apperr.ErrNotFound) {
				err = nil
			}
			results[i] = result{changed: changed, err: err}
			return nil
		})
	}
	_ = g.Wait()

	updated := []string{}
	var failed []CascadeFailure
	for i, r := range results {
		switch {
		case r.err != nil:
			m.logger.Warn("mutator: write failed", slog.String("id", ids[i]), slog.String("error", r.err.Error()))
			failed = append(failed, CascadeFailure{DocumentID: ids[i], Error: r.err.Error(), Err: r.err})
		case r.changed:
			updated = append(updated, ids[i])
		}
	}
	return updated, failed
}

// rewrite re-reads id under its lock, applies fn and persists the result if
// it changed. Nothing is written when fn reports no change.
func (m *Mutator) rewrite(ctx context.Context, id string, fn func(string) (string, bool)) (bool, error) {
	var changed bool
	err := m.locks.with(id, func() error {
		doc, err := m.store.Document(ctx, id)
		if err != nil {
			return err
		}
		next, ok := fn(doc.Content)
		if !ok {
			return nil
		}
		if err := m.store.SetContent(ctx, id, next); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// CascadeReport describes the outcome of a multi-document rewrite.
type CascadeReport struct {
	Renamed string           `json:"renamed,omitempty"`
	Updated []string         `json:"updated"`
	Failed  []CascadeFailure `json:"failed,omitempty"`
}

// CascadeFailure is one document that could not be rewritten.
type CascadeFailure struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
	Err        error  `json:"-"`
}

// CascadeError aggregates the failures of a partially applied cascade.
type CascadeError struct {
	Op       string
	Failures []CascadeFailure
}

func (e *CascadeError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.DocumentID
	}
	return fmt.Sprintf("mutator: %s: %d document(s) not updated: %s", e.Op, len(e.Failures), strings.Join(ids, ", "))
}

// Unwrap exposes the individual write errors to errors.Is and errors.As.
func (e *CascadeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
