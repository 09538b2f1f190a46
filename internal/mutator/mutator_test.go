package mutator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/wikilink"
)

var errDisk = errors.New("disk full")

type memStore struct {
	mu     sync.Mutex
	docs   map[string]models.Document
	failOn map[string]bool
	writes int
}

func newMemStore(docs ...models.Document) *memStore {
	s := &memStore{docs: make(map[string]models.Document), failOn: make(map[string]bool)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *memStore) Document(_ context.Context, id string) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return models.Document{}, apperr.ErrNotFound
	}
	return d, nil
}

func (s *memStore) SetContent(_ context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[id] {
		return errDisk
	}
	d := s.docs[id]
	d.Content = content
	s.docs[id] = d
	s.writes++
	return nil
}

func (s *memStore) SetName(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[id] {
		return errDisk
	}
	d, ok := s.docs[id]
	if !ok {
		return apperr.ErrNotFound
	}
	d.Name = name
	s.docs[id] = d
	return nil
}

func (s *memStore) all() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b models.Document) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

func (s *memStore) content(id string) string {
	d, _ := s.Document(context.Background(), id)
	return d.Content
}

func doc(id, name, content string) models.Document {
	return models.Document{ID: id, CollectionID: "c", Name: name, Content: content}
}

func TestConnect_RoundTrip(t *testing.T) {
	store := newMemStore(doc("a", "A.md", "body"), doc("b", "Target.md", ""))
	m := New(store, Options{}, nil)
	ctx := context.Background()

	changed, err := m.Connect(ctx, "a", "b")
	if err != nil || !changed {
		t.Fatalf("Connect = %v, %v", changed, err)
	}
	if !slices.Contains(wikilink.Targets(store.content("a")), "Target") {
		t.Errorf("content = %q, want a link to Target", store.content("a"))
	}

	changed, err = m.Connect(ctx, "a", "b")
	if err != nil || changed {
		t.Fatalf("second Connect = %v, %v; want no-op", changed, err)
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
}

func TestConnect_SelfLink(t *testing.T) {
	m := New(newMemStore(doc("a", "A.md", "")), Options{}, nil)
	if _, err := m.Connect(context.Background(), "a", "a"); !errors.Is(err, apperr.ErrSelfLink) {
		t.Errorf("err = %v, want ErrSelfLink", err)
	}
}

func TestConnect_MissingTarget(t *testing.T) {
	m := New(newMemStore(doc("a", "A.md", "")), Options{}, nil)
	if _, err := m.Connect(context.Background(), "a", "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestConnect_PersistFailureLeavesContent(t *testing.T) {
	store := newMemStore(doc("a", "A.md", "body"), doc("b", "B.md", ""))
	store.failOn["a"] = true
	m := New(store, Options{}, nil)
	if _, err := m.Connect(context.Background(), "a", "b"); !errors.Is(err, errDisk) {
		t.Fatalf("err = %v, want disk error", err)
	}
	if store.content("a") != "body" {
		t.Errorf("content = %q, want untouched", store.content("a"))
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	store := newMemStore(
		doc("a", "A.md", "Intro mentions [[B]].\n\nRelated: [[B]]"),
		doc("b", "B.md", ""),
	)
	m := New(store, Options{}, nil)
	ctx := context.Background()

	changed, err := m.Disconnect(ctx, "a", "b")
	if err != nil || !changed {
		t.Fatalf("Disconnect = %v, %v", changed, err)
	}
	if got := store.content("a"); got != "Intro mentions B." {
		t.Errorf("content = %q", got)
	}
	changed, err = m.Disconnect(ctx, "a", "b")
	if err != nil || changed {
		t.Errorf("second Disconnect = %v, %v; want no-op", changed, err)
	}
}

func TestDisconnectName_TargetGone(t *testing.T) {
	store := newMemStore(doc("a", "A.md", "- [[Gone]]\nkeep"))
	m := New(store, Options{}, nil)
	if _, err := m.DisconnectName(context.Background(), "a", "Gone.md"); err != nil {
		t.Fatal(err)
	}
	if got := store.content("a"); got != "keep" {
		t.Errorf("content = %q", got)
	}
}

func TestRenameCascade_RewritesEveryReference(t *testing.T) {
	store := newMemStore(
		doc("old", "Old.md", "self [[Old]]"),
		doc("a", "A.md", "[[Old]] and [[Old.md]]"),
		doc("b", "B.md", "nothing here"),
		doc("c", "C.md", "see [[Old]]"),
		doc("d", "D.md", "[[Older]] stays"),
	)
	m := New(store, Options{Concurrency: 3}, nil)
	report, err := m.RenameCascade(context.Background(), "old", "Old.md", "New.md", store.all())
	if err != nil {
		t.Fatal(err)
	}
	if report.Renamed != "old" {
		t.Errorf("renamed = %q", report.Renamed)
	}
	if !slices.Equal(report.Updated, []string{"a", "c"}) {
		t.Errorf("updated = %q, want [a c]", report.Updated)
	}

	if d, _ := store.Document(context.Background(), "old"); d.Name != "New.md" {
		t.Errorf("name = %q", d.Name)
	}
	if got := store.content("a"); got != "[[New]] and [[New]]" {
		t.Errorf("a = %q", got)
	}
	if got := store.content("d"); got != "[[Older]] stays" {
		t.Errorf("d = %q", got)
	}
	if got := store.content("old"); got != "self [[Old]]" {
		t.Errorf("renamed document content touched: %q", got)
	}
	for _, d := range store.all() {
		if d.ID == "old" {
			continue
		}
		if slices.Contains(wikilink.Targets(d.Content), "Old") {
			t.Errorf("%s still links to Old", d.ID)
		}
	}
}

func TestRenameCascade_PartialFailure(t *testing.T) {
	store := newMemStore(
		doc("old", "Old.md", ""),
		doc("a", "A.md", "[[Old]]"),
		doc("b", "B.md", "[[Old]]"),
		doc("c", "C.md", "[[Old]]"),
	)
	store.failOn["b"] = true
	m := New(store, Options{Concurrency: 2}, nil)

	report, err := m.RenameCascade(context.Background(), "old", "Old.md", "New.md", store.all())
	var cerr *CascadeError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *CascadeError", err)
	}
	if !errors.Is(err, errDisk) {
		t.Error("cascade error should wrap the write error")
	}
	if report == nil {
		t.Fatal("report must be returned when the rename succeeded")
	}
	if !slices.Equal(report.Updated, []string{"a", "c"}) {
		t.Errorf("updated = %q; every document must be attempted", report.Updated)
	}
	if len(report.Failed) != 1 || report.Failed[0].DocumentID != "b" {
		t.Errorf("failed = %+v", report.Failed)
	}
	if d, _ := store.Document(context.Background(), "old"); d.Name != "New.md" {
		t.Error("rename should stand despite cascade failures")
	}
}

func TestRenameCascade_RenameFailureAborts(t *testing.T) {
	store := newMemStore(doc("old", "Old.md", ""), doc("a", "A.md", "[[Old]]"))
	store.failOn["old"] = true
	m := New(store, Options{}, nil)

	report, err := m.RenameCascade(context.Background(), "old", "Old.md", "New.md", store.all())
	if !errors.Is(err, errDisk) || report != nil {
		t.Fatalf("RenameCascade = %+v, %v", report, err)
	}
	if store.content("a") != "[[Old]]" {
		t.Error("references rewritten although the rename failed")
	}
}

func TestRenameCascade_UsesLatestContent(t *testing.T) {
	store := newMemStore(doc("old", "Old.md", ""), doc("a", "A.md", "[[Old]]"))
	stale := store.all()
	// edited after the caller took its snapshot
	_ = store.SetContent(context.Background(), "a", "fresh [[Old]] text")

	m := New(store, Options{}, nil)
	if _, err := m.RenameCascade(context.Background(), "old", "Old.md", "New.md", stale); err != nil {
		t.Fatal(err)
	}
	if got := store.content("a"); got != "fresh [[New]] text" {
		t.Errorf("a = %q, want rewrite of the latest content", got)
	}
}

func TestRenameCascade_BackToBack(t *testing.T) {
	var docs []models.Document
	docs = append(docs, doc("x", "X.md", ""), doc("y", "Y.md", ""))
	for i := range 10 {
		docs = append(docs, doc(fmt.Sprintf("d%d", i), fmt.Sprintf("D%d.md", i), "[[X]] [[Y]]"))
	}
	store := newMemStore(docs...)
	m := New(store, Options{Concurrency: 4}, nil)
	ctx := context.Background()
	snapshot := store.all()

	var wg sync.WaitGroup
	for _, r := range [][3]string{{"x", "X.md", "X2.md"}, {"y", "Y.md", "Y2.md"}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.RenameCascade(ctx, r[0], r[1], r[2], snapshot); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	for i := range 10 {
		if got := store.content(fmt.Sprintf("d%d", i)); got != "[[X2]] [[Y2]]" {
			t.Errorf("d%d = %q, a cascade overwrote the other", i, got)
		}
	}
	if m.locks.size() != 0 {
		t.Errorf("locks leaked: %d", m.locks.size())
	}
}

func TestUnlink(t *testing.T) {
	store := newMemStore(
		doc("gone", "Gone.md", ""),
		doc("a", "A.md", "text\nRelated: [[Gone]]"),
		doc("b", "B.md", "untouched"),
	)
	m := New(store, Options{WriteInterval: time.Millisecond}, nil)
	report, err := m.Unlink(context.Background(), "gone", "Gone.md", store.all())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(report.Updated, []string{"a"}) {
		t.Errorf("updated = %q", report.Updated)
	}
	if got := store.content("a"); got != "text" {
		t.Errorf("a = %q", got)
	}
}

func TestCascadeError_Message(t *testing.T) {
	err := &CascadeError{Op: "rename", Failures: []CascadeFailure{{DocumentID: "a", Err: errDisk}, {DocumentID: "b"}}}
	if got := err.Error(); got != "mutator: rename: 2 document(s) not updated: a, b" {
		t.Errorf("Error() = %q", got)
	}
	if len(err.Unwrap()) != 1 {
		t.Errorf("unwrap = %v", err.Unwrap())
	}
}
