package index

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "notegraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustCollection(t *testing.T, db *DB, name string) string {
	t.Helper()
	c, err := db.EnsureCollection(name)
	if err != nil {
		t.Fatalf("EnsureCollection(%s): %v", name, err)
	}
	return c.ID
}

func row(collectionID, path, name, content, checksum string) DocumentRow {
	var r DocumentRow
	r.CollectionID = collectionID
	r.Path = path
	r.Name = name
	r.Content = content
	r.Checksum = checksum
	return r
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM collections`).Scan(&count); err != nil {
		t.Fatalf("collections table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}

func TestEnsureCollection_IdempotentAndOrdered(t *testing.T) {
	db := testDB(t)
	a := mustCollection(t, db, "work")
	b := mustCollection(t, db, "home")
	if again := mustCollection(t, db, "work"); again != a {
		t.Errorf("second EnsureCollection returned %s, want %s", again, a)
	}

	cs, err := db.Collections()
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if len(cs) != 2 || cs[0].ID != a || cs[1].ID != b {
		t.Fatalf("collections = %+v", cs)
	}
	if cs[0].Position != 0 || cs[1].Position != 1 {
		t.Errorf("positions = %d, %d", cs[0].Position, cs[1].Position)
	}

	if _, err := db.CollectionByID("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertKeepsIDAcrossUpdates(t *testing.T) {
	db := testDB(t)
	c := mustCollection(t, db, "work")
	first, err := db.UpsertDocument(row(c, "work/up.md", "up.md", "old body", "1"))
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated ID")
	}
	second, err := db.UpsertDocument(row(c, "work/up.md", "up.md", "new body", "2"))
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id changed from %s to %s", first.ID, second.ID)
	}

	got, err := db.DocumentByID(first.ID)
	if err != nil {
		t.Fatalf("DocumentByID: %v", err)
	}
	if got.Content != "new body" || got.Checksum != "2" || got.Tags == nil {
		t.Errorf("document = %+v", got)
	}
	if cs, _ := db.GetChecksum("work/up.md"); cs != "2" {
		t.Errorf("checksum = %q, want 2", cs)
	}
}

func TestMoveDocument(t *testing.T) {
	db := testDB(t)
	c := mustCollection(t, db, "work")
	a, _ := db.UpsertDocument(row(c, "work/a.md", "a.md", "", "1"))
	_, _ = db.UpsertDocument(row(c, "work/b.md", "b.md", "", "2"))

	if err := db.MoveDocument(a.ID, "work/c.md", "c.md"); err != nil {
		t.Fatalf("MoveDocument: %v", err)
	}
	got, err := db.DocumentByPath("work/c.md")
	if err != nil || got.ID != a.ID || got.Name != "c.md" {
		t.Fatalf("moved document = %+v, %v", got, err)
	}
	if err := db.MoveDocument(a.ID, "work/b.md", "b.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
	if err := db.MoveDocument("missing", "work/z.md", "z.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	c := mustCollection(t, db, "work")
	d, _ := db.UpsertDocument(row(c, "work/del.md", "del.md", "body", "x"))

	id, err := db.DeleteDocument("work/del.md")
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if id != d.ID {
		t.Errorf("deleted id = %q, want %q", id, d.ID)
	}
	if cs, _ := db.GetChecksum("work/del.md"); cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	if id, _ := db.DeleteDocument("work/del.md"); id != "" {
		t.Errorf("second delete returned %q", id)
	}
	if _, err := db.DocumentByID(d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDocumentsOrderedByCollection(t *testing.T) {
	db := testDB(t)
	work := mustCollection(t, db, "work")
	home := mustCollection(t, db, "home")
	_, _ = db.UpsertDocument(row(home, "home/a.md", "a.md", "", "1"))
	_, _ = db.UpsertDocument(row(work, "work/z.md", "z.md", "", "2"))
	_, _ = db.UpsertDocument(row(work, "work/b.md", "b.md", "", "3"))

	docs, err := db.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	want := []string{"work/b.md", "work/z.md", "home/a.md"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %q, want %q", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	homeDocs, _ := db.CollectionDocuments(home)
	if len(homeDocs) != 1 || homeDocs[0].Path != "home/a.md" {
		t.Errorf("home documents = %+v", homeDocs)
	}
}

func TestDeleteCollection_OnlyWhenEmpty(t *testing.T) {
	db := testDB(t)
	c := mustCollection(t, db, "work")
	_, _ = db.UpsertDocument(row(c, "work/a.md", "a.md", "", "1"))

	_ = db.DeleteCollection(c)
	if _, err := db.CollectionByID(c); err != nil {
		t.Fatal("non-empty collection was deleted")
	}
	_, _ = db.DeleteDocument("work/a.md")
	_ = db.DeleteCollection(c)
	if _, err := db.CollectionByID(c); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	c := mustCollection(t, db, "work")
	r := row(c, "work/s.md", "s.md", "uniqueword appears here", "1")
	r.Title = "Search Me"
	d, _ := db.UpsertDocument(r)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "work/s.md" || results[0].ID != d.ID {
		t.Errorf("search results = %+v, want 1 hit for work/s.md", results)
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in, collection, name string
		ok                   bool
	}{
		{"work/Plan.md", "work", "Plan.md", true},
		{"work/sub/Deep.md", "work", "Deep.md", true},
		{`work\Win.md`, "work", "Win.md", true},
		{"Root.md", "", "", false},
		{"../escape/x.md", "", "", false},
	}
	for _, c := range cases {
		collection, name, ok := SplitPath(c.in)
		if collection != c.collection || name != c.name || ok != c.ok {
			t.Errorf("SplitPath(%q) = %q, %q, %v", c.in, collection, name, ok)
		}
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	vault := t.TempDir()
	store, err := storage.NewFS(vault)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("work/Plan.md", []byte("# Plan\n[[Meeting]] #todo"))
	_ = store.Write("work/Meeting.md", []byte("notes"))
	_ = store.Write("Loose.md", []byte("outside any collection"))
	_ = store.CreateCollection("empty")

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	cs, _ := db.Collections()
	if len(cs) != 2 {
		t.Fatalf("collections = %+v, want empty and work", cs)
	}
	plan, err := db.DocumentByPath("work/Plan.md")
	if err != nil {
		t.Fatalf("DocumentByPath: %v", err)
	}
	if plan.Title != "Plan" || plan.LinkCount != 1 || len(plan.Tags) != 1 {
		t.Errorf("plan = %+v", plan)
	}
	if _, err := db.DocumentByPath("Loose.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("root-level files must not be indexed")
	}

	_ = store.Delete("work/Meeting.md")
	_ = os.Remove(vault + "/empty")
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("work/Meeting.md"); cs != "" {
		t.Error("stale document not removed")
	}
	cs, _ = db.Collections()
	if len(cs) != 1 || cs[0].Name != "work" {
		t.Errorf("collections = %+v, want only work", cs)
	}
	again, _ := db.DocumentByPath("work/Plan.md")
	if again.ID != plan.ID {
		t.Error("unchanged document got a new ID")
	}
}
