package cache

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), CatalogFile))
	if err != nil {
		t.Fatalf("OpenCatalog() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenCatalog(t *testing.T) {
	t.Run("rejects empty path", func(t *testing.T) {
		if _, err := OpenCatalog(""); err == nil {
			t.Error("OpenCatalog(\"\") error = nil, want error")
		}
	})

	t.Run("uses write-ahead logging", func(t *testing.T) {
		c := openTestCatalog(t)
		var mode string
		if err := c.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("journal_mode query error = %v", err)
		}
		if mode != "wal" {
			t.Errorf("journal_mode = %s, want wal", mode)
		}
	})

	t.Run("reopens existing rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), CatalogFile)
		c, err := OpenCatalog(path)
		if err != nil {
			t.Fatalf("OpenCatalog() error = %v", err)
		}
		_ = c.Upsert(Record{Key: "k", Inline: []byte("v"), Size: 1, LastAccess: 1})
		_ = c.Close()

		c, err = OpenCatalog(path)
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer c.Close()
		if ok, _ := c.Exists("k"); !ok {
			t.Error("row lost across reopen")
		}
	})
}

func TestCatalogUpsertLookup(t *testing.T) {
	c := openTestCatalog(t)

	t.Run("inline record", func(t *testing.T) {
		if err := c.Upsert(Record{Key: "a", Inline: []byte("xyz"), Size: 3, LastAccess: 10}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		r, ok, err := c.Lookup("a")
		if err != nil || !ok {
			t.Fatalf("Lookup() = %v, %v", ok, err)
		}
		if !r.IsInline() || string(r.Inline) != "xyz" || r.Size != 3 || r.LastAccess != 10 {
			t.Errorf("Lookup() = %+v", r)
		}
	})

	t.Run("file record replaces inline", func(t *testing.T) {
		if err := c.Upsert(Record{Key: "a", Filename: "f", Size: 99, LastAccess: 11}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		r, _, _ := c.Lookup("a")
		if r.IsInline() || r.Filename != "f" || r.Inline != nil {
			t.Errorf("Lookup() = %+v, want file record", r)
		}

		var inlineNull bool
		_ = c.db.QueryRow("SELECT inline_data IS NULL FROM detailed WHERE key = ?", "a").Scan(&inlineNull)
		if !inlineNull {
			t.Error("inline_data is not NULL for a file record")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := c.Lookup("missing")
		if ok || err != nil {
			t.Errorf("Lookup() = %v, %v, want false, nil", ok, err)
		}
		name, has, err := c.Filename("missing")
		if name != "" || has || err != nil {
			t.Errorf("Filename() = %q, %v, %v", name, has, err)
		}
	})
}

func TestCatalogOrdering(t *testing.T) {
	c := openTestCatalog(t)
	for i, k := range []string{"c", "a", "d", "b"} {
		_ = c.Upsert(Record{Key: k, Inline: []byte(k), Size: int64(i + 1), LastAccess: int64(100 + i)})
	}

	t.Run("keys most recent first", func(t *testing.T) {
		keys, err := c.Keys()
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		if diff := cmp.Diff([]string{"b", "d", "a", "c"}, keys); diff != "" {
			t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("oldest batch", func(t *testing.T) {
		batch, err := c.Oldest(2)
		if err != nil {
			t.Fatalf("Oldest() error = %v", err)
		}
		var keys []string
		for _, r := range batch {
			keys = append(keys, r.Key)
		}
		if diff := cmp.Diff([]string{"c", "a"}, keys); diff != "" {
			t.Errorf("Oldest() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("touch reorders", func(t *testing.T) {
		_ = c.Touch("c", 500)
		batch, _ := c.Oldest(1)
		if len(batch) != 1 || batch[0].Key != "a" {
			t.Errorf("Oldest(1) = %+v, want a", batch)
		}
	})

	t.Run("aggregates", func(t *testing.T) {
		n, _ := c.Count()
		size, _ := c.TotalSize()
		if n != 4 || size != 10 {
			t.Errorf("Count, TotalSize = %d, %d, want 4, 10", n, size)
		}
	})
}

func TestCatalogExpiry(t *testing.T) {
	c := openTestCatalog(t)
	_ = c.Upsert(Record{Key: "old-file", Filename: "f1", Size: 1, LastAccess: 10})
	_ = c.Upsert(Record{Key: "old-inline", Inline: []byte("x"), Size: 1, LastAccess: 20})
	_ = c.Upsert(Record{Key: "fresh", Filename: "f2", Size: 1, LastAccess: 100})

	files, err := c.ExpiredFiles(50)
	if err != nil {
		t.Fatalf("ExpiredFiles() error = %v", err)
	}
	if diff := cmp.Diff([]string{"f1"}, files); diff != "" {
		t.Errorf("ExpiredFiles() mismatch (-want +got):\n%s", diff)
	}

	n, err := c.DeleteExpired(50)
	if err != nil || n != 2 {
		t.Errorf("DeleteExpired() = %d, %v, want 2, nil", n, err)
	}
	if ok, _ := c.Exists("fresh"); !ok {
		t.Error("fresh row removed")
	}
	if err := c.Checkpoint(); err != nil {
		t.Errorf("Checkpoint() error = %v", err)
	}
}

func TestCatalogDelete(t *testing.T) {
	c := openTestCatalog(t)
	_ = c.Upsert(Record{Key: "a", Inline: []byte("x"), Size: 1})
	_ = c.Upsert(Record{Key: "b", Inline: []byte("y"), Size: 1})

	if removed, _ := c.Delete("a"); !removed {
		t.Error("Delete(a) = false, want true")
	}
	if removed, _ := c.Delete("a"); removed {
		t.Error("second Delete(a) = true, want false")
	}
	n, err := c.DeleteAll()
	if err != nil || n != 1 {
		t.Errorf("DeleteAll() = %d, %v, want 1, nil", n, err)
	}
}
