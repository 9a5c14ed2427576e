package cache

import (
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "d41d8cd98f00b204e9800998ecf8427e"},
		{"abc", "900150983cd24fb0d6963f7d28e17f72"},
	}
	for _, tt := range tests {
		if got := FileName(tt.key); got != tt.want {
			t.Errorf("FileName(%q) = %s, want %s", tt.key, got, tt.want)
		}
	}
}

func TestBlobStore(t *testing.T) {
	newStore := func(t *testing.T) *BlobStore {
		t.Helper()
		b, err := NewBlobStore(memfs.New())
		if err != nil {
			t.Fatalf("NewBlobStore() error = %v", err)
		}
		return b
	}

	t.Run("writes and reads", func(t *testing.T) {
		b := newStore(t)
		if err := b.Write("f1", []byte("payload")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := b.Read("f1")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(got) != "payload" {
			t.Errorf("Read() = %q, want payload", got)
		}
	})

	t.Run("overwrites", func(t *testing.T) {
		b := newStore(t)
		_ = b.Write("f1", []byte("one"))
		_ = b.Write("f1", []byte("two"))

		got, _ := b.Read("f1")
		if string(got) != "two" {
			t.Errorf("Read() = %q, want two", got)
		}
		files, _ := b.Files()
		if len(files) != 1 {
			t.Errorf("Files() = %v, want one file", files)
		}
	})

	t.Run("staged file is hidden until commit", func(t *testing.T) {
		b := newStore(t)
		_ = b.Write("f1", []byte("old"))

		tmpPath, err := b.Stage("f1", []byte("new"))
		if err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
		if got, _ := b.Read("f1"); string(got) != "old" {
			t.Errorf("Read() before Commit = %q, want old", got)
		}
		if err := b.Commit(tmpPath, "f1"); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if got, _ := b.Read("f1"); string(got) != "new" {
			t.Errorf("Read() after Commit = %q, want new", got)
		}
	})

	t.Run("discard leaves nothing behind", func(t *testing.T) {
		b := newStore(t)
		tmpPath, err := b.Stage("f1", []byte("x"))
		if err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
		b.Discard(tmpPath)
		files, _ := b.Files()
		if len(files) != 0 {
			t.Errorf("Files() = %v, want none", files)
		}
	})

	t.Run("read of missing file wraps not exist", func(t *testing.T) {
		b := newStore(t)
		_, err := b.Read("nope")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Read() error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("remove tolerates missing file", func(t *testing.T) {
		b := newStore(t)
		if err := b.Remove("nope"); err != nil {
			t.Errorf("Remove() error = %v, want nil", err)
		}
		_ = b.Write("f1", []byte("x"))
		if err := b.Remove("f1"); err != nil {
			t.Errorf("Remove() error = %v", err)
		}
		if _, err := b.Read("f1"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Read() after Remove error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("reset empties directory", func(t *testing.T) {
		b := newStore(t)
		_ = b.Write("f1", []byte("x"))
		_ = b.Write("f2", []byte("y"))

		if err := b.Reset(); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		files, err := b.Files()
		if err != nil {
			t.Fatalf("Files() error = %v", err)
		}
		if len(files) != 0 {
			t.Errorf("Files() = %v, want none", files)
		}
		if err := b.Write("f3", []byte("z")); err != nil {
			t.Errorf("Write() after Reset error = %v", err)
		}
	})
}
