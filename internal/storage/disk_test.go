package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "vectors.db")

	got, err := DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("missing database: got %d, want 0", got)
	}

	if err := os.WriteFile(db, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db+"-wal", []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unrelated"), []byte("zzzzzzzz"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("db + wal: got %d bytes, want 8", got)
	}
}

func TestDiskUsageBytes_EmptyPath(t *testing.T) {
	got, err := DiskUsageBytes("")
	if err != nil || got != 0 {
		t.Errorf("got %d, %v", got, err)
	}
}
