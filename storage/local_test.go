package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"babylon/recordstore/storage"
)

func TestLocalStore_PutListDelete(t *testing.T) {
	store := storage.NewLocalStore(t.TempDir())

	for _, id := range []string{"b", "a"} {
		location, err := store.Put("customer_info", id, []byte(`{"id":"`+id+`"}`))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !strings.HasSuffix(string(location), "/customer_info/"+id+".json") {
			t.Errorf("unexpected location %q", location)
		}
	}

	blobs, err := store.List("customer_info")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(blobs) != 2 || blobs[0].ID != "a" || blobs[1].ID != "b" {
		t.Errorf("expected blobs sorted by id, got %+v", blobs)
	}

	existed, err := store.Delete("customer_info", "a")
	if err != nil || !existed {
		t.Errorf("expected delete of existing blob, got %v, %v", existed, err)
	}
	existed, err = store.Delete("customer_info", "a")
	if err != nil || existed {
		t.Errorf("expected missing blob to report false, got %v, %v", existed, err)
	}
}

func TestLocalStore_ListIgnoresTempAndMissing(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewLocalStore(dir)

	blobs, err := store.List("nothing_here")
	if err != nil || blobs != nil {
		t.Fatalf("expected nil, nil for a missing collection, got %v, %v", blobs, err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "customer_info"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "customer_info", "x.json.tmp"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	blobs, err = store.List("customer_info")
	if err != nil || len(blobs) != 0 {
		t.Errorf("expected temp files ignored, got %v, %v", blobs, err)
	}

	collections, err := store.Collections()
	if err != nil || len(collections) != 1 || collections[0] != "customer_info" {
		t.Errorf("unexpected collections %v, %v", collections, err)
	}
}
