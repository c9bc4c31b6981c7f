package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"babylon/recordstore/repository"
	"babylon/recordstore/storage"
)

// Mock for BlobStore interface.
type mockBlobStore struct {
	putFunc    func(ctx context.Context, collection, id string, payload any) (storage.Location, error)
	listFunc   func(ctx context.Context, collection string) ([]storage.Blob, error)
	deleteFunc func(ctx context.Context, collection, id string) error
}

func (m *mockBlobStore) Put(ctx context.Context, collection, id string, payload any) (storage.Location, error) {
	if m.putFunc != nil {
		return m.putFunc(ctx, collection, id, payload)
	}
	return storage.Location("memory://" + storage.Key(collection, id)), nil
}

func (m *mockBlobStore) List(ctx context.Context, collection string) ([]storage.Blob, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, collection)
	}
	return nil, nil
}

func (m *mockBlobStore) Delete(ctx context.Context, collection, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, collection, id)
	}
	return nil
}

func newAdapter(t *testing.T, remote storage.RemoteStore) *storage.Adapter {
	t.Helper()
	return storage.NewAdapter(remote, storage.Options{
		FallbackDir: t.TempDir(),
		Sleep:       func(context.Context, time.Duration) error { return nil },
	})
}

type note struct {
	Text string `json:"text"`
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(newAdapter(t, storage.NewMemoryStore()))

	id1, loc1, err := repo.Create(ctx, "notes", note{Text: "a"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id2, _, err := repo.Create(ctx, "notes", note{Text: "b"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id1 == id2 || id1 == "" {
		t.Errorf("expected distinct non-empty ids, got %q and %q", id1, id2)
	}
	if loc1 != storage.Location("memory://notes/"+id1+".json") {
		t.Errorf("unexpected location %q", loc1)
	}

	decoded, err := repository.ListAs[note](ctx, repo, "notes")
	if err != nil {
		t.Fatalf("ListAs failed: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Record.Text != "a" || decoded[0].ID != id1 {
		t.Errorf("unexpected decoded records %+v", decoded)
	}
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(newAdapter(t, storage.NewMemoryStore()))

	oldID, _, err := repo.Create(ctx, "notes", note{Text: "old"})
	if err != nil {
		t.Fatal(err)
	}
	newID, _, err := repo.Replace(ctx, "notes", oldID, note{Text: "new"})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if newID == oldID {
		t.Error("replace must assign a fresh id")
	}

	entries, err := repo.List(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != newID {
		t.Errorf("expected only the replacement, got %+v", entries)
	}
}

func TestReplace_DeleteFailureStillCreates(t *testing.T) {
	created := false
	store := &mockBlobStore{
		deleteFunc: func(ctx context.Context, collection, id string) error {
			return storage.StoreUnavailableError(storage.OpDelete, 3, errors.New("down"))
		},
		putFunc: func(ctx context.Context, collection, id string, payload any) (storage.Location, error) {
			created = true
			return "memory://x", nil
		},
	}
	repo := repository.New(store)

	if _, _, err := repo.Replace(context.Background(), "notes", "old", note{Text: "x"}); err != nil {
		t.Fatalf("Replace should succeed when only the delete fails, got %v", err)
	}
	if !created {
		t.Error("expected the replacement to be written")
	}
}

func TestReplace_CreateFailureIsConsistencyError(t *testing.T) {
	store := &mockBlobStore{
		putFunc: func(ctx context.Context, collection, id string, payload any) (storage.Location, error) {
			return "", storage.PersistenceError(storage.Key(collection, id), nil, errors.New("disk full"))
		},
	}
	repo := repository.New(store)

	_, _, err := repo.Replace(context.Background(), "notes", "old", note{Text: "x"})
	if !errors.Is(err, repository.ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
	if !errors.Is(err, storage.ErrPersistence) {
		t.Errorf("expected the persistence cause to be wrapped, got %v", err)
	}
}

func TestClear_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(newAdapter(t, storage.NewMemoryStore()))
	for _, text := range []string{"a", "b", "c"} {
		if _, _, err := repo.Create(ctx, "notes", note{Text: text}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.Clear(ctx, "notes")
	if err != nil || n != 3 {
		t.Fatalf("first Clear: expected 3, nil, got %d, %v", n, err)
	}
	n, err = repo.Clear(ctx, "notes")
	if err != nil || n != 0 {
		t.Fatalf("second Clear: expected 0, nil, got %d, %v", n, err)
	}
}

func TestList_PartialOnError(t *testing.T) {
	store := &mockBlobStore{
		listFunc: func(ctx context.Context, collection string) ([]storage.Blob, error) {
			return []storage.Blob{{Collection: collection, ID: "a", Data: []byte(`{"text":"a"}`)}},
				storage.StoreUnavailableError(storage.OpList, 3, errors.New("down"))
		},
	}
	repo := repository.New(store)

	entries, err := repo.List(context.Background(), "notes")
	if !errors.Is(err, storage.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected the partial entries, got %d", len(entries))
	}
}

func TestListAs_SkipsUndecodable(t *testing.T) {
	store := &mockBlobStore{
		listFunc: func(ctx context.Context, collection string) ([]storage.Blob, error) {
			return []storage.Blob{
				{Collection: collection, ID: "good", Data: []byte(`{"text":"ok"}`)},
				{Collection: collection, ID: "bad", Data: []byte(`not json`)},
			}, nil
		},
	}
	decoded, err := repository.ListAs[note](context.Background(), repository.New(store), "notes")
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].ID != "good" {
		t.Errorf("unexpected decoded %+v", decoded)
	}
}
