// Package repository maps typed records onto blobs: it assigns ids,
// implements replace as delete-then-create and lists collections.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"babylon/recordstore/appcontext"
	"babylon/recordstore/storage"

	"github.com/google/uuid"
)

// ErrConsistency marks a replace whose old record was deleted but whose
// replacement could not be written.
var ErrConsistency = errors.New("replace left the store inconsistent")

// BlobStore defines the blob operations the repository needs.
type BlobStore interface {
	Put(ctx context.Context, collection, id string, payload any) (storage.Location, error)
	List(ctx context.Context, collection string) ([]storage.Blob, error)
	Delete(ctx context.Context, collection, id string) error
}

// Entry is one stored record with its id.
type Entry struct {
	ID         string
	Collection string
	Data       json.RawMessage
}

// Repository stores records in a BlobStore under fresh uuid ids.
type Repository struct {
	store BlobStore
	newID func() string
}

// New creates a Repository backed by STORE.
func New(store BlobStore) *Repository {
	return &Repository{store: store, newID: uuid.NewString}
}

// Create stores RECORD under a fresh id and returns the id and location.
func (r *Repository) Create(ctx context.Context, collection string, record any) (string, storage.Location, error) {
	id := r.newID()
	location, err := r.store.Put(ctx, collection, id, record)
	if err != nil {
		return "", "", fmt.Errorf("create %s record: %w", collection, err)
	}
	return id, location, nil
}

// Replace deletes OLDID and creates RECORD under a fresh id. The two steps
// are not atomic. A failed delete is logged and the create still runs; a
// failed create after a successful delete returns ErrConsistency.
func (r *Repository) Replace(
	ctx context.Context,
	collection, oldID string,
	record any,
) (string, storage.Location, error) {
	logger := appcontext.LoggerFromContext(ctx)

	deleteErr := r.store.Delete(ctx, collection, oldID)
	if deleteErr != nil {
		logger.WarnContext(
			ctx,
			"Consistency warning: old record could not be deleted before replace, a duplicate may remain",
			"collection", collection,
			"old_id", oldID,
			"error", deleteErr,
		)
	}

	id, location, err := r.Create(ctx, collection, record)
	if err != nil {
		if deleteErr == nil {
			logger.ErrorContext(
				ctx,
				"Consistency error: old record deleted but replacement was not written",
				"collection", collection,
				"old_id", oldID,
				"error", err,
			)
			return "", "", fmt.Errorf("%w: %s/%s: %w", ErrConsistency, collection, oldID, err)
		}
		return "", "", err
	}
	return id, location, nil
}

// List returns every record in COLLECTION. On a store error the entries
// that could be read are returned along with the error.
func (r *Repository) List(ctx context.Context, collection string) ([]Entry, error) {
	blobs, err := r.store.List(ctx, collection)
	entries := make([]Entry, 0, len(blobs))
	for _, blob := range blobs {
		entries = append(entries, Entry{ID: blob.ID, Collection: blob.Collection, Data: json.RawMessage(blob.Data)})
	}
	if err != nil {
		return entries, fmt.Errorf("list %s: %w", collection, err)
	}
	return entries, nil
}

// Clear deletes every record in COLLECTION and returns how many were
// removed. Clearing an empty collection returns 0.
func (r *Repository) Clear(ctx context.Context, collection string) (int, error) {
	entries, err := r.List(ctx, collection)
	if err != nil && len(entries) == 0 {
		return 0, err
	}

	deleted := 0
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, entry := range entries {
		delErr := r.store.Delete(ctx, collection, entry.ID)
		switch {
		case delErr == nil:
			deleted++
		case errors.Is(delErr, storage.ErrBlobNotFound):
		default:
			errs = append(errs, delErr)
		}
	}
	if len(errs) > 0 {
		return deleted, fmt.Errorf("clear %s: %w", collection, errors.Join(errs...))
	}
	return deleted, nil
}

// Decoded pairs a record with its id.
type Decoded[T any] struct {
	ID     string `json:"id"`
	Record T      `json:"record"`
}

// ListAs lists COLLECTION and decodes each entry into T. Entries that do
// not decode are skipped with a warning.
func ListAs[T any](ctx context.Context, r *Repository, collection string) ([]Decoded[T], error) {
	logger := appcontext.LoggerFromContext(ctx)
	entries, err := r.List(ctx, collection)

	out := make([]Decoded[T], 0, len(entries))
	for _, entry := range entries {
		var record T
		if decodeErr := json.Unmarshal(entry.Data, &record); decodeErr != nil {
			logger.WarnContext(ctx, "Skipping undecodable record", "collection", collection, "id", entry.ID, "error", decodeErr)
			continue
		}
		out = append(out, Decoded[T]{ID: entry.ID, Record: record})
	}
	return out, err
}
