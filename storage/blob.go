package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BlobExtension is appended to every blob id to form its key.
const BlobExtension = ".json"

// Blob is one stored JSON document.
type Blob struct {
	Collection string
	ID         string
	Data       []byte
}

// Key returns the blob's store key, collection/id.json.
func (b Blob) Key() string {
	return Key(b.Collection, b.ID)
}

// Key builds the store key for a blob.
func Key(collection, id string) string {
	return collection + "/" + id + BlobExtension
}

// ParseKey splits a store key into collection and id.
func ParseKey(key string) (string, string, bool) {
	collection, rest, ok := strings.Cut(key, "/")
	if !ok || !strings.HasSuffix(rest, BlobExtension) {
		return "", "", false
	}
	id := strings.TrimSuffix(rest, BlobExtension)
	if validateSegment(collection) != nil || validateSegment(id) != nil {
		return "", "", false
	}
	return collection, id, true
}

func validateSegment(segment string) error {
	if segment == "" || segment == "." || segment == ".." ||
		strings.ContainsAny(segment, `/\`) || strings.TrimSpace(segment) != segment {
		return InvalidKeyError(segment)
	}
	return nil
}

func validateKey(collection, id string) error {
	if err := validateSegment(collection); err != nil {
		return err
	}
	return validateSegment(id)
}

// Encode renders a payload as canonical JSON: struct fields in
// declaration order, map keys sorted.
func Encode(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode blob payload: %w", err)
	}
	return data, nil
}

// Location identifies where a blob was persisted. Remote locations use the
// remote store's scheme; fallback locations use FallbackScheme.
type Location string

// FallbackScheme prefixes locations written to the local fallback directory.
const FallbackScheme = "file://"

// IsFallback reports whether the blob landed in the local fallback.
func (l Location) IsFallback() bool {
	return strings.HasPrefix(string(l), FallbackScheme)
}

// RemoteStore is the abstract remote object store. Implementations return
// ErrBlobNotFound from Delete for missing keys; every other error is
// treated as transient by the Adapter.
type RemoteStore interface {
	Put(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, collection string) ([]Blob, error)
	Delete(ctx context.Context, key string) error
	URI(key string) string
	Close(ctx context.Context) error
}

// SyncLog records one drain of the local fallback into the remote store.
type SyncLog struct {
	CollectionName  string    `bson:"collection_name"`
	SyncTimestamp   time.Time `bson:"sync_timestamp"`
	RecordsUploaded int64     `bson:"records_uploaded"`
}

// SyncRecorder is implemented by remote stores that keep a sync log.
type SyncRecorder interface {
	RecordSync(ctx context.Context, log SyncLog) error
}
