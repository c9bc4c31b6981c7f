package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"babylon/recordstore/appcontext"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultFallbackDir = "fallback"
)

// Options configures an Adapter. Zero values take the defaults.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	FallbackDir string

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Adapter persists blobs to a remote store with bounded retries and falls
// back to a local directory when the remote cannot take the write.
type Adapter struct {
	remote      RemoteStore
	local       *LocalStore
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewAdapter wraps REMOTE. A nil remote selects local-only mode, in which
// the fallback directory is the system of record.
func NewAdapter(remote RemoteStore, opts Options) *Adapter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = 0
	} else if opts.BaseDelay == 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.FallbackDir == "" {
		opts.FallbackDir = DefaultFallbackDir
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Adapter{
		remote:      remote,
		local:       NewLocalStore(opts.FallbackDir),
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		sleep:       opts.Sleep,
	}
}

// Remote returns the configured remote store, or nil in local-only mode.
func (a *Adapter) Remote() RemoteStore {
	return a.remote
}

// Local returns the fallback store.
func (a *Adapter) Local() *LocalStore {
	return a.local
}

// Close releases the remote store.
func (a *Adapter) Close(ctx context.Context) error {
	if a.remote == nil {
		return nil
	}
	return a.remote.Close(ctx)
}

// Put encodes PAYLOAD and stores it as collection/id.json. It returns the
// location the blob landed at. Only a failed fallback write after the
// remote gave up is reported as an error.
func (a *Adapter) Put(ctx context.Context, collection, id string, payload any) (Location, error) {
	if err := validateKey(collection, id); err != nil {
		return "", err
	}
	data, err := Encode(payload)
	if err != nil {
		return "", err
	}
	key := Key(collection, id)

	ctx, span := storageTracer.Start(ctx, "storage.Adapter.Put",
		trace.WithAttributes(attribute.String("key", key)))
	defer span.End()
	logger := appcontext.LoggerWithTrace(ctx)

	var remoteErr error
	if a.remote != nil {
		remoteErr = a.withRetry(ctx, OpPut, key, func(ctx context.Context) error {
			return a.remote.Put(ctx, key, data)
		})
		if remoteErr == nil {
			location := Location(a.remote.URI(key))
			logger.DebugContext(ctx, "Blob stored", "key", key, "location", location)
			return location, nil
		}
		logger.WarnContext(ctx, "Remote store unavailable, writing blob to local fallback",
			"key", key, "error", remoteErr)
	}

	location, localErr := a.local.Put(collection, id, data)
	if localErr != nil {
		err := PersistenceError(key, remoteErr, localErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback write failed")
		logger.ErrorContext(ctx, "Blob could not be persisted", "key", key, "error", err)
		return "", err
	}
	if a.remote != nil {
		blobFallbackWritesTotal.WithLabelValues(collection).Inc()
		span.SetAttributes(attribute.Bool("fallback", true))
	}
	logger.DebugContext(ctx, "Blob stored locally", "key", key, "location", location)
	return location, nil
}

// List returns every blob in COLLECTION: remote blobs joined with any
// fallback blobs, the remote copy winning on id clash. When the remote
// cannot be read, the fallback blobs are returned together with an error
// wrapping ErrStoreUnavailable.
func (a *Adapter) List(ctx context.Context, collection string) ([]Blob, error) {
	ctx, span := storageTracer.Start(ctx, "storage.Adapter.List",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()
	logger := appcontext.LoggerWithTrace(ctx)

	local, localErr := a.local.List(collection)
	if localErr != nil {
		logger.WarnContext(ctx, "Failed to read local fallback blobs", "collection", collection, "error", localErr)
	}
	if a.remote == nil {
		return local, localErr
	}

	var remote []Blob
	remoteErr := a.withRetry(ctx, OpList, collection, func(ctx context.Context) error {
		blobs, err := a.remote.List(ctx, collection)
		if err != nil {
			return err
		}
		remote = blobs
		return nil
	})
	if remoteErr != nil {
		span.RecordError(remoteErr)
		span.SetStatus(codes.Error, "remote list failed")
		logger.WarnContext(ctx, "Remote store unavailable, listing local fallback only",
			"collection", collection, "fallback_blobs", len(local), "error", remoteErr)
		return local, remoteErr
	}

	merged := make([]Blob, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote))
	for _, b := range remote {
		seen[b.ID] = struct{}{}
		merged = append(merged, b)
	}
	for _, b := range local {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		merged = append(merged, b)
	}
	return merged, nil
}

// ListFallback returns only the blobs held in the local fallback.
func (a *Adapter) ListFallback(collection string) ([]Blob, error) {
	return a.local.List(collection)
}

// Delete removes collection/id.json from the remote store and from the
// fallback directory. It returns ErrBlobNotFound when neither held it.
func (a *Adapter) Delete(ctx context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	key := Key(collection, id)

	ctx, span := storageTracer.Start(ctx, "storage.Adapter.Delete",
		trace.WithAttributes(attribute.String("key", key)))
	defer span.End()
	logger := appcontext.LoggerWithTrace(ctx)

	removedLocal, localErr := a.local.Delete(collection, id)
	if localErr != nil {
		logger.WarnContext(ctx, "Failed to delete local fallback blob", "key", key, "error", localErr)
	}

	if a.remote == nil {
		if localErr != nil {
			return localErr
		}
		if !removedLocal {
			return BlobNotFoundError(key)
		}
		return nil
	}

	remoteErr := a.withRetry(ctx, OpDelete, key, func(ctx context.Context) error {
		return a.remote.Delete(ctx, key)
	})
	switch {
	case remoteErr == nil:
		return nil
	case errors.Is(remoteErr, ErrBlobNotFound):
		if removedLocal {
			return nil
		}
		return remoteErr
	default:
		span.RecordError(remoteErr)
		span.SetStatus(codes.Error, "remote delete failed")
		return remoteErr
	}
}

// SyncFallback pushes every fallback blob to the remote store, removing
// each local copy once the remote accepted it. It returns how many blobs
// were moved.
func (a *Adapter) SyncFallback(ctx context.Context) (int, error) {
	if a.remote == nil {
		return 0, ErrNoRemote
	}
	ctx, span := storageTracer.Start(ctx, "storage.Adapter.SyncFallback")
	defer span.End()
	logger := appcontext.LoggerWithTrace(ctx)

	collections, err := a.local.Collections()
	if err != nil {
		return 0, fmt.Errorf("list fallback collections: %w", err)
	}

	total := 0
	var errs []error
	for _, collection := range collections {
		blobs, err := a.local.List(collection)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		moved := 0
		for _, blob := range blobs {
			key := blob.Key()
			err := a.withRetry(ctx, OpPut, key, func(ctx context.Context) error {
				return a.remote.Put(ctx, key, blob.Data)
			})
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if _, err := a.local.Delete(blob.Collection, blob.ID); err != nil {
				logger.WarnContext(ctx, "Synced blob but failed to remove local copy", "key", key, "error", err)
			}
			moved++
		}
		total += moved
		if moved == 0 {
			continue
		}
		logger.InfoContext(ctx, "Synced fallback blobs", "collection", collection, "count", moved)
		if recorder, ok := a.remote.(SyncRecorder); ok {
			entry := SyncLog{CollectionName: collection, SyncTimestamp: time.Now().UTC(), RecordsUploaded: int64(moved)}
			if err := recorder.RecordSync(ctx, entry); err != nil {
				logger.WarnContext(ctx, "Failed to record sync", "collection", collection, "error", err)
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync incomplete")
		return total, fmt.Errorf("sync fallback: %w", err)
	}
	return total, nil
}

// withRetry runs FN up to maxAttempts times, waiting baseDelay, 2×baseDelay,
// ... between attempts. ErrBlobNotFound is final. A cancelled context stops
// the loop early.
func (a *Adapter) withRetry(ctx context.Context, op, key string, fn func(context.Context) error) error {
	logger := appcontext.LoggerWithTrace(ctx)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		if attempt > 1 {
			blobRetriesTotal.WithLabelValues(op).Inc()
			delay := a.baseDelay << (attempt - 2)
			if err := a.sleep(ctx, delay); err != nil {
				break
			}
		}

		attempts = attempt
		err := fn(ctx)
		if err == nil {
			blobAttemptsTotal.WithLabelValues(op, outcomeSuccess).Inc()
			return nil
		}
		if errors.Is(err, ErrBlobNotFound) {
			blobAttemptsTotal.WithLabelValues(op, outcomeNotFound).Inc()
			return err
		}
		blobAttemptsTotal.WithLabelValues(op, outcomeFailure).Inc()
		lastErr = err
		logger.WarnContext(ctx, "Remote blob store attempt failed",
			"op", op, "key", key, "attempt", attempt, "max_attempts", a.maxAttempts, "error", err)
	}
	return StoreUnavailableError(op, attempts, lastErr)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
