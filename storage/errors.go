package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks a single failed remote attempt that may succeed on retry.
	ErrTransient = errors.New("transient blob store failure")

	// ErrStoreUnavailable means the remote store could not be reached or
	// every retry was exhausted.
	ErrStoreUnavailable = errors.New("blob store unavailable")

	// ErrPersistence means neither the remote store nor the local
	// fallback accepted a write.
	ErrPersistence = errors.New("persistence failed")

	// ErrBlobNotFound is returned when a blob to delete does not exist.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidKey rejects collection or id values that are not a single
	// path segment.
	ErrInvalidKey = errors.New("invalid blob key")

	// ErrNoRemote is returned by operations that need a configured remote store.
	ErrNoRemote = errors.New("no remote blob store configured")
)

// TransientError wraps a remote failure as retryable.
func TransientError(op string, baseErr error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransient, op, baseErr)
}

// StoreUnavailableError reports that OP gave up after ATTEMPTS tries.
func StoreUnavailableError(op string, attempts int, lastErr error) error {
	return fmt.Errorf("%w: %s failed after %d attempts: %w", ErrStoreUnavailable, op, attempts, lastErr)
}

// PersistenceError reports a write that failed both remotely and locally.
func PersistenceError(key string, remoteErr, localErr error) error {
	if remoteErr == nil {
		return fmt.Errorf("%w, %s: local fallback: %w", ErrPersistence, key, localErr)
	}
	return fmt.Errorf("%w, %s: remote: %w; local fallback: %w", ErrPersistence, key, remoteErr, localErr)
}

// BlobNotFoundError names the missing key.
func BlobNotFoundError(key string) error {
	return fmt.Errorf("%w, %s", ErrBlobNotFound, key)
}

// InvalidKeyError names the rejected segment.
func InvalidKeyError(segment string) error {
	return fmt.Errorf("%w, %q", ErrInvalidKey, segment)
}
