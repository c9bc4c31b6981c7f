package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"babylon/recordstore/appcontext"
)

// RemoteOptions configures OpenRemote.
type RemoteOptions struct {
	Database       string
	BlobCollection string
}

// OpenRemote builds the remote store named by URI. An empty URI, or the
// schemes local and none, select local-only mode and return a nil store.
// A MongoDB server that cannot be pinged is logged and still returned:
// writes fall back locally until it recovers.
func OpenRemote(ctx context.Context, uri string, opts RemoteOptions) (RemoteStore, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse store uri: %w", err)
	}

	logger := appcontext.LoggerFromContext(ctx)
	switch scheme := strings.ToLower(parsed.Scheme); scheme {
	case "local", "none", "file":
		return nil, nil
	case "memory", "mem":
		logger.WarnContext(
			ctx,
			"In-memory remote store selected: records are discarded when the process exits",
			"uri", uri,
		)
		return NewMemoryStore(), nil
	case "mongodb", "mongodb+srv":
		client, connectErr := ConnectToMongoDB(ctx, uri)
		if client == nil {
			return nil, fmt.Errorf("connection to MongoDB failed: %w", connectErr)
		}
		if connectErr != nil {
			logger.WarnContext(
				ctx,
				"Remote store unreachable at startup, writes will use the local fallback until it recovers",
				"error", connectErr,
			)
		}
		dbName := opts.Database
		if dbName == "" {
			dbName = strings.Trim(parsed.Path, "/")
		}
		if dbName == "" {
			dbName = "recordstore"
		}
		wrapped := NewMongoClient(client)
		return NewMongoStore(NewMongoProvider(wrapped, dbName), wrapped, dbName, opts.BlobCollection), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", scheme)
	}
}
