package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultBlobCollection holds one document per blob.
	DefaultBlobCollection = "blobs"
	syncTableName         = "dataSync"
	mongoOperationTimeout = 5 * time.Second
	blobContentType       = "application/json"
)

// blobDocument is the MongoDB shape of a blob. The store key is the _id so
// writes are idempotent upserts.
type blobDocument struct {
	Key         string    `bson:"_id"`
	Collection  string    `bson:"collection"`
	BlobID      string    `bson:"blobId"`
	Body        string    `bson:"body"`
	ContentType string    `bson:"contentType"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// MongoStore implements RemoteStore on a MongoDB collection.
type MongoStore struct {
	provider       CollectionProvider
	client         MongoClient
	dbName         string
	blobCollection string
	now            func() time.Time
}

// NewMongoStore creates a MongoStore. CLIENT may be nil when the caller
// manages the connection lifecycle itself.
func NewMongoStore(provider CollectionProvider, client MongoClient, dbName, blobCollection string) *MongoStore {
	if blobCollection == "" {
		blobCollection = DefaultBlobCollection
	}
	return &MongoStore{
		provider:       provider,
		client:         client,
		dbName:         dbName,
		blobCollection: blobCollection,
		now:            time.Now,
	}
}

// Put upserts the blob document for KEY.
func (s *MongoStore) Put(ctx context.Context, key string, data []byte) error {
	collection, id, ok := ParseKey(key)
	if !ok {
		return InvalidKeyError(key)
	}
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	doc := blobDocument{
		Key:         key,
		Collection:  collection,
		BlobID:      id,
		Body:        string(data),
		ContentType: blobContentType,
		UpdatedAt:   s.now().UTC(),
	}
	_, err := s.provider.Collection(s.blobCollection).ReplaceOne(
		ctx,
		bson.M{"_id": key},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return TransientError(OpPut, err)
	}
	return nil
}

// List returns every blob whose key is under COLLECTION, oldest first.
func (s *MongoStore) List(ctx context.Context, collection string) ([]Blob, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	cursor, err := s.provider.Collection(s.blobCollection).Find(
		ctx,
		bson.M{"collection": collection},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}),
	)
	if err != nil {
		return nil, TransientError(OpList, err)
	}
	var docs []blobDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, TransientError(OpList, fmt.Errorf("failed to decode blob documents: %w", err))
	}

	blobs := make([]Blob, 0, len(docs))
	for _, doc := range docs {
		blobs = append(blobs, Blob{Collection: doc.Collection, ID: doc.BlobID, Data: []byte(doc.Body)})
	}
	return blobs, nil
}

// Delete removes the blob document for KEY.
func (s *MongoStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	result, err := s.provider.Collection(s.blobCollection).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return TransientError(OpDelete, err)
	}
	if result == nil || result.DeletedCount == 0 {
		return BlobNotFoundError(key)
	}
	return nil
}

// RecordSync appends an entry to the dataSync collection.
func (s *MongoStore) RecordSync(ctx context.Context, log SyncLog) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	if _, err := s.provider.Collection(syncTableName).InsertOne(ctx, log); err != nil {
		return fmt.Errorf("failed to insert into %s collection: %w", syncTableName, err)
	}
	return nil
}

// URI returns the mongodb:// location of KEY.
func (s *MongoStore) URI(key string) string {
	return fmt.Sprintf("mongodb://%s/%s/%s", s.dbName, s.blobCollection, key)
}

// Close disconnects the client when the store owns it.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
