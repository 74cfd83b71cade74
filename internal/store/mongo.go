package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nexussync/internal/database"
	"nexussync/internal/models"
)

// MongoTable stores records in the records collection
type MongoTable struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewMongoTable creates a MongoDB-backed table
func NewMongoTable(db *database.MongoDB) *MongoTable {
	return &MongoTable{db: db, collection: db.Collection(database.CollectionRecords)}
}

func keyFilter(partitionKey, sortKey string) bson.M {
	return bson.M{"partitionKey": partitionKey, "sortKey": sortKey}
}

func (t *MongoTable) Get(ctx context.Context, partitionKey, sortKey string) (models.RecordItem, error) {
	var item models.RecordItem
	err := t.collection.FindOne(ctx, keyFilter(partitionKey, sortKey)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RecordItem{}, ErrNotFound
	}
	if err != nil {
		return models.RecordItem{}, fmt.Errorf("failed to find record: %w", err)
	}
	return item, nil
}

// Upsert writes with $set, keeping createdAt and archived in $setOnInsert
func (t *MongoTable) Upsert(ctx context.Context, item models.RecordItem) error {
	update := mongoUpsertDocument(item)
	opts := options.Update().SetUpsert(true)
	if _, err := t.collection.UpdateOne(ctx, keyFilter(item.PartitionKey, item.SortKey), update, opts); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func mongoUpsertDocument(item models.RecordItem) bson.M {
	set := bson.M{
		"sourceType":     item.SourceType,
		"sourceName":     item.SourceName,
		"sourceIdentity": item.SourceIdentity,
		"recordType":     item.RecordType,
		"content":        item.Content,
		"updatedAt":      item.UpdatedAt,
		"lastEvent":      item.LastEvent,
		"deleted":        item.Deleted,
	}
	unset := bson.M{}
	for field, value := range map[string]string{
		"ownerId": item.OwnerID,
		"summary": item.Summary,
		"insight": item.Insight,
	} {
		if value == "" {
			unset[field] = ""
		} else {
			set[field] = value
		}
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"createdAt": item.CreatedAt,
			"archived":  item.Archived,
		},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func (t *MongoTable) Put(ctx context.Context, item models.RecordItem) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := t.collection.ReplaceOne(ctx, keyFilter(item.PartitionKey, item.SortKey), item, opts); err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

func (t *MongoTable) Delete(ctx context.Context, partitionKey, sortKey string) error {
	if _, err := t.collection.DeleteOne(ctx, keyFilter(partitionKey, sortKey)); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (t *MongoTable) Ping(ctx context.Context) error {
	return t.db.Ping(ctx)
}

func (t *MongoTable) Close(ctx context.Context) error {
	return t.db.Close(ctx)
}
