package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	batchesCollection   = "batches"
	documentsCollection = "documents"
	resultsCollection   = "results"
)

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is empty")
	}

	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(20).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the claim query and per-batch listing rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		model      mongo.IndexModel
	}{
		{
			collection: s.batches,
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "status", Value: 1},
					{Key: "priority_rank", Value: -1},
					{Key: "created_at", Value: 1},
				},
				Options: options.Index().SetName("batch_claim_order"),
			},
		},
		{
			collection: s.documents,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "batch_id", Value: 1}, {Key: "created_at", Value: 1}},
				Options: options.Index().SetName("document_batch"),
			},
		},
		{
			collection: s.results,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "document_id", Value: 1}},
				Options: options.Index().SetName("result_document"),
			},
		},
	}

	for _, idx := range indexes {
		if _, err := idx.collection.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.collection.Name(), err)
		}
	}
	return nil
}
