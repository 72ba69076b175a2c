package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

// Store is the MongoDB record store. Claims rely on FindOneAndUpdate being
// atomic for a single document.
type Store struct {
	client    *mongo.Client
	batches   *mongo.Collection
	documents *mongo.Collection
	results   *mongo.Collection
	now       func() time.Time
}

func NewStore(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		batches:   db.Collection(batchesCollection),
		documents: db.Collection(documentsCollection),
		results:   db.Collection(resultsCollection),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func liveFilter(extra bson.D) bson.D {
	return append(extra, bson.E{Key: "deleted_at", Value: nil})
}

func claimFilter() bson.D {
	return liveFilter(bson.D{{Key: "status", Value: string(domain.BatchQueued)}})
}

func claimSort() bson.D {
	return bson.D{{Key: "priority_rank", Value: -1}, {Key: "created_at", Value: 1}}
}

func documentUpdateSet(update domain.DocumentUpdate, now time.Time) bson.D {
	set := bson.D{
		{Key: "status", Value: string(update.Status)},
		{Key: "updated_at", Value: now},
	}
	if update.CharacterCount != nil {
		set = append(set, bson.E{Key: "character_count", Value: *update.CharacterCount})
	}
	if update.WordCount != nil {
		set = append(set, bson.E{Key: "word_count", Value: *update.WordCount})
	}
	return set
}

func (s *Store) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	if _, err := s.batches.InsertOne(ctx, newBatchRecord(batch)); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	var record batchRecord
	err := s.batches.FindOne(ctx, liveFilter(bson.D{{Key: "_id", Value: id}})).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return record.toDomain()
}

func (s *Store) ClaimNextBatch(ctx context.Context) (*domain.Batch, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(domain.BatchProcessing)},
		{Key: "updated_at", Value: s.now()},
	}}}
	opts := options.FindOneAndUpdate().
		SetSort(claimSort()).
		SetReturnDocument(options.After)

	var record batchRecord
	err := s.batches.FindOneAndUpdate(ctx, claimFilter(), update, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	return record.toDomain()
}

func (s *Store) UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(status)},
		{Key: "error_message", Value: errMessage},
		{Key: "updated_at", Value: s.now()},
	}}}
	res, err := s.batches.UpdateOne(ctx, liveFilter(bson.D{{Key: "_id", Value: id}}), update)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.WrapError(domain.ErrBatchNotFound, "update batch status", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (s *Store) FinishBatch(ctx context.Context, id string, summary domain.BatchSummary) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(summary.Status)},
		{Key: "completed_files", Value: summary.CompletedFiles},
		{Key: "failed_files", Value: summary.FailedFiles},
		{Key: "error_message", Value: summary.ErrorMessage},
		{Key: "updated_at", Value: s.now()},
	}}}
	res, err := s.batches.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.WrapError(domain.ErrBatchNotFound, "finish batch", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if _, err := s.documents.InsertOne(ctx, newDocumentRecord(doc)); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var record documentRecord
	err := s.documents.FindOne(ctx, liveFilter(bson.D{{Key: "_id", Value: id}})).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	doc, err := record.toDomain()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) ListDocumentsByBatch(ctx context.Context, batchID string) ([]domain.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.documents.Find(ctx, liveFilter(bson.D{{Key: "batch_id", Value: batchID}}), opts)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer cursor.Close(ctx)

	var records []documentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	out := make([]domain.Document, 0, len(records))
	for _, record := range records {
		doc, err := record.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *Store) UpdateDocument(ctx context.Context, id, teacherID string, update domain.DocumentUpdate) error {
	filter := liveFilter(bson.D{{Key: "_id", Value: id}, {Key: "teacher_id", Value: teacherID}})
	res, err := s.documents.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: documentUpdateSet(update, s.now())}})
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (s *Store) CreateResult(ctx context.Context, result *domain.Result) error {
	if _, err := s.results.InsertOne(ctx, newResultRecord(result)); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) GetResultByDocumentID(ctx context.Context, documentID string) (*domain.Result, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var record resultRecord
	err := s.results.FindOne(ctx, liveFilter(bson.D{{Key: "document_id", Value: documentID}}), opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "get result", fmt.Errorf("document_id=%s", documentID))
		}
		return nil, fmt.Errorf("find result: %w", err)
	}
	return record.toDomain()
}

func (s *Store) UpdateResultStatus(ctx context.Context, id string, status domain.ResultStatus) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(status)},
		{Key: "updated_at", Value: s.now()},
	}}}
	res, err := s.results.UpdateOne(ctx, liveFilter(bson.D{{Key: "_id", Value: id}}), update)
	if err != nil {
		return fmt.Errorf("update result status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.WrapError(domain.ErrResultNotFound, "update result status", fmt.Errorf("id=%s", id))
	}
	return nil
}
