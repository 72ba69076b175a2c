package mongodb

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

func TestClaimFilterSelectsLiveQueuedBatches(t *testing.T) {
	filter := claimFilter().Map()
	if filter["status"] != string(domain.BatchQueued) {
		t.Fatalf("expected status filter QUEUED, got %v", filter["status"])
	}
	if v, ok := filter["deleted_at"]; !ok || v != nil {
		t.Fatalf("expected deleted_at=nil filter, got %v", filter)
	}
}

func TestClaimSortIsRankDescThenAgeAsc(t *testing.T) {
	sort := claimSort()
	want := bson.D{{Key: "priority_rank", Value: -1}, {Key: "created_at", Value: 1}}
	if len(sort) != len(want) {
		t.Fatalf("unexpected sort: %v", sort)
	}
	for i := range want {
		if sort[i] != want[i] {
			t.Fatalf("sort[%d] = %v, want %v", i, sort[i], want[i])
		}
	}
}

func TestBatchRecordStoresPriorityRank(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	batch := &domain.Batch{
		ID:        "b-1",
		TeacherID: "t-1",
		Status:    domain.BatchQueued,
		Priority:  domain.PriorityHigh,
		CreatedAt: created,
	}

	record := newBatchRecord(batch)
	if record.PriorityRank != 2 || record.Priority != "high" {
		t.Fatalf("unexpected record: %+v", record)
	}

	back, err := record.toDomain()
	if err != nil {
		t.Fatalf("toDomain() error = %v", err)
	}
	if back.Priority != domain.PriorityHigh || back.Status != domain.BatchQueued || !back.CreatedAt.Equal(created) {
		t.Fatalf("unexpected batch: %+v", back)
	}
}

func TestBatchRecordRejectsUnknownStatus(t *testing.T) {
	if _, err := (batchRecord{Status: "DONE", Priority: "low"}).toDomain(); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDocumentUpdateSetOnlyIncludesKnownCounts(t *testing.T) {
	now := time.Now().UTC()

	set := documentUpdateSet(domain.DocumentUpdate{Status: domain.DocumentProcessing}, now).Map()
	if _, ok := set["character_count"]; ok {
		t.Fatalf("expected counts to be left untouched, got %v", set)
	}
	if set["status"] != string(domain.DocumentProcessing) {
		t.Fatalf("unexpected status: %v", set["status"])
	}

	chars, words := 5, 1
	set = documentUpdateSet(domain.DocumentUpdate{Status: domain.DocumentCompleted, CharacterCount: &chars, WordCount: &words}, now).Map()
	if set["character_count"] != 5 || set["word_count"] != 1 {
		t.Fatalf("expected counts to be written, got %v", set)
	}
}
