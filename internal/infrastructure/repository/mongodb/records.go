package mongodb

import (
	"time"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

// batchRecord stores priority_rank next to the priority token so the claim
// sort is numeric.
type batchRecord struct {
	ID             string     `bson:"_id"`
	TeacherID      string     `bson:"teacher_id"`
	TotalFiles     int        `bson:"total_files"`
	CompletedFiles int        `bson:"completed_files"`
	FailedFiles    int        `bson:"failed_files"`
	Status         string     `bson:"status"`
	Priority       string     `bson:"priority"`
	PriorityRank   int        `bson:"priority_rank"`
	ErrorMessage   string     `bson:"error_message,omitempty"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
	DeletedAt      *time.Time `bson:"deleted_at"`
}

type documentRecord struct {
	ID                 string     `bson:"_id"`
	BatchID            string     `bson:"batch_id,omitempty"`
	QueuePosition      *int       `bson:"queue_position"`
	ProcessingPriority int        `bson:"processing_priority"`
	TeacherID          string     `bson:"teacher_id"`
	OriginalFilename   string     `bson:"original_filename"`
	StoragePath        string     `bson:"storage_path"`
	FileType           string     `bson:"file_type"`
	Status             string     `bson:"status"`
	CharacterCount     *int       `bson:"character_count"`
	WordCount          *int       `bson:"word_count"`
	StudentID          string     `bson:"student_id,omitempty"`
	AssignmentID       string     `bson:"assignment_id,omitempty"`
	CreatedAt          time.Time  `bson:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
	DeletedAt          *time.Time `bson:"deleted_at"`
}

type resultRecord struct {
	ID         string     `bson:"_id"`
	DocumentID string     `bson:"document_id"`
	TeacherID  string     `bson:"teacher_id"`
	Status     string     `bson:"status"`
	Score      *float64   `bson:"score"`
	Label      string     `bson:"label,omitempty"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
	DeletedAt  *time.Time `bson:"deleted_at"`
}

func newBatchRecord(b *domain.Batch) batchRecord {
	return batchRecord{
		ID:             b.ID,
		TeacherID:      b.TeacherID,
		TotalFiles:     b.TotalFiles,
		CompletedFiles: b.CompletedFiles,
		FailedFiles:    b.FailedFiles,
		Status:         string(b.Status),
		Priority:       string(b.Priority),
		PriorityRank:   b.Priority.Rank(),
		ErrorMessage:   b.ErrorMessage,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		DeletedAt:      b.DeletedAt,
	}
}

func (r batchRecord) toDomain() (*domain.Batch, error) {
	status, err := domain.ParseBatchStatus(r.Status)
	if err != nil {
		return nil, err
	}
	priority, err := domain.ParseBatchPriority(r.Priority)
	if err != nil {
		return nil, err
	}
	return &domain.Batch{
		ID:             r.ID,
		TeacherID:      r.TeacherID,
		TotalFiles:     r.TotalFiles,
		CompletedFiles: r.CompletedFiles,
		FailedFiles:    r.FailedFiles,
		Status:         status,
		Priority:       priority,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		DeletedAt:      r.DeletedAt,
	}, nil
}

func newDocumentRecord(d *domain.Document) documentRecord {
	return documentRecord{
		ID:                 d.ID,
		BatchID:            d.BatchID,
		QueuePosition:      d.QueuePosition,
		ProcessingPriority: d.ProcessingPriority,
		TeacherID:          d.TeacherID,
		OriginalFilename:   d.OriginalFilename,
		StoragePath:        d.StoragePath,
		FileType:           string(d.FileType),
		Status:             string(d.Status),
		CharacterCount:     d.CharacterCount,
		WordCount:          d.WordCount,
		StudentID:          d.StudentID,
		AssignmentID:       d.AssignmentID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		DeletedAt:          d.DeletedAt,
	}
}

func (r documentRecord) toDomain() (domain.Document, error) {
	status, err := domain.ParseDocumentStatus(r.Status)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{
		ID:                 r.ID,
		BatchID:            r.BatchID,
		QueuePosition:      r.QueuePosition,
		ProcessingPriority: r.ProcessingPriority,
		TeacherID:          r.TeacherID,
		OriginalFilename:   r.OriginalFilename,
		StoragePath:        r.StoragePath,
		FileType:           domain.FileType(r.FileType),
		Status:             status,
		CharacterCount:     r.CharacterCount,
		WordCount:          r.WordCount,
		StudentID:          r.StudentID,
		AssignmentID:       r.AssignmentID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		DeletedAt:          r.DeletedAt,
	}, nil
}

func newResultRecord(r *domain.Result) resultRecord {
	return resultRecord{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		TeacherID:  r.TeacherID,
		Status:     string(r.Status),
		Score:      r.Score,
		Label:      r.Label,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		DeletedAt:  r.DeletedAt,
	}
}

func (r resultRecord) toDomain() (*domain.Result, error) {
	status, err := domain.ParseResultStatus(r.Status)
	if err != nil {
		return nil, err
	}
	return &domain.Result{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		TeacherID:  r.TeacherID,
		Status:     status,
		Score:      r.Score,
		Label:      r.Label,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		DeletedAt:  r.DeletedAt,
	}, nil
}
