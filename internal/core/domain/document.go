package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "UPLOADED"
	DocumentQueued     DocumentStatus = "QUEUED"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentCompleted  DocumentStatus = "COMPLETED"
	DocumentError      DocumentStatus = "ERROR"
)

var documentStatuses = []DocumentStatus{
	DocumentUploaded, DocumentQueued, DocumentProcessing, DocumentCompleted, DocumentError,
}

func ParseDocumentStatus(raw string) (DocumentStatus, error) {
	for _, s := range documentStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", WrapError(ErrInvalidInput, "parse document status", fmt.Errorf("unknown value %q", raw))
}

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeXLSX FileType = "xlsx"
	FileTypePNG  FileType = "png"
	FileTypeJPG  FileType = "jpg"
	FileTypeJPEG FileType = "jpeg"
	FileTypeTXT  FileType = "txt"
	FileTypeText FileType = "text"
)

var fileTypes = []FileType{
	FileTypePDF, FileTypeDOCX, FileTypeXLSX, FileTypePNG, FileTypeJPG, FileTypeJPEG, FileTypeTXT, FileTypeText,
}

func ParseFileType(raw string) (FileType, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
	for _, ft := range fileTypes {
		if string(ft) == normalized {
			return ft, nil
		}
	}
	return "", WrapError(ErrUnsupportedFileType, "parse file type", fmt.Errorf("unknown value %q", raw))
}

// FileTypeFromFilename detects the file type from the filename extension.
func FileTypeFromFilename(filename string) (FileType, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "", WrapError(ErrUnsupportedFileType, "detect file type", fmt.Errorf("no extension in %q", filename))
	}
	return ParseFileType(ext)
}

type Document struct {
	ID                 string         `json:"id"`
	BatchID            string         `json:"batch_id,omitempty"`
	QueuePosition      *int           `json:"queue_position,omitempty"`
	ProcessingPriority int            `json:"processing_priority"`
	TeacherID          string         `json:"teacher_id"`
	OriginalFilename   string         `json:"original_filename"`
	StoragePath        string         `json:"storage_path"`
	FileType           FileType       `json:"file_type"`
	Status             DocumentStatus `json:"status"`
	CharacterCount     *int           `json:"character_count,omitempty"`
	WordCount          *int           `json:"word_count,omitempty"`
	StudentID          string         `json:"student_id,omitempty"`
	AssignmentID       string         `json:"assignment_id,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          *time.Time     `json:"deleted_at,omitempty"`
}

// DocumentUpdate changes a document's status; nil counts leave stored values untouched.
type DocumentUpdate struct {
	Status         DocumentStatus
	CharacterCount *int
	WordCount      *int
}
