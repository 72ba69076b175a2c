package domain

import (
	"fmt"
	"time"
)

type ResultStatus string

const (
	ResultPending   ResultStatus = "PENDING"
	ResultAssessing ResultStatus = "ASSESSING"
	ResultCompleted ResultStatus = "COMPLETED"
	ResultError     ResultStatus = "ERROR"
)

var resultStatuses = []ResultStatus{ResultPending, ResultAssessing, ResultCompleted, ResultError}

func ParseResultStatus(raw string) (ResultStatus, error) {
	for _, s := range resultStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", WrapError(ErrInvalidInput, "parse result status", fmt.Errorf("unknown value %q", raw))
}

type Result struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	TeacherID  string       `json:"teacher_id"`
	Status     ResultStatus `json:"status"`
	Score      *float64     `json:"score,omitempty"`
	Label      string       `json:"label,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	DeletedAt  *time.Time   `json:"deleted_at,omitempty"`
}
