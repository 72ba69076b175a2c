package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTemporary           = errors.New("temporary failure")
	ErrMissingOwner        = errors.New("missing owner")
	ErrUnsupportedFileType = errors.New("unsupported file type")

	ErrBatchNotFound    = fmt.Errorf("batch %w", ErrNotFound)
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)
	ErrResultNotFound   = fmt.Errorf("result %w", ErrNotFound)
	ErrBlobNotFound     = fmt.Errorf("blob %w", ErrNotFound)
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
