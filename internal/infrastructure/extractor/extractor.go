// Package extractor routes document bytes to a format-specific text extractor.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/smarteducator/aidetector/internal/core/domain"
	"github.com/smarteducator/aidetector/internal/infrastructure/extractor/docx"
	"github.com/smarteducator/aidetector/internal/infrastructure/extractor/pdf"
	"github.com/smarteducator/aidetector/internal/infrastructure/extractor/plaintext"
	"github.com/smarteducator/aidetector/internal/infrastructure/extractor/xlsx"
)

type Format interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type Dispatcher struct {
	formats map[domain.FileType]Format
}

func NewDispatcher(formats map[domain.FileType]Format) *Dispatcher {
	return &Dispatcher{formats: formats}
}

// NewDefault supports every text-bearing file type. Images have no extractor.
func NewDefault() *Dispatcher {
	text := plaintext.NewExtractor()
	return NewDispatcher(map[domain.FileType]Format{
		domain.FileTypeTXT:  text,
		domain.FileTypeText: text,
		domain.FileTypePDF:  pdf.NewExtractor(),
		domain.FileTypeDOCX: docx.NewExtractor(),
		domain.FileTypeXLSX: xlsx.NewExtractor(),
	})
}

func (d *Dispatcher) Extract(ctx context.Context, data []byte, fileType domain.FileType) (string, error) {
	format, ok := d.formats[fileType]
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedFileType, "extract text", fmt.Errorf("file type %q", fileType))
	}
	text, err := format.Extract(ctx, data)
	if err != nil {
		return "", fmt.Errorf("extract %s text: %w", fileType, err)
	}
	return strings.TrimSpace(text), nil
}
