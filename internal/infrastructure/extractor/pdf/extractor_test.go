package pdf

import (
	"context"
	"testing"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	if _, err := NewExtractor().Extract(context.Background(), []byte("plain text, not a pdf")); err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
}

func TestExtractTruncatedPDFReturnsError(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	if _, err := NewExtractor().Extract(context.Background(), data); err == nil {
		t.Fatalf("expected error for truncated pdf")
	}
}
