package xlsx

import (
	"context"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractRendersRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "Name")
	_ = f.SetCellValue(sheet, "B1", "Essay")
	_ = f.SetCellValue(sheet, "A2", "Ana")
	_ = f.SetCellValue(sheet, "B2", "On rivers")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	text, err := NewExtractor().Extract(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Name\tEssay\nAna\tOn rivers" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	if _, err := NewExtractor().Extract(context.Background(), []byte("nope")); err == nil {
		t.Fatalf("expected error")
	}
}
