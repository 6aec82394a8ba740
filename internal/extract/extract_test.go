package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseFileType(t *testing.T) {
	tests := []struct {
		ext     string
		want    FileType
		wantErr bool
	}{
		{"pdf", TypePDF, false},
		{".pdf", TypePDF, false},
		{"PDF", TypePDF, false},
		{"docx", TypeWord, false},
		{"xlsx", TypeSpreadsheet, false},
		{"xls", TypeSpreadsheet, false},
		{"pptx", TypePresentation, false},
		{"txt", TypePlainText, false},
		{"doc", TypeUnknown, true},
		{"exe", TypeUnknown, true},
		{"", TypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := ParseFileType(tt.ext)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("ParseFileType(%q) error = %v, want ErrUnsupportedFormat", tt.ext, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFileType(%q) error = %v", tt.ext, err)
			}
			if got != tt.want {
				t.Errorf("ParseFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestExtract_PlainText(t *testing.T) {
	got, err := Extract([]byte("hello\nworld"), TypePlainText)
	if err != nil {
		t.Fatalf("Extract error = %v", err)
	}
	if got != "hello\nworld" {
		t.Errorf("Extract = %q", got)
	}
}

func TestExtract_PlainText_InvalidUTF8(t *testing.T) {
	got, err := Extract([]byte{'o', 'k', 0xff, 0xfe, '!'}, TypePlainText)
	if err != nil {
		t.Fatalf("Extract error = %v", err)
	}
	if !strings.Contains(got, "ok") || !strings.Contains(got, "�") {
		t.Errorf("invalid bytes should become replacement characters, got %q", got)
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	if _, err := Extract([]byte("x"), TypeUnknown); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Extract(TypeUnknown) error = %v, want ErrUnsupportedFormat", err)
	}
}

// buildZip assembles an in-memory OOXML-shaped archive.
func buildZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_Word(t *testing.T) {
	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": document})

	got, err := Extract(data, TypeWord)
	if err != nil {
		t.Fatalf("Extract error = %v", err)
	}
	if !strings.Contains(got, "First paragraph.") {
		t.Errorf("missing first paragraph in %q", got)
	}
	// Runs within one paragraph concatenate without separators.
	if !strings.Contains(got, "Second paragraph.") {
		t.Errorf("split runs not joined in %q", got)
	}
}

func TestExtract_Word_MissingDocumentPart(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	if _, err := Extract(data, TypeWord); err == nil {
		t.Error("expected error for docx without word/document.xml")
	}
}

func TestExtract_Word_NotAZip(t *testing.T) {
	if _, err := Extract([]byte("plain bytes"), TypeWord); err == nil {
		t.Error("expected error for non-zip docx data")
	}
}

func TestExtract_Presentation(t *testing.T) {
	slide := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>
    <a:p><a:r><a:t>` + text + `</a:t></a:r></a:p>
  </p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}
	// slide10 sorts after slide2 numerically, not lexically.
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml": slide("tenth"),
		"ppt/slides/slide1.xml":  slide("first"),
		"ppt/slides/slide2.xml":  slide("second"),
	})

	got, err := Extract(data, TypePresentation)
	if err != nil {
		t.Fatalf("Extract error = %v", err)
	}
	for _, want := range []string{"Slide 1:", "Slide 2:", "Slide 3:", "first", "second", "tenth"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
	if strings.Index(got, "second") > strings.Index(got, "tenth") {
		t.Errorf("slides out of order: %q", got)
	}
}

func TestExtract_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Name"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Score"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A2", "Ada"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B2", 42); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	got, err := Extract(buf.Bytes(), TypeSpreadsheet)
	if err != nil {
		t.Fatalf("Extract error = %v", err)
	}
	if !strings.Contains(got, "Sheet: Sheet1") {
		t.Errorf("missing sheet header in %q", got)
	}
	if !strings.Contains(got, "Name\tScore") {
		t.Errorf("row cells should be tab-joined, got %q", got)
	}
	if !strings.Contains(got, "Ada\t42") {
		t.Errorf("missing data row in %q", got)
	}
}

func TestExtract_Spreadsheet_NotAWorkbook(t *testing.T) {
	if _, err := Extract([]byte("nope"), TypeSpreadsheet); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Extract error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtract_Spreadsheet_LegacyFormat(t *testing.T) {
	// A BIFF .xls header. The extension is accepted, but the extractor
	// cannot open the legacy format and must say so, not fail opaquely.
	biff := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00, 0x00}
	if _, err := Extract(biff, TypeSpreadsheet); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Extract error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFileType_String(t *testing.T) {
	tests := []struct {
		ft   FileType
		want string
	}{
		{TypePDF, "pdf"},
		{TypeWord, "docx"},
		{TypeSpreadsheet, "xlsx"},
		{TypePresentation, "pptx"},
		{TypePlainText, "txt"},
	}
	for _, tt := range tests {
		if got := tt.ft.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
