package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned when a file's declared type is not one of
// the supported formats. The caller must surface it and index nothing.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FileType is the closed set of formats the extractor understands. Adding a
// format means adding a constant and an extractor case, not another string
// comparison at the call site.
type FileType int

const (
	TypeUnknown FileType = iota
	TypePDF
	TypeWord
	TypeSpreadsheet
	TypePresentation
	TypePlainText
)

func (t FileType) String() string {
	switch t {
	case TypePDF:
		return "pdf"
	case TypeWord:
		return "docx"
	case TypeSpreadsheet:
		return "xlsx"
	case TypePresentation:
		return "pptx"
	case TypePlainText:
		return "txt"
	default:
		return "unknown"
	}
}

// ParseFileType maps a file extension (with or without the leading dot) to a
// FileType. Unknown extensions yield ErrUnsupportedFormat.
func ParseFileType(ext string) (FileType, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return TypePDF, nil
	case "docx":
		return TypeWord, nil
	case "xlsx", "xls":
		return TypeSpreadsheet, nil
	case "pptx":
		return TypePresentation, nil
	case "txt":
		return TypePlainText, nil
	default:
		return TypeUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
