package extract

import (
	"fmt"
	"strings"
)

// Extract converts the raw bytes of a file of the given type into plain
// text. All extraction happens in memory; no temporary files are created.
func Extract(data []byte, fileType FileType) (string, error) {
	switch fileType {
	case TypePDF:
		return extractPDF(data)
	case TypeWord:
		return extractWord(data)
	case TypeSpreadsheet:
		return extractSpreadsheet(data)
	case TypePresentation:
		return extractPresentation(data)
	case TypePlainText:
		return extractPlainText(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
}

// extractPlainText tolerates bad encodings: invalid UTF-8 sequences become
// replacement characters instead of failing the file.
func extractPlainText(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}
