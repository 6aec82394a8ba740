package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet renders every sheet, in file order, as a sheet-name
// header followed by its rows as tab-separated lines.
func extractSpreadsheet(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		// excelize reads OOXML workbooks only; legacy BIFF .xls files and
		// corrupt data fail to open.
		return "", fmt.Errorf("%w: open spreadsheet: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		sb.WriteString(fmt.Sprintf("\n\nSheet: %s\n", sheet))
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q failed: %w", sheet, err)
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
