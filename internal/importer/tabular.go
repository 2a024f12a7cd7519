package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// ErrMissingCodeColumn is returned when a tabular header has no code column.
var ErrMissingCodeColumn = domain.NewValidationError("required column missing: code")

// ParseXLSX reads the first worksheet of an .xlsx workbook. The first row is the header.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("cannot read spreadsheet: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewValidationError("spreadsheet has no worksheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("cannot read worksheet %q: %v", sheets[0], err))
	}
	return fromTable(records, nil)
}

// ParseCSV reads comma-separated text. The first row is the header.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("cannot read csv: %v", err))
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return fromTable(records, lines)
}

// fromTable maps a header plus data records onto rows. lines gives the source line of
// each record; nil means records are consecutive from line 1.
func fromTable(records [][]string, lines []int) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrMissingCodeColumn
	}

	columns := map[string]int{}
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	codeIdx, ok := columns[ColumnCode]
	if !ok {
		return nil, ErrMissingCodeColumn
	}
	campaignIdx, hasCampaign := columns[ColumnCampaignName]
	metadataIdx, hasMetadata := columns[ColumnMetadata]

	rows := make([]Row, 0, len(records)-1)
	for n := 1; n < len(records); n++ {
		record := records[n]
		if isBlank(record) {
			continue
		}
		line := n + 1
		if lines != nil {
			line = lines[n]
		}
		row := Row{Line: line, Code: cell(record, codeIdx)}
		if hasCampaign {
			row.CampaignName = cell(record, campaignIdx)
		}
		if hasMetadata {
			row.MetadataText = cell(record, metadataIdx)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(record []string, idx int) string {
	if idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
