package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/dmaia/kakeibo/internal/encoding"
	"github.com/dmaia/kakeibo/internal/event"
)

const (
	colDate          = "date"
	colKind          = "kind"
	colAmount        = "amount"
	colAccount       = "account"
	colTargetAccount = "target_account"
	colCategory      = "category"
	colNote          = "note"
)

var requiredCols = []string{colDate, colKind, colAmount, colAccount}

// CSVParser reads bookkeeping CSV exports. The file must carry a header row
// with at least date, kind, amount and account columns; target_account,
// category and note are optional. Rows above the header (titles, export
// metadata) are skipped.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// colIndex maps lower-cased column names to their index in the row.
type colIndex map[string]int

func (p *CSVParser) Parse(r io.Reader) ([]Row, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols, headerIdx, ok := detectHeader(rows)
	if !ok {
		return nil, fmt.Errorf("no header row found: expected columns %s", strings.Join(requiredCols, ", "))
	}

	return parseRows(cols, rows[headerIdx+1:], headerIdx)
}

// detectHeader scans rows for one containing all required columns.
func detectHeader(rows [][]string) (colIndex, int, bool) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		matched := true

		for _, name := range requiredCols {
			if _, ok := cols[name]; !ok {
				matched = false
				break
			}
		}

		if matched {
			return cols, rowIdx, true
		}
	}

	return nil, 0, false
}

// parseRows extracts statement rows. headerRowNum is the 0-based index of the
// header in the original file, used for row numbers in error messages.
func parseRows(cols colIndex, rows [][]string, headerRowNum int) ([]Row, error) {
	var out []Row

	for i, row := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, skipping header

		if isBlank(row) {
			continue
		}

		date, err := parseDate(cellValue(row, cols, colDate))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		kind, err := parseKind(cellValue(row, cols, colKind))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		amount, err := ParseAmount(cellValue(row, cols, colAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		acct := cellValue(row, cols, colAccount)
		if acct == "" {
			return nil, fmt.Errorf("row %d: missing account", rowNum)
		}

		target := cellValue(row, cols, colTargetAccount)
		if (kind == event.KindTransfer) != (target != "") {
			return nil, fmt.Errorf("row %d: target_account is required for transfers and forbidden otherwise", rowNum)
		}

		out = append(out, Row{
			Kind:          kind,
			Amount:        amount,
			Account:       acct,
			TargetAccount: target,
			Category:      cellValue(row, cols, colCategory),
			Note:          cellValue(row, cols, colNote),
			OccurredAt:    date,
		})
	}

	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly, "02-01-2006", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseKind(s string) (event.Kind, error) {
	switch event.Kind(strings.ToLower(s)) {
	case event.KindIncome:
		return event.KindIncome, nil
	case event.KindExpense:
		return event.KindExpense, nil
	case event.KindTransfer:
		return event.KindTransfer, nil
	}

	return "", fmt.Errorf("unrecognized kind %q", s)
}

func cellValue(row []string, cols colIndex, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
