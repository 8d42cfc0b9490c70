package normalize

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	energy "campus-energy/internal/energy/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// physicalRecord is a CSV record tagged with its zero-based physical line.
type physicalRecord struct {
	line   int
	fields []string
}

// readPhysicalRecords parses buf and returns its records with their physical line
// indexes plus the physical line count. Blank lines count as rows.
func readPhysicalRecords(buf []byte) ([]physicalRecord, int, error) {
	buf = bytes.TrimPrefix(buf, byteOrderMark)

	lines := bytes.Count(buf, []byte("\n"))
	if len(buf) > 0 && !bytes.HasSuffix(buf, []byte("\n")) {
		lines++
	}

	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(buf)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []physicalRecord
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, physicalRecord{line: line - 1, fields: fields})
	}
	return records, lines, nil
}

func (n *Normalizer) normalizeHourly(buf []byte, layout Layout) ([]energy.CanonicalRow, error) {
	records, lines, err := readPhysicalRecords(buf)
	if err != nil {
		return nil, err
	}
	if layout.MinRows > 0 && lines < layout.MinRows {
		return nil, &energy.InsufficientRowsError{Kind: energy.SourceHourlyCSV, Got: lines, Need: layout.MinRows}
	}

	var header []string
	for _, rec := range records {
		if rec.line == layout.HeaderRowIndex {
			header = rec.fields
			break
		}
	}
	columns := make(map[int]energy.Building, len(header))
	for i, h := range header {
		if i == 0 {
			continue
		}
		if b, ok := energy.BuildingFromHeader(h); ok {
			columns[i] = b
		}
	}

	out := []energy.CanonicalRow{}
	for _, rec := range records {
		if rec.line < layout.DataStart() {
			continue
		}
		row, ok := hourlyRow(rec.fields, columns)
		if !ok {
			n.logger.Debug("hourly row dropped", n.lineField(rec.line))
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// hourlyRow maps one data record; ok is false when the timestamp is blank
// or no building carries a usable reading.
func hourlyRow(fields []string, columns map[int]energy.Building) (energy.CanonicalRow, bool) {
	ts := strings.TrimSpace(cell(fields, 0))
	if ts == "" {
		return nil, false
	}

	row := energy.CanonicalRow{}
	if t, ok := parseTime(ts, timestampLayouts); ok {
		row[energy.FieldTimestamp] = t
	} else {
		row[energy.FieldTimestamp] = ts
	}
	for _, b := range energy.Buildings {
		row[string(b)] = nil
	}

	total := decimal.Zero
	usable := 0
	for i, b := range columns {
		raw := strings.TrimSpace(cell(fields, i))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		v, _ := d.Float64()
		row[string(b)] = v
		total = total.Add(d)
		usable++
	}
	if usable == 0 {
		return nil, false
	}
	row[energy.FieldTotalKWh] = energy.FormatKWh(total)
	return row, true
}
