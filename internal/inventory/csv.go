// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
)

// manifestRow is one CSV row addressed by header name.
type manifestRow struct {
	cols   map[string]int
	fields []string
}

// get returns the first non-empty value among the named columns.
func (r manifestRow) get(names ...string) string {
	for _, n := range names {
		i, ok := r.cols[strings.ToLower(n)]
		if !ok || i >= len(r.fields) {
			continue
		}
		if v := strings.TrimSpace(r.fields[i]); v != "" {
			return v
		}
	}
	return ""
}

// readManifestCSV reads a header-led CSV file. A missing file yields no rows
// and no error; blank rows are skipped.
func readManifestCSV(path string) ([]manifestRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &ManifestError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &ManifestError{Path: path, Err: err}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var rows []manifestRow
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ManifestError{Path: path, Err: err}
		}
		if blank(fields) {
			continue
		}
		rows = append(rows, manifestRow{cols: cols, fields: fields})
	}
	return rows, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
