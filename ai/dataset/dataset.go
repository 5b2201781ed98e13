// Package dataset defines the tabular dataset record shared by every acquisition tier,
// together with the CSV helpers that enforce its shape.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hrygo/automl/ai/core/errclass"
	"github.com/hrygo/automl/ai/intent"
)

// SourceTier identifies the acquisition tier that supplied a record.
type SourceTier string

const (
	TierLiveDownload  SourceTier = "live-download"
	TierCatalogSearch SourceTier = "catalog-search"
	TierSynthetic     SourceTier = "synthetic"
)

// Query describes what dataset a pipeline run needs.
type Query struct {
	// Identifier is a catalog ref ("owner/slug"); empty means search directly.
	Identifier  string
	SearchTerms []string
	DomainHint  string
	// TaskType shapes the generic synthetic schema.
	TaskType intent.TaskType
	// SynthRows and SynthSeed override the synthetic tier defaults for this query.
	SynthRows int
	SynthSeed *uint64
}

// Metadata is stamped by the tier that produced the record.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Identifier  string `json:"identifier,omitempty"`
}

// Record always holds a header and at least one data row.
type Record struct {
	CSVContent  string     `json:"csv_content"`
	RowCount    int        `json:"row_count"`
	ColumnCount int        `json:"column_count"`
	Columns     []string   `json:"columns"`
	SourceTier  SourceTier `json:"source_tier"`
	Metadata    Metadata   `json:"metadata"`
}

// NewRecord parses content and builds a record. Content without a header and at least
// one data row is rejected.
func NewRecord(content string, tier SourceTier, meta Metadata) (*Record, error) {
	header, rows, err := ParseCSV(content)
	if err != nil {
		return nil, err
	}
	return &Record{
		CSVContent:  content,
		RowCount:    rows,
		ColumnCount: len(header),
		Columns:     header,
		SourceTier:  tier,
		Metadata:    meta,
	}, nil
}

// Validate re-parses the content and checks that the counts still match.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", errclass.ErrEmptyResult)
	}
	header, rows, err := ParseCSV(r.CSVContent)
	if err != nil {
		return err
	}
	if rows != r.RowCount || len(header) != r.ColumnCount {
		return fmt.Errorf("record counts %dx%d do not match content %dx%d",
			r.RowCount, r.ColumnCount, rows, len(header))
	}
	return nil
}

// HasColumn reports whether the header contains name, ignoring case.
func (r *Record) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// ParseCSV returns the header and the number of data rows. Every row must have as many
// fields as the header.
func ParseCSV(content string) ([]string, int, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	if strings.TrimSpace(content) == "" {
		return nil, 0, fmt.Errorf("%w: empty csv", errclass.ErrEmptyResult)
	}

	cr := csv.NewReader(strings.NewReader(content))
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: csv header: %v", errclass.ErrParse, err)
	}
	header := make([]string, len(first))
	for i, name := range first {
		header[i] = strings.TrimSpace(name)
	}

	rows := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: csv row %d: %v", errclass.ErrParse, rows+1, err)
		}
		rows++
	}

	if rows == 0 {
		return nil, 0, fmt.Errorf("%w: csv has a header but no data rows", errclass.ErrEmptyResult)
	}
	return header, rows, nil
}

// TruncateRows keeps the header and the first maxRows data rows. A non-positive maxRows
// or content already within the limit is returned unchanged.
func TruncateRows(content string, maxRows int) (string, error) {
	if maxRows <= 0 {
		return content, nil
	}

	cr := csv.NewReader(strings.NewReader(strings.TrimPrefix(content, "\ufeff")))
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	for n := 0; n <= maxRows; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return content, nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: csv row %d: %v", errclass.ErrParse, n, err)
		}
		if err := cw.Write(rec); err != nil {
			return "", err
		}
	}

	// Only rewrite when rows were actually dropped.
	if _, err := cr.Read(); errors.Is(err, io.EOF) {
		return content, nil
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
