package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("input file is empty")

// Row is one raw record from a DVF extract: normalized column name to
// raw string value, plus the 1-based position in the source file so
// rejected rows can be traced back.
type Row struct {
	Index  int
	Fields map[string]string
}

// Get returns the value for a column and whether the column was present
// and non-empty.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Reader ingests government-published DVF extracts. Raw yearly extracts
// use '|' as separator, re-exported CSVs use ','.
type Reader struct {
	delimiter rune
	logger    *logrus.Logger
}

// NewReader creates a reader for the given column separator.
func NewReader(delimiter rune, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Reader{delimiter: delimiter, logger: logger}
}

// ReadFile reads every record from a delimited file.
func (r *Reader) ReadFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	rows, err := r.Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

// Read reads delimited records from an arbitrary source. The first line
// is the header; its names are normalized before use. Malformed lines
// are skipped and counted, never fatal.
func (r *Reader) Read(src io.Reader) ([]Row, error) {
	reader := csv.NewReader(src)
	reader.Comma = r.delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := normalizeColumns(header)

	var rows []Row
	var skipped int
	index := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		index++
		if err != nil {
			skipped++
			continue
		}
		if len(record) != len(columns) {
			skipped++
			continue
		}

		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			fields[col] = record[i]
		}
		rows = append(rows, Row{Index: index, Fields: fields})
	}

	if skipped > 0 {
		r.logger.WithField("skipped", skipped).Warn("Skipped malformed lines during ingestion")
	}
	r.logger.WithField("rows", len(rows)).Info("Ingested raw rows")

	return rows, nil
}

// normalizeColumns lowercases and underscores header names so the rest
// of the pipeline sees a single naming scheme regardless of the vintage
// of the extract.
func normalizeColumns(header []string) []string {
	columns := make([]string, len(header))
	for i, col := range header {
		c := strings.ToLower(strings.TrimSpace(col))
		c = strings.ReplaceAll(c, " ", "_")
		c = strings.ReplaceAll(c, "’", "_")
		c = strings.ReplaceAll(c, "'", "_")
		columns[i] = c
	}
	return columns
}
