package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"fpi/server/internal/pipeline"
)

// Summary is the outcome of one pipeline run.
type Summary struct {
	Files      int   `json:"files"`
	Ingested   int   `json:"ingested"`
	Valid      int   `json:"valid"`
	Rejected   int   `json:"rejected"`
	AfterClean int   `json:"after_clean"`
	AfterFilt  int   `json:"after_filter"`
	Batches    int   `json:"batches"`
	Loaded     int64 `json:"loaded"`
}

// Reporter writes run artifacts: the invalid-rows export and the run
// summary log line.
type Reporter struct {
	logger *logrus.Logger
}

func NewReporter(logger *logrus.Logger) *Reporter {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Reporter{logger: logger}
}

// WriteInvalidRows exports rejected rows as invalid_rows.csv next to the
// input file so they can be inspected with the usual tools. The export
// carries the raw values plus the violated columns and reasons.
func (r *Reporter) WriteInvalidRows(inputPath string, failures []pipeline.RowFailure) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}

	columns := collectColumns(failures)
	outPath := filepath.Join(filepath.Dir(inputPath), "invalid_rows.csv")

	file, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create invalid rows file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"row_index"}, columns...)
	header = append(header, "error_columns", "error_reasons")
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, failure := range failures {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(failure.RowIndex))
		for _, column := range columns {
			record = append(record, failure.Fields[column])
		}

		errorColumns := make([]string, len(failure.Violations))
		errorReasons := make([]string, len(failure.Violations))
		for i, violation := range failure.Violations {
			errorColumns[i] = violation.Field
			errorReasons[i] = violation.Reason
		}
		record = append(record, strings.Join(errorColumns, ";"), strings.Join(errorReasons, ";"))

		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"path": outPath,
		"rows": len(failures),
	}).Info("Exported invalid rows")

	return outPath, nil
}

// LogSummary emits the run summary as structured fields.
func (r *Reporter) LogSummary(summary Summary) {
	r.logger.WithFields(logrus.Fields{
		"files":        summary.Files,
		"ingested":     summary.Ingested,
		"valid":        summary.Valid,
		"rejected":     summary.Rejected,
		"after_clean":  summary.AfterClean,
		"after_filter": summary.AfterFilt,
		"batches":      summary.Batches,
		"loaded":       summary.Loaded,
	}).Info("Pipeline run finished")
}

func collectColumns(failures []pipeline.RowFailure) []string {
	seen := make(map[string]struct{})
	for _, failure := range failures {
		for column := range failure.Fields {
			seen[column] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for column := range seen {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
