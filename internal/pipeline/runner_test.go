package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpi/server/internal/ingest"
	"fpi/server/internal/queue"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func writeExtract(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw_2021.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunFile(t *testing.T) {
	extract := "date_mutation|nature_mutation|valeur_fonciere|code_postal|code_departement|code_commune|code_type_local|surface_reelle_bati|nombre_pieces_principales|surface_terrain|id_parcelle\n" +
		"2021-03-01|Vente|150000|75011|75|111|2|60|3|0|75111000AB0001\n" + // valid sale
		"2021-03-01|Vente|150000|75011|75|111|2|60|3|0|75111000AB0001\n" + // duplicate of the first
		"2021-04-01|Echange|200000|75011|75|111|1|90|4|50|75111000AB0002\n" + // not a sale
		"2021-05-01|Vente|-5|75011|75|111|2|60|3|0|75111000AB0003\n" // invalid price

	logger := quietLogger()
	q := queue.NewBatchQueue(4, logger)
	cleaner, err := NewCleaner([]string{KeyParcelID, KeyDate, KeyPrice}, PolicyDrop, logger)
	require.NoError(t, err)

	runner := NewRunner(ingest.NewReader('|', logger), NewValidator(logger), cleaner, q, 500, logger)
	result, err := runner.RunFile(writeExtract(t, extract), Predicate{SalesOnly: true})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Ingested)
	assert.Equal(t, 3, result.Valid)
	assert.Equal(t, 2, result.AfterClean)
	assert.Equal(t, 1, result.AfterFilter)
	assert.Equal(t, 1, result.Batches)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 5, result.Failures[0].RowIndex)

	batch, ok := q.Next()
	require.True(t, ok)
	require.Len(t, batch.Transactions, 1)
	assert.Equal(t, "75111000AB0001", batch.Transactions[0].ParcelID)
}

func TestRunFileMissingFile(t *testing.T) {
	logger := quietLogger()
	cleaner, err := NewCleaner([]string{KeyParcelID}, PolicyDrop, logger)
	require.NoError(t, err)
	runner := NewRunner(ingest.NewReader('|', logger), NewValidator(logger), cleaner, queue.NewBatchQueue(1, logger), 500, logger)

	_, err = runner.RunFile(filepath.Join(t.TempDir(), "absent.txt"), Predicate{})
	assert.Error(t, err)
}

func TestRunFileClosedQueue(t *testing.T) {
	extract := "date_mutation|nature_mutation|valeur_fonciere|code_postal|code_departement|code_commune|code_type_local|surface_reelle_bati|nombre_pieces_principales|surface_terrain|id_parcelle\n" +
		"2021-03-01|Vente|150000|75011|75|111|2|60|3|0|75111000AB0001\n"

	logger := quietLogger()
	q := queue.NewBatchQueue(1, logger)
	require.NoError(t, q.Close())

	cleaner, err := NewCleaner([]string{KeyParcelID}, PolicyDrop, logger)
	require.NoError(t, err)
	runner := NewRunner(ingest.NewReader('|', logger), NewValidator(logger), cleaner, q, 500, logger)

	_, err = runner.RunFile(writeExtract(t, extract), Predicate{})
	assert.ErrorIs(t, err, queue.ErrQueueClosed)
}
