package pipeline

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpi/server/internal/ingest"
	"fpi/server/internal/models"
)

func validRow(index int) ingest.Row {
	return ingest.Row{
		Index: index,
		Fields: map[string]string{
			"date_mutation":             "2021-03-01",
			"nature_mutation":           "Vente",
			"valeur_fonciere":           "150000",
			"code_postal":               "75011",
			"code_departement":          "75",
			"code_commune":              "111",
			"code_type_local":           "2",
			"surface_reelle_bati":       "60",
			"nombre_pieces_principales": "3",
			"surface_terrain":           "0",
			"id_parcelle":               "75111000AB0001",
		},
	}
}

func TestValidateAcceptsWellFormedRow(t *testing.T) {
	validator := NewValidator(logrus.New())

	records, failures := validator.Validate([]ingest.Row{validRow(2)})
	require.Empty(t, failures)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, 150000.0, record.Price)
	assert.Equal(t, models.PropertyTypeApartment, record.PropertyType)
	assert.Equal(t, 75, record.DepartmentCode)
	assert.Equal(t, 111, record.CommuneCode)
	assert.Equal(t, "75111000AB0001", record.ParcelID)
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), record.Date)
	require.NotNil(t, record.BuildingArea)
	assert.Equal(t, 60.0, *record.BuildingArea)
}

func TestValidateAcceptsEuropeanDecimalsAndLabels(t *testing.T) {
	row := validRow(2)
	row.Fields["valeur_fonciere"] = "150000,50"
	row.Fields["code_type_local"] = "appartement"
	row.Fields["date_mutation"] = "01/03/2021"

	validator := NewValidator(logrus.New())
	records, failures := validator.Validate([]ingest.Row{row})
	require.Empty(t, failures)
	require.Len(t, records, 1)

	assert.Equal(t, 150000.50, records[0].Price)
	assert.Equal(t, models.PropertyTypeApartment, records[0].PropertyType)
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
}

func TestValidateAcceptsAliasColumns(t *testing.T) {
	// Re-exported files use short column names instead of the raw
	// extract's French ones
	row := ingest.Row{
		Index: 2,
		Fields: map[string]string{
			"date":            "2021-03-01",
			"price":           "150000",
			"surface":         "60",
			"type":            "appartement",
			"department_code": "75",
			"commune_code":    "111",
			"parcel_id":       "75111000AB0001",
		},
	}

	validator := NewValidator(logrus.New())
	records, failures := validator.Validate([]ingest.Row{row})
	require.Empty(t, failures)
	require.Len(t, records, 1)

	assert.Equal(t, 150000.0, records[0].Price)
	require.NotNil(t, records[0].BuildingArea)
	assert.Equal(t, 60.0, *records[0].BuildingArea)
	assert.Equal(t, models.PropertyTypeApartment, records[0].PropertyType)
}

func TestValidateRejectsBadRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ingest.Row)
		field  string
		reason string
	}{
		{
			name:   "negative price",
			mutate: func(r ingest.Row) { r.Fields["valeur_fonciere"] = "-150000" },
			field:  "valeur_fonciere",
			reason: ReasonOutOfRange,
		},
		{
			name:   "zero price",
			mutate: func(r ingest.Row) { r.Fields["valeur_fonciere"] = "0" },
			field:  "valeur_fonciere",
			reason: ReasonOutOfRange,
		},
		{
			name:   "negative building area",
			mutate: func(r ingest.Row) { r.Fields["surface_reelle_bati"] = "-60" },
			field:  "surface_reelle_bati",
			reason: ReasonOutOfRange,
		},
		{
			name:   "negative land area",
			mutate: func(r ingest.Row) { r.Fields["surface_terrain"] = "-1" },
			field:  "surface_terrain",
			reason: ReasonOutOfRange,
		},
		{
			name:   "missing date",
			mutate: func(r ingest.Row) { delete(r.Fields, "date_mutation") },
			field:  "date_mutation",
			reason: ReasonMissing,
		},
		{
			name:   "date before covered range",
			mutate: func(r ingest.Row) { r.Fields["date_mutation"] = "2019-06-01" },
			field:  "date_mutation",
			reason: ReasonOutOfRange,
		},
		{
			name:   "date after covered range",
			mutate: func(r ingest.Row) { r.Fields["date_mutation"] = "2025-01-01" },
			field:  "date_mutation",
			reason: ReasonOutOfRange,
		},
		{
			name:   "unparseable price",
			mutate: func(r ingest.Row) { r.Fields["valeur_fonciere"] = "abc" },
			field:  "valeur_fonciere",
			reason: ReasonType,
		},
		{
			name:   "department out of range",
			mutate: func(r ingest.Row) { r.Fields["code_departement"] = "977" },
			field:  "code_departement",
			reason: ReasonOutOfRange,
		},
		{
			name:   "postal code out of range",
			mutate: func(r ingest.Row) { r.Fields["code_postal"] = "999" },
			field:  "code_postal",
			reason: ReasonOutOfRange,
		},
		{
			name:   "property type out of range",
			mutate: func(r ingest.Row) { r.Fields["code_type_local"] = "5" },
			field:  "code_type_local",
			reason: ReasonOutOfRange,
		},
		{
			name:   "missing parcel id",
			mutate: func(r ingest.Row) { delete(r.Fields, "id_parcelle") },
			field:  "id_parcelle",
			reason: ReasonMissing,
		},
	}

	validator := NewValidator(logrus.New())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow(2)
			tt.mutate(row)

			records, failures := validator.Validate([]ingest.Row{row})
			assert.Empty(t, records)
			require.Len(t, failures, 1)
			require.NotEmpty(t, failures[0].Violations)

			found := false
			for _, violation := range failures[0].Violations {
				if violation.Field == tt.field {
					assert.Equal(t, tt.reason, violation.Reason)
					found = true
				}
			}
			assert.True(t, found, "expected a violation on %s", tt.field)
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	row := validRow(2)
	row.Fields["valeur_fonciere"] = "-1"
	row.Fields["surface_reelle_bati"] = "-1"

	validator := NewValidator(logrus.New())
	_, failures := validator.Validate([]ingest.Row{row})
	require.Len(t, failures, 1)
	assert.Len(t, failures[0].Violations, 2)
}

func TestValidateContinuesAfterFailures(t *testing.T) {
	bad := validRow(2)
	bad.Fields["valeur_fonciere"] = "-1"
	good := validRow(3)

	validator := NewValidator(logrus.New())
	records, failures := validator.Validate([]ingest.Row{bad, good})

	assert.Len(t, records, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].RowIndex)
	assert.Equal(t, bad.Fields, failures[0].Fields)
}

func TestValidateOptionalFieldsStayNil(t *testing.T) {
	row := validRow(2)
	delete(row.Fields, "surface_terrain")
	delete(row.Fields, "code_postal")

	validator := NewValidator(logrus.New())
	records, failures := validator.Validate([]ingest.Row{row})
	require.Empty(t, failures)
	require.Len(t, records, 1)

	assert.Nil(t, records[0].LandArea)
	assert.Nil(t, records[0].PostalCode)
}
