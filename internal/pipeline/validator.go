package pipeline

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fpi/server/internal/ingest"
	"fpi/server/internal/models"
)

// Violation reasons reported for rejected rows.
const (
	ReasonMissing    = "missing"
	ReasonType       = "wrong type"
	ReasonOutOfRange = "out of range"
)

// Covered range of the dataset. Extracts older or newer than this are
// a sign the wrong file was fed in.
var (
	DatasetStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	DatasetEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Column aliases: raw extracts and re-exported CSVs name the same field
// differently depending on vintage, so each field is looked up under
// every known name.
var (
	colsDate         = []string{"date_mutation", "date"}
	colsNature       = []string{"nature_mutation", "nature"}
	colsPrice        = []string{"valeur_fonciere", "property_value", "price"}
	colsPostal       = []string{"code_postal", "postal_code"}
	colsDepartment   = []string{"code_departement", "department_code"}
	colsCommune      = []string{"code_commune", "town_code", "commune_code"}
	colsPropertyType = []string{"code_type_local", "type_local", "property_type_code", "type"}
	colsBuildingArea = []string{"surface_reelle_bati", "building_area", "surface"}
	colsMainRooms    = []string{"nombre_pieces_principales", "main_rooms", "rooms"}
	colsLandArea     = []string{"surface_terrain", "land_area"}
	colsParcelID     = []string{"id_parcelle", "parcel_id"}
	colsLatitude     = []string{"latitude", "lat"}
	colsLongitude    = []string{"longitude", "lon"}
)

// Validator turns raw rows into typed records, or per-row failures.
// Validation is total: one bad field rejects the row, and every violated
// field is reported, but the batch always continues.
type Validator struct {
	logger *logrus.Logger
}

func NewValidator(logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Validator{logger: logger}
}

// Validate partitions raw rows into validated records and failures.
func (v *Validator) Validate(rows []ingest.Row) ([]Record, []RowFailure) {
	var records []Record
	var failures []RowFailure

	for _, row := range rows {
		record, violations := v.validateRow(row)
		if len(violations) > 0 {
			failures = append(failures, RowFailure{
				RowIndex:   row.Index,
				Violations: violations,
				Fields:     row.Fields,
			})
			continue
		}
		records = append(records, record)
	}

	v.logger.WithFields(logrus.Fields{
		"total":    len(rows),
		"valid":    len(records),
		"rejected": len(failures),
	}).Info("Validation finished")

	return records, failures
}

func (v *Validator) validateRow(row ingest.Row) (Record, []FieldViolation) {
	var violations []FieldViolation
	record := Record{RowIndex: row.Index}

	reject := func(field, reason, value string) {
		violations = append(violations, FieldViolation{Field: field, Reason: reason, Value: value})
	}

	// Date: required, covered range
	if raw, ok := lookup(row, colsDate); !ok {
		reject("date_mutation", ReasonMissing, "")
	} else if date, err := parseDate(raw); err != nil {
		reject("date_mutation", ReasonType, raw)
	} else if date.Before(DatasetStart) || date.After(DatasetEnd) {
		reject("date_mutation", ReasonOutOfRange, raw)
	} else {
		record.Date = date
	}

	// Price: required, strictly positive, European decimal commas
	if raw, ok := lookup(row, colsPrice); !ok {
		reject("valeur_fonciere", ReasonMissing, "")
	} else if price, err := parseEuroFloat(raw); err != nil {
		reject("valeur_fonciere", ReasonType, raw)
	} else if price <= 0 {
		reject("valeur_fonciere", ReasonOutOfRange, raw)
	} else {
		record.Price = price
	}

	// Department code: required, 1..976
	if raw, ok := lookup(row, colsDepartment); !ok {
		reject("code_departement", ReasonMissing, "")
	} else if code, err := strconv.Atoi(raw); err != nil {
		reject("code_departement", ReasonType, raw)
	} else if code < 1 || code > 976 {
		reject("code_departement", ReasonOutOfRange, raw)
	} else {
		record.DepartmentCode = code
	}

	// Commune code: required, positive
	if raw, ok := lookup(row, colsCommune); !ok {
		reject("code_commune", ReasonMissing, "")
	} else if code, err := strconv.Atoi(raw); err != nil {
		reject("code_commune", ReasonType, raw)
	} else if code <= 0 {
		reject("code_commune", ReasonOutOfRange, raw)
	} else {
		record.CommuneCode = code
	}

	// Property type: required, code 1..4 or a known label
	if raw, ok := lookup(row, colsPropertyType); !ok {
		reject("code_type_local", ReasonMissing, "")
	} else if propertyType, err := models.ParsePropertyType(raw); err != nil {
		reject("code_type_local", ReasonOutOfRange, raw)
	} else {
		record.PropertyType = propertyType
	}

	// Parcel id: required, non-empty
	if raw, ok := lookup(row, colsParcelID); !ok {
		reject("id_parcelle", ReasonMissing, "")
	} else {
		record.ParcelID = raw
	}

	// Nature of the mutation: optional free text
	if raw, ok := lookup(row, colsNature); ok {
		record.Nature = raw
	}

	// Postal code: optional, 1000..99999
	if raw, ok := lookup(row, colsPostal); ok {
		if postal, err := parsePostalCode(raw); err != nil {
			reject("code_postal", ReasonType, raw)
		} else if postal < 1000 || postal > 99999 {
			reject("code_postal", ReasonOutOfRange, raw)
		} else {
			record.PostalCode = &postal
		}
	}

	// Surfaces and rooms: optional, non-negative
	record.BuildingArea = v.optionalArea(row, colsBuildingArea, "surface_reelle_bati", reject)
	record.LandArea = v.optionalArea(row, colsLandArea, "surface_terrain", reject)

	if raw, ok := lookup(row, colsMainRooms); ok {
		if rooms, err := parseEuroFloat(raw); err != nil {
			reject("nombre_pieces_principales", ReasonType, raw)
		} else if rooms < 0 {
			reject("nombre_pieces_principales", ReasonOutOfRange, raw)
		} else {
			n := int(rooms)
			record.MainRooms = &n
		}
	}

	// Coordinates: optional pair
	if raw, ok := lookup(row, colsLatitude); ok {
		if lat, err := parseEuroFloat(raw); err != nil {
			reject("latitude", ReasonType, raw)
		} else {
			record.Latitude = &lat
		}
	}
	if raw, ok := lookup(row, colsLongitude); ok {
		if lon, err := parseEuroFloat(raw); err != nil {
			reject("longitude", ReasonType, raw)
		} else {
			record.Longitude = &lon
		}
	}

	return record, violations
}

func (v *Validator) optionalArea(row ingest.Row, cols []string, field string, reject func(string, string, string)) *float64 {
	raw, ok := lookup(row, cols)
	if !ok {
		return nil
	}
	area, err := parseEuroFloat(raw)
	if err != nil {
		reject(field, ReasonType, raw)
		return nil
	}
	if area < 0 {
		reject(field, ReasonOutOfRange, raw)
		return nil
	}
	return &area
}

func lookup(row ingest.Row, cols []string) (string, bool) {
	for _, col := range cols {
		if v, ok := row.Get(col); ok {
			return v, true
		}
	}
	return "", false
}

// parseEuroFloat accepts "150000", "150000.50" and the European
// "150000,50" the raw extracts use.
func parseEuroFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// parsePostalCode tolerates postal codes exported as floats ("75001.0").
func parsePostalCode(s string) (int, error) {
	if code, err := strconv.Atoi(s); err == nil {
		return code, nil
	}
	f, err := parseEuroFloat(s)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		date, err := time.Parse(layout, s)
		if err == nil {
			return date, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
