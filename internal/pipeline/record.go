package pipeline

import (
	"fmt"
	"strconv"
	"time"

	"fpi/server/internal/models"
)

// Record is a fully validated DVF row. Optional fields stay nil until
// the cleaner resolves them, so the missing-value policy can tell
// "absent" from "zero".
type Record struct {
	RowIndex       int
	Date           time.Time
	Nature         string
	Price          float64
	PropertyType   models.PropertyType
	DepartmentCode int
	CommuneCode    int
	ParcelID       string
	PostalCode     *int
	BuildingArea   *float64
	MainRooms      *int
	LandArea       *float64
	Latitude       *float64
	Longitude      *float64
}

// Dedup key field names accepted in configuration.
const (
	KeyParcelID     = "parcel_id"
	KeyDate         = "date"
	KeyPrice        = "price"
	KeyPropertyType = "property_type"
	KeyCommuneCode  = "commune_code"
)

// EqualityKey builds the duplicate-detection key for the configured
// fields, in field order. Fields must have been checked by the cleaner
// constructor.
func (r Record) EqualityKey(fields []string) string {
	key := ""
	for _, field := range fields {
		switch field {
		case KeyParcelID:
			key += r.ParcelID
		case KeyDate:
			key += r.Date.Format("2006-01-02")
		case KeyPrice:
			key += strconv.FormatFloat(r.Price, 'f', 2, 64)
		case KeyPropertyType:
			key += strconv.Itoa(int(r.PropertyType))
		case KeyCommuneCode:
			key += strconv.Itoa(r.CommuneCode)
		}
		key += "|"
	}
	return key
}

// Transaction converts a cleaned record into its storable form.
// Optional fields must have been resolved first.
func (r Record) Transaction() *models.Transaction {
	t := &models.Transaction{
		Date:           r.Date,
		Nature:         r.Nature,
		Price:          r.Price,
		PropertyType:   r.PropertyType,
		DepartmentCode: r.DepartmentCode,
		CommuneCode:    r.CommuneCode,
		ParcelID:       r.ParcelID,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
	}
	if r.PostalCode != nil {
		t.PostalCode = *r.PostalCode
	}
	if r.BuildingArea != nil {
		t.BuildingArea = *r.BuildingArea
	}
	if r.MainRooms != nil {
		t.MainRooms = *r.MainRooms
	}
	if r.LandArea != nil {
		t.LandArea = *r.LandArea
	}
	return t
}

// FieldViolation describes one constraint a raw value broke.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  string `json:"value"`
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s (%q)", v.Field, v.Reason, v.Value)
}

// RowFailure is the validation outcome of a rejected row. The raw
// fields are kept so the row can be exported for inspection.
type RowFailure struct {
	RowIndex   int               `json:"row_index"`
	Violations []FieldViolation  `json:"violations"`
	Fields     map[string]string `json:"fields"`
}
