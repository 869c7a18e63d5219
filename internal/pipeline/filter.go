package pipeline

import (
	"strings"
	"time"

	"github.com/paulmach/orb"

	"fpi/server/internal/models"
)

// Predicate narrows a cleaned set to the analysis-relevant subset.
// Zero-valued criteria are ignored.
type Predicate struct {
	PropertyTypes []models.PropertyType
	From          time.Time
	To            time.Time
	Departments   []int
	Communes      []int
	SalesOnly     bool
	Bounds        *orb.Bound
}

// Matches reports whether a record satisfies every set criterion.
func (p Predicate) Matches(r Record) bool {
	if len(p.PropertyTypes) > 0 && !containsType(p.PropertyTypes, r.PropertyType) {
		return false
	}
	if !p.From.IsZero() && r.Date.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && r.Date.After(p.To) {
		return false
	}
	if len(p.Departments) > 0 && !containsInt(p.Departments, r.DepartmentCode) {
		return false
	}
	if len(p.Communes) > 0 && !containsInt(p.Communes, r.CommuneCode) {
		return false
	}
	if p.SalesOnly && !strings.EqualFold(r.Nature, "vente") {
		return false
	}
	if p.Bounds != nil {
		if r.Latitude == nil || r.Longitude == nil {
			return false
		}
		if !p.Bounds.Contains(orb.Point{*r.Longitude, *r.Latitude}) {
			return false
		}
	}
	return true
}

// Filter returns the records satisfying the predicate. Pure: neither the
// input slice nor its records are modified.
func Filter(records []Record, p Predicate) []Record {
	filtered := make([]Record, 0, len(records))
	for _, record := range records {
		if p.Matches(record) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

func containsType(types []models.PropertyType, t models.PropertyType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
