package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PropertyType is the DVF "code type local" for a property.
type PropertyType int

const (
	PropertyTypeHouse       PropertyType = 1 // maison
	PropertyTypeApartment   PropertyType = 2 // appartement
	PropertyTypeOutbuilding PropertyType = 3 // dépendance
	PropertyTypeCommercial  PropertyType = 4 // local industriel ou commercial
)

// String returns the DVF label for the property type.
func (t PropertyType) String() string {
	switch t {
	case PropertyTypeHouse:
		return "maison"
	case PropertyTypeApartment:
		return "appartement"
	case PropertyTypeOutbuilding:
		return "dependance"
	case PropertyTypeCommercial:
		return "local"
	default:
		return "unknown"
	}
}

// ParsePropertyType accepts either a numeric DVF code or a known label.
// English aliases are accepted so API clients don't need the French names.
func ParsePropertyType(value string) (PropertyType, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	if code, err := strconv.Atoi(s); err == nil {
		if code < 1 || code > 4 {
			return 0, fmt.Errorf("property type code out of range: %d", code)
		}
		return PropertyType(code), nil
	}

	switch s {
	case "maison", "house":
		return PropertyTypeHouse, nil
	case "appartement", "apartment":
		return PropertyTypeApartment, nil
	case "dependance", "dépendance", "land", "terrain":
		return PropertyTypeOutbuilding, nil
	case "local", "other", "commercial":
		return PropertyTypeCommercial, nil
	}
	return 0, fmt.Errorf("unknown property type: %q", value)
}

// Transaction is one recorded sale from the DVF dataset. Rows are
// historical facts: once loaded they are never updated in place, only
// superseded by reloading a newer extract.
type Transaction struct {
	ID             int64        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Date           time.Time    `gorm:"column:date;index;uniqueIndex:idx_transactions_natural,priority:2" json:"date"`
	Nature         string       `gorm:"column:nature" json:"nature"`
	Price          float64      `gorm:"column:price;uniqueIndex:idx_transactions_natural,priority:3" json:"price"`
	PropertyType   PropertyType `gorm:"column:property_type;uniqueIndex:idx_transactions_natural,priority:4" json:"property_type"`
	BuildingArea   float64      `gorm:"column:building_area;uniqueIndex:idx_transactions_natural,priority:5" json:"building_area"`
	MainRooms      int          `gorm:"column:main_rooms" json:"main_rooms"`
	LandArea       float64      `gorm:"column:land_area" json:"land_area"`
	PostalCode     int          `gorm:"column:postal_code" json:"postal_code"`
	DepartmentCode int          `gorm:"column:department_code;index" json:"department_code"`
	CommuneCode    int          `gorm:"column:commune_code;index" json:"commune_code"`
	ParcelID       string       `gorm:"column:parcel_id;index;uniqueIndex:idx_transactions_natural,priority:1" json:"parcel_id"`
	Latitude       *float64     `gorm:"column:latitude" json:"latitude"`
	Longitude      *float64     `gorm:"column:longitude" json:"longitude"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

// Parcel is the cadastral unit a transaction refers to. Many
// transactions can reference the same parcel (resales, lots).
type Parcel struct {
	ID             string  `gorm:"column:id;primaryKey" json:"id"`
	DepartmentCode int     `gorm:"column:department_code" json:"department_code"`
	CommuneCode    int     `gorm:"column:commune_code;index" json:"commune_code"`
	LandArea       float64 `gorm:"column:land_area" json:"land_area"`
}

func (Parcel) TableName() string { return "parcels" }

// Location is the commune-level geographic reference used to group and
// filter transactions. DVF commune codes repeat across departments, so
// the key is the (commune, department) pair. Name, region and centre
// coordinates come from the commune directory and may be absent until a
// refresh runs.
type Location struct {
	CommuneCode    int      `gorm:"column:commune_code;primaryKey" json:"commune_code"`
	DepartmentCode int      `gorm:"column:department_code;primaryKey;index" json:"department_code"`
	CommuneName    string   `gorm:"column:commune_name" json:"commune_name"`
	Region         string   `gorm:"column:region" json:"region"`
	Latitude       *float64 `gorm:"column:latitude" json:"latitude"`
	Longitude      *float64 `gorm:"column:longitude" json:"longitude"`
	DetailsFetched bool     `gorm:"column:details_fetched;default:false" json:"-"`
}

func (Location) TableName() string { return "locations" }

// MarketStats summarizes the transactions matching a query.
type MarketStats struct {
	TotalTransactions int     `json:"total_transactions"`
	AveragePrice      float64 `json:"average_price"`
	MedianPrice       float64 `json:"median_price"`
	MinPrice          float64 `json:"min_price"`
	MaxPrice          float64 `json:"max_price"`
	AvgPricePerSqm    float64 `json:"avg_price_per_sqm"`
	HouseCount        int     `json:"house_count"`
	ApartmentCount    int     `json:"apartment_count"`
}

// DepartmentStats aggregates transactions for a single department.
type DepartmentStats struct {
	DepartmentCode   int     `json:"department_code"`
	TransactionCount int     `json:"transaction_count"`
	AveragePrice     float64 `json:"average_price"`
	AvgPricePerSqm   float64 `json:"avg_price_per_sqm"`
}

// Region is a named group of departments used as a geographic filter,
// e.g. Île-de-France as the eight departments around Paris.
type Region struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Departments []int  `json:"departments"`
}
