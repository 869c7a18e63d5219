package pipeline

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpi/server/internal/models"
)

func typedRecord(propertyType models.PropertyType, date time.Time) Record {
	return Record{
		Date:           date,
		Nature:         "Vente",
		Price:          150000,
		PropertyType:   propertyType,
		DepartmentCode: 75,
		CommuneCode:    111,
		ParcelID:       "75111000AB0001",
	}
}

func TestFilterByPropertyType(t *testing.T) {
	march := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		typedRecord(models.PropertyTypeHouse, march),
		typedRecord(models.PropertyTypeApartment, march),
		typedRecord(models.PropertyTypeHouse, march),
		typedRecord(models.PropertyTypeApartment, march),
		typedRecord(models.PropertyTypeHouse, march),
	}

	houses := Filter(records, Predicate{PropertyTypes: []models.PropertyType{models.PropertyTypeHouse}})

	require.Len(t, houses, 3)
	for _, record := range houses {
		assert.Equal(t, models.PropertyTypeHouse, record.PropertyType)
	}
}

func TestFilterByDateRangeInclusive(t *testing.T) {
	records := []Record{
		typedRecord(models.PropertyTypeHouse, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)),
		typedRecord(models.PropertyTypeHouse, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)),
		typedRecord(models.PropertyTypeHouse, time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)),
		typedRecord(models.PropertyTypeHouse, time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)),
		typedRecord(models.PropertyTypeHouse, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	filtered := Filter(records, Predicate{
		From: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
	})

	require.Len(t, filtered, 3)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), filtered[0].Date)
	assert.Equal(t, time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), filtered[2].Date)
}

func TestFilterByDepartmentsAndCommunes(t *testing.T) {
	march := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	paris := typedRecord(models.PropertyTypeHouse, march)
	lyon := typedRecord(models.PropertyTypeHouse, march)
	lyon.DepartmentCode = 69
	lyon.CommuneCode = 123

	filtered := Filter([]Record{paris, lyon}, Predicate{Departments: []int{75}})
	require.Len(t, filtered, 1)
	assert.Equal(t, 75, filtered[0].DepartmentCode)

	filtered = Filter([]Record{paris, lyon}, Predicate{Communes: []int{123}})
	require.Len(t, filtered, 1)
	assert.Equal(t, 123, filtered[0].CommuneCode)
}

func TestFilterSalesOnly(t *testing.T) {
	march := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	sale := typedRecord(models.PropertyTypeHouse, march)
	exchange := typedRecord(models.PropertyTypeHouse, march)
	exchange.Nature = "Echange"
	upperSale := typedRecord(models.PropertyTypeHouse, march)
	upperSale.Nature = "VENTE"

	filtered := Filter([]Record{sale, exchange, upperSale}, Predicate{SalesOnly: true})
	assert.Len(t, filtered, 2)
}

func TestFilterByBounds(t *testing.T) {
	march := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	inside := typedRecord(models.PropertyTypeHouse, march)
	lat, lon := 48.86, 2.35
	inside.Latitude, inside.Longitude = &lat, &lon

	outside := typedRecord(models.PropertyTypeHouse, march)
	outLat, outLon := 45.76, 4.83
	outside.Latitude, outside.Longitude = &outLat, &outLon

	noCoords := typedRecord(models.PropertyTypeHouse, march)

	bounds := orb.Bound{Min: orb.Point{2.2, 48.8}, Max: orb.Point{2.5, 48.9}}
	filtered := Filter([]Record{inside, outside, noCoords}, Predicate{Bounds: &bounds})

	require.Len(t, filtered, 1)
	assert.Equal(t, 48.86, *filtered[0].Latitude)
}

func TestFilterEmptyPredicateKeepsEverything(t *testing.T) {
	march := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		typedRecord(models.PropertyTypeHouse, march),
		typedRecord(models.PropertyTypeApartment, march),
	}

	filtered := Filter(records, Predicate{})
	assert.Equal(t, records, filtered)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	march := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		typedRecord(models.PropertyTypeHouse, march),
		typedRecord(models.PropertyTypeApartment, march),
	}
	snapshot := make([]Record, len(records))
	copy(snapshot, records)

	Filter(records, Predicate{PropertyTypes: []models.PropertyType{models.PropertyTypeHouse}})

	assert.Equal(t, snapshot, records)
}
