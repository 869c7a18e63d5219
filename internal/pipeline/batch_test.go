package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpi/server/internal/models"
)

func batchRecord(parcelID string, communeCode int) Record {
	land := 120.0
	return Record{
		Date:           time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		Nature:         "Vente",
		Price:          150000,
		PropertyType:   models.PropertyTypeHouse,
		DepartmentCode: 75,
		CommuneCode:    communeCode,
		ParcelID:       parcelID,
		LandArea:       &land,
	}
}

func TestBuildBatchesSplitsBySize(t *testing.T) {
	records := []Record{
		batchRecord("AB1", 111),
		batchRecord("AB2", 111),
		batchRecord("AB3", 112),
		batchRecord("AB4", 112),
		batchRecord("AB5", 113),
	}

	batches := BuildBatches(records, 2)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Transactions, 2)
	assert.Len(t, batches[1].Transactions, 2)
	assert.Len(t, batches[2].Transactions, 1)
}

func TestBuildBatchesDerivesParents(t *testing.T) {
	records := []Record{
		batchRecord("AB1", 111),
		batchRecord("AB1", 111), // same parcel sold twice
		batchRecord("AB2", 111),
		batchRecord("AB3", 112),
	}

	batches := BuildBatches(records, 0)
	require.Len(t, batches, 1)
	batch := batches[0]

	assert.Len(t, batch.Transactions, 4)

	require.Len(t, batch.Parcels, 3)
	assert.Equal(t, "AB1", batch.Parcels[0].ID)
	assert.Equal(t, 75, batch.Parcels[0].DepartmentCode)
	assert.Equal(t, 111, batch.Parcels[0].CommuneCode)
	assert.Equal(t, 120.0, batch.Parcels[0].LandArea)

	require.Len(t, batch.Locations, 2)
	assert.Equal(t, 111, batch.Locations[0].CommuneCode)
	assert.Equal(t, 75, batch.Locations[0].DepartmentCode)
	assert.Equal(t, 112, batch.Locations[1].CommuneCode)
}

func TestBuildBatchesKeepsCommunesDistinctAcrossDepartments(t *testing.T) {
	// Commune 101 exists both as a Paris arrondissement (75) and as a
	// commune of Seine-et-Marne (77)
	paris := batchRecord("AB1", 101)
	melun := batchRecord("AB2", 101)
	melun.DepartmentCode = 77

	batches := BuildBatches([]Record{paris, melun}, 0)
	require.Len(t, batches, 1)

	locations := batches[0].Locations
	require.Len(t, locations, 2)
	assert.Equal(t, 75, locations[0].DepartmentCode)
	assert.Equal(t, 77, locations[1].DepartmentCode)
	assert.Equal(t, 101, locations[0].CommuneCode)
	assert.Equal(t, 101, locations[1].CommuneCode)
}

func TestBuildBatchesEmptyInput(t *testing.T) {
	assert.Empty(t, BuildBatches(nil, 500))
}
