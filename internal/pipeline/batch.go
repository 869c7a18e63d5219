package pipeline

import (
	"fpi/server/internal/models"
)

// BuildBatches groups filtered records into load batches of at most
// size transactions, deriving the parcel and location entities each
// batch depends on. Parents are deduplicated within a batch; across
// batches the loader's upserts keep them consistent.
func BuildBatches(records []Record, size int) []*models.LoadBatch {
	if size <= 0 {
		size = len(records)
	}

	var batches []*models.LoadBatch
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, buildBatch(records[start:end]))
	}
	return batches
}

// communeKey identifies a commune. The in-department code alone is not
// unique: Paris arrondissement codes collide with communes of the
// surrounding departments.
type communeKey struct {
	department int
	commune    int
}

func buildBatch(records []Record) *models.LoadBatch {
	batch := &models.LoadBatch{}

	locations := make(map[communeKey]*models.Location)
	parcels := make(map[string]*models.Parcel)

	for _, record := range records {
		key := communeKey{department: record.DepartmentCode, commune: record.CommuneCode}
		if _, ok := locations[key]; !ok {
			location := &models.Location{
				CommuneCode:    record.CommuneCode,
				DepartmentCode: record.DepartmentCode,
			}
			locations[key] = location
			batch.Locations = append(batch.Locations, location)
		}

		if _, ok := parcels[record.ParcelID]; !ok {
			parcel := &models.Parcel{
				ID:             record.ParcelID,
				DepartmentCode: record.DepartmentCode,
				CommuneCode:    record.CommuneCode,
			}
			if record.LandArea != nil {
				parcel.LandArea = *record.LandArea
			}
			parcels[record.ParcelID] = parcel
			batch.Parcels = append(batch.Parcels, parcel)
		}

		batch.Transactions = append(batch.Transactions, record.Transaction())
	}

	return batch
}
