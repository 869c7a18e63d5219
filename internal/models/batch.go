package models

// LoadBatch is one atomic unit of loading: the transactions of a batch
// together with the parent entities they reference. Parents are loaded
// first so referential integrity holds inside the batch transaction.
type LoadBatch struct {
	Locations    []*Location
	Parcels      []*Parcel
	Transactions []*Transaction
}

// Size returns the number of transactions in the batch.
func (b *LoadBatch) Size() int {
	return len(b.Transactions)
}
