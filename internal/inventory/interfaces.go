// Package inventory implements a fixed-footprint warehouse: a fixed number of
// sectors, each a bounded min-heap of products ordered by popularity. Space is kept
// constant by evicting the least popular product of a full sector, never by
// growing storage.
package inventory

// Inventory is the operation surface the command driver calls. None of the
// operations report failure: an unknown id, an insufficient stock level or a full
// sector leave the state unchanged or resolve themselves through eviction.
type Inventory interface {
	AddProduct(id int, name string, stock, day, demand int)
	BetterAddProduct(id int, name string, stock, day, demand int)
	RestockProduct(id, amount int)
	PurchaseProduct(id, day, amount int)
	DeleteProduct(id int)

	// Dump lists every sector in index order, each with its active slots in
	// array order.
	Dump() string
}

// Stats counts warehouse operations since construction.
type Stats struct {
	Adds              uint64 `json:"adds"`
	Evictions         uint64 `json:"evictions"`
	Displaced         uint64 `json:"displaced"` // adds placed outside their home sector
	Restocks          uint64 `json:"restocks"`
	Purchases         uint64 `json:"purchases"`
	RejectedPurchases uint64 `json:"rejected_purchases"`
	Deletes           uint64 `json:"deletes"`
	Misses            uint64 `json:"misses"`
}

// Location identifies the sector and slot currently holding a product.
type Location struct {
	Sector int `json:"sector"`
	Slot   int `json:"slot"`
}

// SectorSnapshot is a read-only copy of one sector.
type SectorSnapshot struct {
	Index    int       `json:"index"`
	Size     int       `json:"size"`
	Capacity int       `json:"capacity"`
	Products []Product `json:"products"`
}

// EvictionHandler is invoked after a product has been evicted from a full sector.
type EvictionHandler func(sector int, evicted Product)
