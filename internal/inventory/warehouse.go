package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Default layout.
const (
	DefaultSectors        = 10
	DefaultSectorCapacity = 5
)

// Config holds the fixed layout of a warehouse.
type Config struct {
	Sectors        int
	SectorCapacity int
	Popularity     string
}

// DefaultConfig returns 10 sectors of 5 slots ordered by demand plus recency.
func DefaultConfig() Config {
	return Config{
		Sectors:        DefaultSectors,
		SectorCapacity: DefaultSectorCapacity,
		Popularity:     DefaultPopularity,
	}
}

// Warehouse routes products to sectors and keeps every sector heap-ordered after
// each mutation. It is not safe for concurrent use.
type Warehouse struct {
	config  Config
	sectors []*Sector

	// directory maps every resident id to the sector holding it. Products placed
	// by BetterAddProduct outside their home sector stay reachable through it.
	directory map[int]int

	stats   Stats
	onEvict EvictionHandler
}

var _ Inventory = (*Warehouse)(nil)

// New creates a warehouse with cfg.Sectors empty sectors.
func New(cfg Config) (*Warehouse, error) {
	if cfg.Sectors <= 0 {
		return nil, fmt.Errorf("sector count must be greater than 0, got %d", cfg.Sectors)
	}
	if cfg.SectorCapacity <= 0 {
		return nil, fmt.Errorf("sector capacity must be greater than 0, got %d", cfg.SectorCapacity)
	}
	if cfg.Popularity == "" {
		cfg.Popularity = DefaultPopularity
	}
	popularity, err := LookupPopularity(cfg.Popularity)
	if err != nil {
		return nil, err
	}

	w := &Warehouse{
		config:    cfg,
		sectors:   make([]*Sector, cfg.Sectors),
		directory: make(map[int]int),
	}
	for i := range w.sectors {
		w.sectors[i] = NewSector(cfg.SectorCapacity, popularity)
	}
	return w, nil
}

// OnEvict registers the handler called for every eviction. A nil handler
// disables the callback.
func (w *Warehouse) OnEvict(handler EvictionHandler) {
	w.onEvict = handler
}

// Home returns the sector an id routes to by default. Negative ids wrap into
// range instead of producing a negative index.
func (w *Warehouse) Home(id int) int {
	n := len(w.sectors)
	return ((id % n) + n) % n
}

// AddProduct inserts a product into its home sector, evicting the sector's least
// popular product first when the sector is full. Re-adding a resident id replaces
// the resident.
func (w *Warehouse) AddProduct(id int, name string, stock, day, demand int) {
	w.remove(id)
	w.insert(w.Home(id), NewProduct(id, name, stock, day, demand))
}

// BetterAddProduct inserts a product into the first sector with a free slot,
// probing circularly from the home sector. Only when every sector is full does it
// fall back to evicting from the home sector.
func (w *Warehouse) BetterAddProduct(id int, name string, stock, day, demand int) {
	w.remove(id)
	home := w.Home(id)
	target, ok := w.bestSector(home)
	if !ok {
		target = home
	}
	if target != home {
		w.stats.Displaced++
	}
	w.insert(target, NewProduct(id, name, stock, day, demand))
}

// bestSector probes home, home+1, ... wrapping around, and returns the first
// sector that is not full.
func (w *Warehouse) bestSector(home int) (int, bool) {
	n := len(w.sectors)
	for probe := 0; probe < n; probe++ {
		i := (home + probe) % n
		if !w.sectors[i].IsFull() {
			return i, true
		}
	}
	return 0, false
}

func (w *Warehouse) insert(index int, p *Product) {
	sector := w.sectors[index]
	if sector.IsFull() {
		evicted := sector.EvictRoot()
		delete(w.directory, evicted.ID)
		w.stats.Evictions++
		if w.onEvict != nil {
			w.onEvict(index, *evicted)
		}
	}
	sector.Add(p)
	sector.Swim(sector.Size())
	w.directory[p.ID] = index
	w.stats.Adds++
}

// RestockProduct adds amount to the stock of a resident product. Unknown ids are
// ignored.
func (w *Warehouse) RestockProduct(id, amount int) {
	sector, slot, ok := w.lookup(id)
	if !ok {
		return
	}
	sector.Get(slot).UpdateStock(amount)
	// Stock is not part of any popularity order; this only re-checks the tail.
	sector.Swim(sector.Size())
	w.stats.Restocks++
}

// PurchaseProduct removes amount from stock, records the purchase day and adds
// amount to demand, all or nothing. Purchases exceeding the stock level, or with
// a negative amount, are rejected without touching the product.
func (w *Warehouse) PurchaseProduct(id, day, amount int) {
	sector, slot, ok := w.lookup(id)
	if !ok {
		return
	}
	p := sector.Get(slot)
	if amount < 0 || p.Stock < amount {
		w.stats.RejectedPurchases++
		return
	}
	p.UpdateStock(-amount)
	p.SetLastPurchaseDay(day)
	p.UpdateDemand(amount)
	sector.Fix(slot)
	w.stats.Purchases++
}

// DeleteProduct removes a resident product. Unknown ids are ignored.
func (w *Warehouse) DeleteProduct(id int) {
	if !w.remove(id) {
		w.stats.Misses++
		return
	}
	w.stats.Deletes++
}

// remove moves the product to the last slot, drops it and re-heaps the vacated
// slot in both directions.
func (w *Warehouse) remove(id int) bool {
	index, ok := w.directory[id]
	if !ok {
		return false
	}
	sector := w.sectors[index]
	slot, ok := sector.Find(id)
	if !ok {
		delete(w.directory, id)
		return false
	}
	sector.Swap(slot, sector.Size())
	sector.DeleteLast()
	if slot <= sector.Size() {
		sector.Fix(slot)
	}
	delete(w.directory, id)
	return true
}

func (w *Warehouse) lookup(id int) (*Sector, int, bool) {
	index, ok := w.directory[id]
	if !ok {
		w.stats.Misses++
		return nil, 0, false
	}
	sector := w.sectors[index]
	slot, ok := sector.Find(id)
	if !ok {
		w.stats.Misses++
		return nil, 0, false
	}
	return sector, slot, true
}

// Locate reports where id currently lives.
func (w *Warehouse) Locate(id int) (Location, bool) {
	index, ok := w.directory[id]
	if !ok {
		return Location{}, false
	}
	slot, ok := w.sectors[index].Find(id)
	if !ok {
		return Location{}, false
	}
	return Location{Sector: index, Slot: slot}, true
}

// Product returns a copy of a resident product.
func (w *Warehouse) Product(id int) (Product, bool) {
	loc, ok := w.Locate(id)
	if !ok {
		return Product{}, false
	}
	return *w.sectors[loc.Sector].Get(loc.Slot), true
}

// Sector returns a snapshot of sector i.
func (w *Warehouse) Sector(i int) (SectorSnapshot, bool) {
	if i < 0 || i >= len(w.sectors) {
		return SectorSnapshot{}, false
	}
	s := w.sectors[i]
	return SectorSnapshot{
		Index:    i,
		Size:     s.Size(),
		Capacity: s.Capacity(),
		Products: s.Products(),
	}, true
}

// Sectors returns snapshots of every sector in index order.
func (w *Warehouse) Sectors() []SectorSnapshot {
	out := make([]SectorSnapshot, 0, len(w.sectors))
	for i := range w.sectors {
		snap, _ := w.Sector(i)
		out = append(out, snap)
	}
	return out
}

// Len returns the number of resident products.
func (w *Warehouse) Len() int {
	return len(w.directory)
}

func (w *Warehouse) Config() Config { return w.config }
func (w *Warehouse) Stats() Stats   { return w.stats }

func (w *Warehouse) Dump() string {
	var b strings.Builder
	b.WriteString("[\n")
	for _, s := range w.sectors {
		b.WriteByte('\t')
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	b.WriteByte(']')
	return b.String()
}

func (w *Warehouse) String() string {
	return w.Dump()
}

// Digest fingerprints the dump so two runs can be compared without holding both
// listings.
func (w *Warehouse) Digest() uint64 {
	return xxhash.Sum64String(w.Dump())
}

// Verify checks the capacity, heap and directory invariants of every sector.
func (w *Warehouse) Verify() error {
	var errs []error
	seen := make(map[int]int, len(w.directory))
	for index, s := range w.sectors {
		if s.Size() < 0 || s.Size() > s.Capacity() {
			errs = append(errs, fmt.Errorf("sector %d: size %d outside 0..%d", index, s.Size(), s.Capacity()))
		}
		for i := 2; i <= s.Size(); i++ {
			if s.Popularity(i/2) > s.Popularity(i) {
				errs = append(errs, fmt.Errorf("sector %d: slot %d more popular than child slot %d", index, i/2, i))
			}
		}
		for i := 1; i <= s.Size(); i++ {
			id := s.Get(i).ID
			if prev, dup := seen[id]; dup {
				errs = append(errs, fmt.Errorf("product %d held by sectors %d and %d", id, prev, index))
			}
			seen[id] = index
			if dir, ok := w.directory[id]; !ok || dir != index {
				errs = append(errs, fmt.Errorf("product %d in sector %d but directory says %d (present=%t)", id, index, dir, ok))
			}
		}
	}
	if len(seen) != len(w.directory) {
		errs = append(errs, fmt.Errorf("directory holds %d ids, sectors hold %d", len(w.directory), len(seen)))
	}
	return errors.Join(errs...)
}
