package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// Sector contract violations. These indicate a bug in the caller, not bad input,
// so the sector panics with them instead of returning them.
var (
	ErrSectorFull     = errors.New("sector is full")
	ErrSectorEmpty    = errors.New("sector is empty")
	ErrSlotOutOfRange = errors.New("slot out of range")
)

// Sector is a bounded min-heap of products keyed by popularity. Slots are
// 1-indexed: slot 1 is the root, the parent of slot i is i/2 and its children are
// 2i and 2i+1. Slot 0 of the backing array is never used.
type Sector struct {
	slots      []*Product
	size       int
	popularity Popularity
}

// NewSector allocates a sector holding at most capacity products. The backing
// array never grows.
func NewSector(capacity int, popularity Popularity) *Sector {
	if capacity <= 0 {
		panic(fmt.Sprintf("inventory: sector capacity must be positive, got %d", capacity))
	}
	if popularity == nil {
		popularity = popularities[DefaultPopularity]
	}
	return &Sector{
		slots:      make([]*Product, capacity+1),
		popularity: popularity,
	}
}

// Get returns the product at slot i, or nil when i is not an active slot.
func (s *Sector) Get(i int) *Product {
	if i < 1 || i > s.size {
		return nil
	}
	return s.slots[i]
}

// Set overwrites active slot i.
func (s *Sector) Set(i int, p *Product) {
	s.checkSlot(i)
	s.slots[i] = p
}

// Add appends p at slot size+1. The caller restores heap order with Swim.
func (s *Sector) Add(p *Product) {
	if s.size == s.Capacity() {
		panic(fmt.Errorf("inventory: add product %d: %w", p.ID, ErrSectorFull))
	}
	s.size++
	s.slots[s.size] = p
}

// Swap exchanges the contents of two active slots.
func (s *Sector) Swap(i, j int) {
	s.checkSlot(i)
	s.checkSlot(j)
	s.slots[i], s.slots[j] = s.slots[j], s.slots[i]
}

// DeleteLast clears the last active slot.
func (s *Sector) DeleteLast() {
	if s.size == 0 {
		panic(fmt.Errorf("inventory: delete last: %w", ErrSectorEmpty))
	}
	s.slots[s.size] = nil
	s.size--
}

// less reports whether slot i is strictly less popular than slot j.
func (s *Sector) less(i, j int) bool {
	return s.popularity(s.slots[i]) < s.popularity(s.slots[j])
}

// Swim moves the product at slot i toward the root while its parent is more
// popular than it is.
func (s *Sector) Swim(i int) {
	if i < 1 || i > s.size {
		return
	}
	for i > 1 && s.less(i, i/2) {
		s.slots[i], s.slots[i/2] = s.slots[i/2], s.slots[i]
		i /= 2
	}
}

// Sink moves the product at slot i toward the leaves while its least popular
// child is less popular than it is. The left child wins ties. Reports whether the
// product moved.
func (s *Sector) Sink(i int) bool {
	if i < 1 || i > s.size {
		return false
	}
	start := i
	for 2*i <= s.size {
		j := 2 * i
		if j+1 <= s.size && s.less(j+1, j) {
			j++
		}
		if !s.less(j, i) {
			break
		}
		s.slots[i], s.slots[j] = s.slots[j], s.slots[i]
		i = j
	}
	return i > start
}

// Fix restores heap order after the product at slot i changed popularity in
// either direction.
func (s *Sector) Fix(i int) {
	if !s.Sink(i) {
		s.Swim(i)
	}
}

// EvictRoot removes and returns the least popular product: the root swaps with
// the last slot, the last slot is cleared and the new root sinks.
func (s *Sector) EvictRoot() *Product {
	if s.size == 0 {
		panic(fmt.Errorf("inventory: evict root: %w", ErrSectorEmpty))
	}
	root := s.slots[1]
	s.Swap(1, s.size)
	s.DeleteLast()
	s.Sink(1)
	return root
}

// Find returns the slot holding id, scanning the active slots in order.
func (s *Sector) Find(id int) (int, bool) {
	for i := 1; i <= s.size; i++ {
		if s.slots[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Sector) Size() int     { return s.size }
func (s *Sector) Capacity() int { return len(s.slots) - 1 }
func (s *Sector) IsFull() bool  { return s.size == s.Capacity() }

// Products returns copies of the active slots in array order.
func (s *Sector) Products() []Product {
	out := make([]Product, 0, s.size)
	for i := 1; i <= s.size; i++ {
		out = append(out, *s.slots[i])
	}
	return out
}

// Popularity returns the heap key of the product at slot i.
func (s *Sector) Popularity(i int) int {
	s.checkSlot(i)
	return s.popularity(s.slots[i])
}

func (s *Sector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 1; i <= s.size; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString(s.slots[i].String())
	}
	b.WriteByte(']')
	return b.String()
}

func (s *Sector) checkSlot(i int) {
	if i < 1 || i > s.size {
		panic(fmt.Errorf("inventory: slot %d of %d: %w", i, s.size, ErrSlotOutOfRange))
	}
}
