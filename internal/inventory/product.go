package inventory

import "fmt"

// Product is a single inventory record held in exactly one sector slot.
type Product struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Stock           int    `json:"stock"`
	LastPurchaseDay int    `json:"last_purchase_day"`
	Demand          int    `json:"demand"`
}

// NewProduct creates a product first seen on day. The creation day doubles as the
// initial last purchase day.
func NewProduct(id int, name string, stock, day, demand int) *Product {
	return &Product{
		ID:              id,
		Name:            name,
		Stock:           stock,
		LastPurchaseDay: day,
		Demand:          demand,
	}
}

// UpdateStock adds delta to the stock level. Callers check sufficiency before
// passing a negative delta.
func (p *Product) UpdateStock(delta int) {
	p.Stock += delta
}

// UpdateDemand adds a purchased amount to the demand accumulator.
func (p *Product) UpdateDemand(amount int) {
	p.Demand += amount
}

// SetLastPurchaseDay overwrites the recency marker.
func (p *Product) SetLastPurchaseDay(day int) {
	p.LastPurchaseDay = day
}

func (p *Product) GetID() int              { return p.ID }
func (p *Product) GetName() string         { return p.Name }
func (p *Product) GetStock() int           { return p.Stock }
func (p *Product) GetLastPurchaseDay() int { return p.LastPurchaseDay }
func (p *Product) GetDemand() int          { return p.Demand }

func (p *Product) String() string {
	return fmt.Sprintf("(%d: %s, %d, %d, %d)", p.ID, p.Name, p.Stock, p.LastPurchaseDay, p.Demand)
}
