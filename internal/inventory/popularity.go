package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Popularity maps a product to its heap key. Lower values sit closer to the sector
// root and are evicted first. The value must depend only on the product itself so
// that swim and sink agree for as long as the product is resident.
type Popularity func(p *Product) int

// Built-in popularity orders.
const (
	PopularityDemand  = "demand"
	PopularityRecency = "recency"

	DefaultPopularity = PopularityRecency
)

var ErrUnknownPopularity = errors.New("unknown popularity order")

var popularities = map[string]Popularity{
	// demand alone
	PopularityDemand: func(p *Product) int { return p.Demand },
	// demand plus the last purchase day, so a recent purchase outranks an old one of
	// equal demand
	PopularityRecency: func(p *Product) int { return p.Demand + p.LastPurchaseDay },
}

// LookupPopularity returns the named popularity order.
func LookupPopularity(name string) (Popularity, error) {
	fn, ok := popularities[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownPopularity, name, strings.Join(PopularityNames(), ", "))
	}
	return fn, nil
}

// PopularityNames lists the registered orders in sorted order.
func PopularityNames() []string {
	names := make([]string, 0, len(popularities))
	for name := range popularities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
