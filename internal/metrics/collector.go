// Package metrics exposes warehouse counters and sector occupancy to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"warehouse/internal/inventory"
)

// Source is the read side of a warehouse the collector scrapes.
type Source interface {
	Stats() inventory.Stats
	Sectors() []inventory.SectorSnapshot
	Len() int
}

// Collector reads a Source on every scrape; it keeps no state of its own.
type Collector struct {
	source Source

	operations        *prometheus.Desc
	evictions         *prometheus.Desc
	displaced         *prometheus.Desc
	rejectedPurchases *prometheus.Desc
	misses            *prometheus.Desc
	products          *prometheus.Desc
	occupancy         *prometheus.Desc
	capacity          *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string, source Source) *Collector {
	return &Collector{
		source: source,
		operations: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "operations_total"),
			"Applied warehouse operations by type.",
			[]string{"operation"}, nil,
		),
		evictions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "evictions_total"),
			"Products evicted from full sectors.",
			nil, nil,
		),
		displaced: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "displaced_total"),
			"Products placed outside their home sector.",
			nil, nil,
		),
		rejectedPurchases: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rejected_purchases_total"),
			"Purchases rejected for insufficient stock.",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "misses_total"),
			"Operations that referenced a product not in the warehouse.",
			nil, nil,
		),
		products: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "products"),
			"Resident products.",
			nil, nil,
		),
		occupancy: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sector", "occupancy"),
			"Occupied slots per sector.",
			[]string{"sector"}, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sector", "capacity"),
			"Slots per sector.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.operations
	ch <- c.evictions
	ch <- c.displaced
	ch <- c.rejectedPurchases
	ch <- c.misses
	ch <- c.products
	ch <- c.occupancy
	ch <- c.capacity
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	ops := map[string]uint64{
		"add":      stats.Adds,
		"restock":  stats.Restocks,
		"purchase": stats.Purchases,
		"delete":   stats.Deletes,
	}
	for op, n := range ops {
		ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(n), op)
	}
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(stats.Evictions))
	ch <- prometheus.MustNewConstMetric(c.displaced, prometheus.CounterValue, float64(stats.Displaced))
	ch <- prometheus.MustNewConstMetric(c.rejectedPurchases, prometheus.CounterValue, float64(stats.RejectedPurchases))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.products, prometheus.GaugeValue, float64(c.source.Len()))

	sectors := c.source.Sectors()
	for _, s := range sectors {
		ch <- prometheus.MustNewConstMetric(c.occupancy, prometheus.GaugeValue, float64(s.Size), strconv.Itoa(s.Index))
	}
	if len(sectors) > 0 {
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(sectors[0].Capacity))
	}
}

// NewRegistry returns a registry holding only the warehouse collector.
func NewRegistry(namespace string, source Source) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(namespace, source))
	return registry
}
