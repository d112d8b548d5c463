// Package metrics exports allocator reports and counters as Prometheus
// metrics.
//
// The collector reads its source on every scrape, so the source must be safe
// for concurrent use when scrapes and allocations run on different
// goroutines. Wrap the allocator with the locked package in that case:
//
//	a, _ := offset.New(1<<20, 1024)
//	shared := locked.New(a)
//	prometheus.MustRegister(metrics.NewCollector(shared))
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshuapare/offsetkit/offset"
)

// Source is the read side of an allocator.
type Source interface {
	Size() uint32
	LiveAllocations() uint32
	StorageReport() offset.StorageReport
	StorageReportFull() []offset.FreeRegion
	Stats() offset.Stats
}

// Option configures a Collector.
type Option func(*config)

type config struct {
	namespace   string
	constLabels prometheus.Labels
}

// WithNamespace sets the metric name prefix. Defaults to "offset".
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithConstLabels attaches labels to every metric, for example to tell apart
// several allocators registered with one registry.
func WithConstLabels(l prometheus.Labels) Option {
	return func(c *config) { c.constLabels = l }
}

// Collector implements prometheus.Collector over a Source.
type Collector struct {
	src Source

	size        *prometheus.Desc
	freeBytes   *prometheus.Desc
	largestFree *prometheus.Desc
	live        *prometheus.Desc
	freeRegions *prometheus.Desc
	peakUsed    *prometheus.Desc

	allocCalls    *prometheus.Desc
	freeCalls     *prometheus.Desc
	resets        *prometheus.Desc
	splits        *prometheus.Desc
	merges        *prometheus.Desc
	failures      *prometheus.Desc
	invalidHandle *prometheus.Desc
}

// NewCollector returns a collector reading from src.
func NewCollector(src Source, opts ...Option) *Collector {
	cfg := config{namespace: "offset"}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(cfg.namespace, "", name), help, labels, cfg.constLabels)
	}

	return &Collector{
		src:         src,
		size:        desc("size_units", "Size of the managed range"),
		freeBytes:   desc("free_units", "Total free space"),
		largestFree: desc("largest_free_region_units", "Lower bound on the largest free range"),
		live:        desc("live_allocations", "Allocations not yet freed"),
		freeRegions: desc("free_regions", "Free ranges per size class", "bin_size"),
		peakUsed:    desc("peak_used_units", "High-water mark of allocated space"),

		allocCalls:    desc("allocate_calls_total", "Allocate calls"),
		freeCalls:     desc("free_calls_total", "Free calls"),
		resets:        desc("resets_total", "Reset calls"),
		splits:        desc("splits_total", "Allocations that split a free range"),
		merges:        desc("merges_total", "Frees merged with a neighbor", "direction"),
		failures:      desc("allocate_failures_total", "Failed Allocate calls", "reason"),
		invalidHandle: desc("invalid_handles_total", "Rejected Free and AllocationSize calls"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.size, c.freeBytes, c.largestFree, c.live, c.freeRegions, c.peakUsed,
		c.allocCalls, c.freeCalls, c.resets, c.splits, c.merges, c.failures, c.invalidHandle,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	r := c.src.StorageReport()
	st := c.src.Stats()

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	gauge(c.size, float64(c.src.Size()))
	gauge(c.freeBytes, float64(r.TotalFreeSpace))
	gauge(c.largestFree, float64(r.LargestFreeRegion))
	gauge(c.live, float64(c.src.LiveAllocations()))
	gauge(c.peakUsed, float64(st.PeakUsedBytes))
	for _, fr := range c.src.StorageReportFull() {
		gauge(c.freeRegions, float64(fr.Count), strconv.FormatUint(uint64(fr.BinApproxSize), 10))
	}

	counter(c.allocCalls, st.AllocCalls)
	counter(c.freeCalls, st.FreeCalls)
	counter(c.resets, st.Resets)
	counter(c.splits, st.Splits)
	counter(c.merges, st.MergesPrev, "prev")
	counter(c.merges, st.MergesNext, "next")
	counter(c.failures, st.OutOfSpace, "out_of_space")
	counter(c.failures, st.CapacityExceeded, "capacity_exceeded")
	counter(c.failures, st.InvalidRequests, "invalid_request")
	counter(c.invalidHandle, st.InvalidHandles)
}
