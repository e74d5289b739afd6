// Package metrics provides metrics collection for the SkillPort SDK.
// It includes an interface for metric collection and a
// Prometheus-compatible implementation.
package metrics

import (
	"net/http"
	"sync"
)

// Collector is the interface for collecting and reporting metrics.
// Implement this interface to use a custom metrics backend.
type Collector interface {
	// Counter operations
	CounterInc(name string, labels ...string)
	CounterAdd(name string, value float64, labels ...string)

	// Gauge operations
	GaugeSet(name string, value float64, labels ...string)

	// Histogram operations
	HistogramObserve(name string, value float64, labels ...string)

	// Handler returns an HTTP handler for the metrics endpoint
	Handler() http.Handler

	// Reset clears all metrics (for testing)
	Reset()
}

// MetricType represents the type of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricDefinition defines a metric with its metadata.
type MetricDefinition struct {
	Name    string     `json:"name"`
	Type    MetricType `json:"type"`
	Help    string     `json:"help"`
	Labels  []string   `json:"labels,omitempty"`
	Buckets []float64  `json:"buckets,omitempty"` // For histograms
}

// Standard metrics for the SkillPort SDK.
var (
	// Scanner metrics
	ScannerScansTotal = MetricDefinition{
		Name:   "skillport_scanner_scans_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of security scans executed",
		Labels: []string{"status"}, // ok, blocked, error
	}
	ScannerScanDuration = MetricDefinition{
		Name:    "skillport_scanner_scan_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of security scans in seconds",
		Labels:  []string{},
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}
	ScannerIssuesTotal = MetricDefinition{
		Name:   "skillport_scanner_issues_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of security issues reported",
		Labels: []string{"severity"},
	}
	ScannerFilesScanned = MetricDefinition{
		Name:   "skillport_scanner_files_scanned_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of files scanned",
		Labels: []string{},
	}

	// Store metrics
	StoreOperationsTotal = MetricDefinition{
		Name:   "skillport_store_operations_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of store operations",
		Labels: []string{"operation", "status"},
	}

	// Installer metrics
	InstallerInstallsTotal = MetricDefinition{
		Name:   "skillport_installer_installs_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of install attempts",
		Labels: []string{"status"}, // ok, blocked, error
	}

	// Registry metrics
	RegistryRequestsTotal = MetricDefinition{
		Name:   "skillport_registry_requests_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of skill registry API requests",
		Labels: []string{"operation", "status"},
	}
)

// Scan status label values.
const (
	StatusOK      = "ok"
	StatusBlocked = "blocked"
	StatusError   = "error"
)

// NopCollector is a no-op metrics collector that discards all metrics.
// Use this when metrics are not needed.
type NopCollector struct{}

func (c *NopCollector) CounterInc(name string, labels ...string)                      {}
func (c *NopCollector) CounterAdd(name string, value float64, labels ...string)       {}
func (c *NopCollector) GaugeSet(name string, value float64, labels ...string)         {}
func (c *NopCollector) HistogramObserve(name string, value float64, labels ...string) {}
func (c *NopCollector) Handler() http.Handler                                         { return http.NotFoundHandler() }
func (c *NopCollector) Reset()                                                        {}

// InMemoryCollector stores metrics in memory for testing purposes.
type InMemoryCollector struct {
	mu         sync.RWMutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (c *InMemoryCollector) key(name string, labels []string) string {
	key := name
	for i := 0; i+1 < len(labels); i += 2 {
		key += "," + labels[i] + "=" + labels[i+1]
	}
	return key
}

func (c *InMemoryCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *InMemoryCollector) CounterAdd(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[c.key(name, labels)] += value
}

func (c *InMemoryCollector) GaugeSet(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)] = value
}

func (c *InMemoryCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.key(name, labels)
	c.histograms[key] = append(c.histograms[key], value)
}

func (c *InMemoryCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = make(map[string]float64)
	c.gauges = make(map[string]float64)
	c.histograms = make(map[string][]float64)
}

// CounterValue returns the current value of a counter (for tests).
func (c *InMemoryCollector) CounterValue(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[c.key(name, labels)]
}

// HistogramCount returns the number of observations recorded for a
// histogram (for tests).
func (c *InMemoryCollector) HistogramCount(name string, labels ...string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.histograms[c.key(name, labels)])
}

// Ensure implementations satisfy the interface.
var (
	_ Collector = (*NopCollector)(nil)
	_ Collector = (*InMemoryCollector)(nil)
)
