package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInMemoryCollector_Counters(t *testing.T) {
	c := NewInMemoryCollector()

	c.CounterInc(ScannerScansTotal.Name, "status", StatusOK)
	c.CounterInc(ScannerScansTotal.Name, "status", StatusOK)
	c.CounterInc(ScannerScansTotal.Name, "status", StatusBlocked)
	c.CounterAdd(ScannerIssuesTotal.Name, 3, "severity", "Error")

	if got := c.CounterValue(ScannerScansTotal.Name, "status", StatusOK); got != 2 {
		t.Errorf("ok scans = %v, want 2", got)
	}
	if got := c.CounterValue(ScannerScansTotal.Name, "status", StatusBlocked); got != 1 {
		t.Errorf("blocked scans = %v, want 1", got)
	}
	if got := c.CounterValue(ScannerIssuesTotal.Name, "severity", "Error"); got != 3 {
		t.Errorf("issues = %v, want 3", got)
	}
}

func TestInMemoryCollector_Reset(t *testing.T) {
	c := NewInMemoryCollector()
	c.CounterInc(ScannerScansTotal.Name, "status", StatusOK)
	c.HistogramObserve(ScannerScanDuration.Name, 0.01)
	c.Reset()

	if got := c.CounterValue(ScannerScansTotal.Name, "status", StatusOK); got != 0 {
		t.Errorf("counter after reset = %v, want 0", got)
	}
	if got := c.HistogramCount(ScannerScanDuration.Name); got != 0 {
		t.Errorf("histogram after reset = %v, want 0", got)
	}
}

func TestPrometheusCollector_EndToEnd(t *testing.T) {
	c := NewPrometheusCollector(&PrometheusConfig{RegisterDefaultMetrics: true})

	c.CounterInc(ScannerScansTotal.Name, "status", StatusOK)
	c.CounterAdd(ScannerIssuesTotal.Name, 2, "severity", "Critical")
	c.HistogramObserve(ScannerScanDuration.Name, 0.05)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`skillport_scanner_scans_total{status="ok"} 1`,
		`skillport_scanner_issues_total{severity="Critical"} 2`,
		"skillport_scanner_scan_duration_seconds_count 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestPrometheusCollector_UnregisteredMetricIsNoop(t *testing.T) {
	c := NewPrometheusCollector(nil)
	// Must not panic when the metric was never registered.
	c.CounterInc("skillport_never_registered_total", "status", StatusOK)
	c.GaugeSet("skillport_never_registered", 1)
	c.HistogramObserve("skillport_never_registered_seconds", 0.1)
}

func TestPrometheusCollector_DoubleRegisterIsIdempotent(t *testing.T) {
	c := NewPrometheusCollector(nil)
	if err := c.RegisterCounter(ScannerScansTotal); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := c.RegisterCounter(ScannerScansTotal); err != nil {
		t.Fatalf("second register: %v", err)
	}
}
