package reporter

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

func TestNewReporterDefaultsOutputFile(t *testing.T) {
	report := NewReporter("", "wg0")
	if report.Err != nil {
		t.Fatalf("expected error to be nil, got %v", report.Err)
	}
	if report.outputFileName != defaultFile {
		t.Errorf("outputFileName = %q, want %q", report.outputFileName, defaultFile)
	}
	report.Close()
	os.Remove(report.outputFileName)
}

func TestNewReporterCreatesMissingDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "routeguard.out")
	report := NewReporter(path, "wg0")
	if report.Err != nil {
		t.Fatalf("expected error to be nil, got %v", report.Err)
	}
	report.Close()
}

func TestLeakDetectedDedupsPerRoute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routeguard.out")
	report := NewReporter(path, "wg0")
	if report.Err != nil {
		t.Fatalf("reporter: %v", report.Err)
	}

	leak := domain.LeakRoute{
		Destination:  netip.MustParsePrefix("0.0.0.0/1"),
		OutInterface: "eth0",
		Gateway:      "192.0.2.1",
		Suspicious:   true,
	}
	report.LeakDetected(leak)
	report.LeakDetected(leak)
	report.LeakDetected(domain.LeakRoute{
		Destination:  netip.MustParsePrefix("128.0.0.0/1"),
		OutInterface: "eth0",
		Suspicious:   true,
	})
	report.Close()

	if got := len(report.Events()); got != 2 {
		t.Errorf("events = %d, want 2 distinct leaks", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("report lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"destination":"0.0.0.0/1"`) {
		t.Errorf("first line = %s, want the 0.0.0.0/1 leak", lines[0])
	}
}

func TestLoadAndPrintCustomOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.out")
	report := NewReporter(path, "wg0")
	if report.Err != nil {
		t.Fatalf("reporter: %v", report.Err)
	}
	report.LeakDetected(domain.LeakRoute{
		Destination:  netip.MustParsePrefix("0.0.0.0/1"),
		OutInterface: "eth0",
		Suspicious:   true,
	})
	report.Close()

	if err := LoadAndPrint(path); err != nil {
		t.Errorf("LoadAndPrint(%q) = %v, want nil", path, err)
	}
}

func TestLoadAndPrintMissingFile(t *testing.T) {
	if err := LoadAndPrint(filepath.Join(t.TempDir(), "absent.out")); err == nil {
		t.Error("LoadAndPrint on a missing file returned nil error")
	}
}
