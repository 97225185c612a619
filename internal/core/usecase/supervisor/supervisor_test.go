package supervisor

import (
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

type fakeController struct {
	mu          sync.Mutex
	installs    int
	teardowns   int
	installed   bool
	failInstall bool
	onInstall   chan struct{}
}

func (f *fakeController) Install(spec domain.RulesetSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInstall {
		return &domain.FirewallError{Op: "install", Err: errors.New("nft unreachable")}
	}
	f.installs++
	f.installed = true
	if f.onInstall != nil {
		close(f.onInstall)
		f.onInstall = nil
	}
	return nil
}

func (f *fakeController) Teardown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns++
	f.installed = false
	return nil
}

func (f *fakeController) IsInstalled() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installed, nil
}

type fakeRoutes struct {
	routes []domain.LeakRoute
	err    error
}

func (f *fakeRoutes) Snapshot() ([]domain.LeakRoute, error) {
	return f.routes, f.err
}

type countingSink struct {
	events []domain.LeakRoute
}

func (c *countingSink) LeakDetected(r domain.LeakRoute) {
	c.events = append(c.events, r)
}

func splitScenario() []domain.LeakRoute {
	return []domain.LeakRoute{
		{Destination: netip.MustParsePrefix("0.0.0.0/1"), OutInterface: "eth0", Suspicious: true},
		{Destination: netip.MustParsePrefix("128.0.0.0/1"), OutInterface: "wg0", Suspicious: false},
	}
}

func testSpec() domain.RulesetSpec {
	return domain.RulesetSpec{TunnelInterface: "wg0"}
}

func TestProtectRunTearsDownOnStop(t *testing.T) {
	fw := &fakeController{onInstall: make(chan struct{})}
	installed := fw.onInstall
	sup := New(Config{Mode: domain.ModeProtect, Interval: time.Second, CleanupOnExit: true},
		testSpec(), fw, &fakeRoutes{routes: splitScenario()}, nil)

	done := make(chan error, 1)
	go func() { done <- sup.Run() }()

	select {
	case <-installed:
	case <-time.After(2 * time.Second):
		t.Fatal("install never happened")
	}

	sup.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if fw.teardowns != 1 {
		t.Errorf("teardowns = %d, want 1", fw.teardowns)
	}
	if fw.installed {
		t.Error("table still present after stop")
	}
	if got := sup.State(); got != domain.StateStopped {
		t.Errorf("final state = %s, want stopped", got)
	}
}

func TestProtectRunAbortsWhenInstallFails(t *testing.T) {
	fw := &fakeController{failInstall: true}
	sup := New(Config{Mode: domain.ModeProtect, Interval: time.Second, CleanupOnExit: true},
		testSpec(), fw, &fakeRoutes{}, nil)

	if err := sup.Run(); err == nil {
		t.Fatal("expected install failure to abort the run")
	}
	if fw.teardowns != 0 {
		t.Errorf("teardowns = %d, want 0 after failed install", fw.teardowns)
	}
	if got := sup.State(); got != domain.StateStopped {
		t.Errorf("final state = %s, want stopped", got)
	}
}

func TestMonitorRunNeverInstalls(t *testing.T) {
	fw := &fakeController{}
	sup := New(Config{Mode: domain.ModeMonitor, Interval: time.Second, CleanupOnExit: true},
		testSpec(), fw, &fakeRoutes{routes: splitScenario()}, nil)

	sup.Stop() // first cycle runs, then the loop observes the stop
	if err := sup.Run(); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if fw.installs != 0 {
		t.Errorf("installs = %d, want 0 in monitor mode", fw.installs)
	}
}

func TestCycleAlertsEverySuspiciousRouteEveryCycle(t *testing.T) {
	sink := &countingSink{}
	sup := New(Config{Mode: domain.ModeMonitor, Interval: time.Second},
		testSpec(), &fakeController{}, &fakeRoutes{routes: splitScenario()}, sink)
	sup.state = domain.StateMonitoring

	sup.cycle()
	sup.cycle()

	if len(sink.events) != 2 {
		t.Fatalf("events = %d, want one alert per cycle with no dedup", len(sink.events))
	}
	for _, e := range sink.events {
		if e.OutInterface != "eth0" {
			t.Errorf("alerted for %q, want only the eth0 leak", e.OutInterface)
		}
	}
}

func TestCycleSkipsOnSnapshotError(t *testing.T) {
	sink := &countingSink{}
	src := &fakeRoutes{err: &domain.RouteSnapshotError{Err: errors.New("netlink down")}}
	sup := New(Config{Mode: domain.ModeMonitor, Interval: time.Second},
		testSpec(), &fakeController{}, src, sink)
	sup.state = domain.StateMonitoring

	sup.cycle()

	if len(sink.events) != 0 {
		t.Errorf("events = %d, want 0 on snapshot failure", len(sink.events))
	}
}

func TestCycleReinstallsMissingTable(t *testing.T) {
	fw := &fakeController{}
	sup := New(Config{Mode: domain.ModeProtect, Interval: time.Second},
		testSpec(), fw, &fakeRoutes{}, nil)
	sup.state = domain.StateEnforcing

	sup.cycle()

	if fw.installs != 1 {
		t.Errorf("installs = %d, want re-install when table vanished", fw.installs)
	}
}
