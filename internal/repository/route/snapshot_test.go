package route

import (
	"errors"
	"net"
	"testing"

	"github.com/vishvananda/netlink"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

func cidr(t *testing.T, s string) *net.IPNet {
	t.Helper()
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return n
}

func fakeLinks() []netlink.Link {
	return []netlink.Link{
		&netlink.Device{LinkAttrs: netlink.LinkAttrs{Index: 1, Name: "eth0"}},
		&netlink.Wireguard{LinkAttrs: netlink.LinkAttrs{Index: 2, Name: "wg0"}},
	}
}

func newTestSnapshotter(v4, v6 []netlink.Route, listErr error) *Snapshotter {
	s := New("wg0")
	s.linkList = func() ([]netlink.Link, error) { return fakeLinks(), nil }
	s.routeList = func(_ netlink.Link, family int) ([]netlink.Route, error) {
		if listErr != nil {
			return nil, listErr
		}
		if family == netlink.FAMILY_V6 {
			return v6, nil
		}
		return v4, nil
	}
	return s
}

func TestSnapshotFlagsSplitDefaultLeak(t *testing.T) {
	v4 := []netlink.Route{
		{Dst: cidr(t, "0.0.0.0/1"), LinkIndex: 1, Gw: net.ParseIP("192.0.2.1")},
		{Dst: cidr(t, "128.0.0.0/1"), LinkIndex: 2},
	}

	routes, err := newTestSnapshotter(v4, nil, nil).Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	var suspicious []domain.LeakRoute
	for _, r := range routes {
		if r.Suspicious {
			suspicious = append(suspicious, r)
		}
	}
	if len(suspicious) != 1 {
		t.Fatalf("suspicious routes = %d, want exactly the eth0 half", len(suspicious))
	}
	got := suspicious[0]
	if got.OutInterface != "eth0" || got.Destination.String() != "0.0.0.0/1" {
		t.Errorf("flagged %s via %s, want 0.0.0.0/1 via eth0", got.Destination, got.OutInterface)
	}
	if got.Gateway != "192.0.2.1" {
		t.Errorf("gateway = %q, want 192.0.2.1", got.Gateway)
	}
}

func TestSnapshotV6Halves(t *testing.T) {
	v6 := []netlink.Route{
		{Dst: cidr(t, "::/1"), LinkIndex: 1},
		{Dst: cidr(t, "8000::/1"), LinkIndex: 2},
	}

	routes, err := newTestSnapshotter(nil, v6, nil).Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	count := 0
	for _, r := range routes {
		if r.Suspicious {
			count++
			if r.Destination.String() != "::/1" {
				t.Errorf("flagged %s, want ::/1", r.Destination)
			}
		}
	}
	if count != 1 {
		t.Errorf("suspicious = %d, want 1", count)
	}
}

func TestSnapshotIgnoresOrdinaryRoutes(t *testing.T) {
	v4 := []netlink.Route{
		{Dst: nil, LinkIndex: 1, Gw: net.ParseIP("192.0.2.1")}, // default route
		{Dst: cidr(t, "192.168.1.0/24"), LinkIndex: 1},
	}

	routes, err := newTestSnapshotter(v4, nil, nil).Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	for _, r := range routes {
		if r.Suspicious {
			t.Errorf("route %s via %s wrongly flagged", r.Destination, r.OutInterface)
		}
	}
	if len(routes) != 2 {
		t.Errorf("routes = %d, want both converted", len(routes))
	}
}

func TestSnapshotErrorIsRecoverable(t *testing.T) {
	_, err := newTestSnapshotter(nil, nil, errors.New("netlink: permission denied")).Snapshot()

	var snapErr *domain.RouteSnapshotError
	if !errors.As(err, &snapErr) {
		t.Fatalf("expected RouteSnapshotError, got %v", err)
	}
}
