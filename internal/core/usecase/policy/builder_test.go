package policy

import (
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

func testFacts() domain.TunnelFacts {
	return domain.TunnelFacts{
		InterfaceName: "wg0",
		EndpointHost:  "203.0.113.5",
		EndpointPort:  51820,
	}
}

func resolvedWith(addrs ...string) domain.ResolvedEndpoint {
	var parsed []netip.Addr
	for _, a := range addrs {
		parsed = append(parsed, netip.MustParseAddr(a))
	}
	return domain.ResolvedEndpoint{
		Host:       "203.0.113.5",
		Addresses:  parsed,
		ResolvedAt: time.Unix(1700000000, 0),
	}
}

func commentCounts(spec domain.RulesetSpec) map[string]int {
	counts := make(map[string]int)
	for _, r := range spec.Rules {
		counts[r.Comment]++
	}
	return counts
}

func TestBuildIsDeterministic(t *testing.T) {
	facts := testFacts()
	resolved := resolvedWith("203.0.113.5", "198.51.100.7")
	opts := domain.PolicyOptions{AllowDHCP: true, AllowLAN: true}

	first := Build(facts, resolved, opts)
	second := Build(facts, resolved, opts)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical specs for identical inputs:\n%+v\n%+v", first, second)
	}
}

func TestBuildSortsEndpointAddresses(t *testing.T) {
	facts := testFacts()
	a := Build(facts, resolvedWith("203.0.113.5", "198.51.100.7"), domain.PolicyOptions{})
	b := Build(facts, resolvedWith("198.51.100.7", "203.0.113.5"), domain.PolicyOptions{})

	if !reflect.DeepEqual(a, b) {
		t.Errorf("endpoint address order leaked into the ruleset:\n%+v\n%+v", a, b)
	}
}

func TestBuildEmptyResolutionOmitsEndpointRules(t *testing.T) {
	spec := Build(testFacts(), domain.ResolvedEndpoint{Host: "vpn.example.com"}, domain.PolicyOptions{AllowDHCP: true, AllowLAN: true})

	if n := commentCounts(spec)["endpoint"]; n != 0 {
		t.Errorf("expected no endpoint rules for empty resolution, got %d", n)
	}
}

func TestBuildMinimalPolicy(t *testing.T) {
	spec := Build(testFacts(), resolvedWith("203.0.113.5"), domain.PolicyOptions{})

	want := map[string]int{"loopback": 1, "tunnel": 1, "endpoint": 1}
	got := commentCounts(spec)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("minimal policy rule groups = %v, want %v", got, want)
	}

	ep := spec.Rules[len(spec.Rules)-1]
	if ep.Match.Protocol != "udp" || ep.Match.DestPort != 51820 {
		t.Errorf("endpoint rule = %+v, want udp dport 51820", ep.Match)
	}
	if want := netip.MustParsePrefix("203.0.113.5/32"); ep.Match.Destination != want {
		t.Errorf("endpoint destination = %v, want %v", ep.Match.Destination, want)
	}
}

func TestBuildOptionGroups(t *testing.T) {
	tests := []struct {
		name string
		opts domain.PolicyOptions
		dhcp int
		lan  int
	}{
		{"dhcp only", domain.PolicyOptions{AllowDHCP: true}, 4, 0},
		{"lan only", domain.PolicyOptions{AllowLAN: true}, 0, 4},
		{"both", domain.PolicyOptions{AllowDHCP: true, AllowLAN: true}, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := commentCounts(Build(testFacts(), resolvedWith("203.0.113.5"), tt.opts))
			if got["dhcp"] != tt.dhcp || got["lan"] != tt.lan {
				t.Errorf("rule groups = %v, want dhcp=%d lan=%d", got, tt.dhcp, tt.lan)
			}
		})
	}
}

func TestBuildNoDropRules(t *testing.T) {
	spec := Build(testFacts(), resolvedWith("203.0.113.5"), domain.PolicyOptions{AllowDHCP: true, AllowLAN: true})
	for _, r := range spec.Rules {
		if r.Action != domain.ActionAccept {
			t.Errorf("unexpected non-accept rule %+v; the base deny is the chain policy", r)
		}
	}
}
