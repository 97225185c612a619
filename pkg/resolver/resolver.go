// Package resolver turns the endpoint host into the concrete address
// set the policy builder allows. Resolution failure is deliberately not
// fatal: a kill-switch with an unreachable endpoint is still a working
// kill-switch, just one that keeps everything closed until DNS is back.
package resolver

import (
	"context"
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

const lookupTimeout = 3 * time.Second

// LookupFunc matches net.Resolver.LookupNetIP.
type LookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

// Resolver resolves endpoint hosts. The zero value is not usable; call
// New.
type Resolver struct {
	lookup LookupFunc
}

func New() *Resolver {
	return &Resolver{lookup: net.DefaultResolver.LookupNetIP}
}

// NewWithLookup injects the lookup, for tests.
func NewWithLookup(lookup LookupFunc) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the endpoint's address set. A literal IP host is
// returned as-is with no network call. For hostnames, a failed lookup
// returns an empty set together with a ResolutionWarning; callers log
// it and continue.
func (r *Resolver) Resolve(ctx context.Context, facts domain.TunnelFacts) (domain.ResolvedEndpoint, error) {
	resolved := domain.ResolvedEndpoint{
		Host:       facts.EndpointHost,
		ResolvedAt: time.Now(),
	}

	if addr, err := netip.ParseAddr(facts.EndpointHost); err == nil {
		resolved.Addresses = []netip.Addr{addr.Unmap()}
		return resolved, nil
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	addrs, err := r.lookup(ctx, "ip", facts.EndpointHost)
	if err != nil {
		return resolved, &domain.ResolutionWarning{Host: facts.EndpointHost, Err: err}
	}

	for i := range addrs {
		addrs[i] = addrs[i].Unmap()
	}
	slices.SortFunc(addrs, func(a, b netip.Addr) int { return a.Compare(b) })
	resolved.Addresses = slices.Compact(addrs)

	return resolved, nil
}
