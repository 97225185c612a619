package domain

import (
	"net/netip"
	"time"
)

// TunnelFacts holds what RouteGuard learned from the WireGuard config.
// Built once at startup and never mutated afterwards.
type TunnelFacts struct {
	// InterfaceName is derived from the config file's base name
	// (wg0.conf -> wg0), never from directives inside the file.
	InterfaceName string
	// EndpointHost is the peer Endpoint host part: an IPv4 literal,
	// an IPv6 literal (unbracketed), or a hostname.
	EndpointHost string
	// EndpointPort is the peer Endpoint port (1-65535).
	EndpointPort uint16
	// EndpointIsDomain reports whether EndpointHost needs resolution.
	EndpointIsDomain bool
}

// ResolvedEndpoint is the concrete address set behind the endpoint host.
// Addresses may be empty when resolution failed; the policy builder then
// omits the endpoint allow rules and the kill-switch stays closed.
type ResolvedEndpoint struct {
	Host       string
	Addresses  []netip.Addr
	ResolvedAt time.Time
}

// PolicyOptions are the caller-supplied knobs for the generated ruleset.
type PolicyOptions struct {
	AllowDHCP bool
	AllowLAN  bool
}
