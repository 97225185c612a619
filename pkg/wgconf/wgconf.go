// Package wgconf extracts the few facts RouteGuard needs from a
// WireGuard configuration file. It is not a full parser: only the peer
// Endpoint is read, and the tunnel interface name comes from the file
// name itself, mirroring how wg-quick names the interface after the
// config file. That stays true even when the config hints at another
// name elsewhere; documented simplification.
package wgconf

import (
	"net"
	"net/netip"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

const configExtension = ".conf"

// Extract reads the config at path and derives the tunnel facts.
func Extract(path string) (domain.TunnelFacts, error) {
	f, err := ini.LoadSources(ini.LoadOptions{AllowNonUniqueSections: true}, path)
	if err != nil {
		return domain.TunnelFacts{}, domain.NewConfigError("cannot read WireGuard config %s: %v", path, err)
	}

	peers, err := f.SectionsByName("Peer")
	if err != nil || len(peers) == 0 {
		return domain.TunnelFacts{}, domain.NewConfigError("no [Peer] section in %s", path)
	}

	endpoint := ""
	for _, peer := range peers {
		if v := peer.Key("Endpoint").String(); v != "" {
			endpoint = v
			break
		}
	}
	if endpoint == "" {
		return domain.TunnelFacts{}, domain.NewConfigError("missing or invalid Endpoint")
	}

	host, port, err := ParseEndpoint(endpoint)
	if err != nil {
		return domain.TunnelFacts{}, err
	}

	_, parseErr := netip.ParseAddr(host)

	return domain.TunnelFacts{
		InterfaceName:    InterfaceNameFromPath(path),
		EndpointHost:     host,
		EndpointPort:     port,
		EndpointIsDomain: parseErr != nil,
	}, nil
}

// InterfaceNameFromPath derives the tunnel interface name from the
// config file's base name, stripping the .conf extension.
func InterfaceNameFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), configExtension)
}

// ParseEndpoint splits host:port, accepting dotted IPv4, bracketed
// IPv6, or a hostname for the host part.
func ParseEndpoint(endpoint string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(endpoint))
	if err != nil || host == "" {
		return "", 0, domain.NewConfigError("missing or invalid Endpoint")
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return "", 0, domain.NewConfigError("missing or invalid Endpoint")
	}

	return host, uint16(port), nil
}
