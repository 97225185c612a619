package domain

import "net/netip"

// LeakRoute is one kernel route as seen during a poll cycle. Ephemeral:
// recomputed every cycle, never persisted.
type LeakRoute struct {
	Destination  netip.Prefix
	OutInterface string
	Gateway      string
	Suspicious   bool
}

// splitDefaultHalves are the four prefixes a VPN client uses to cover the
// whole address space with two routes per family. If either half leaves
// through a non-tunnel interface, roughly half of all traffic bypasses
// the tunnel.
var splitDefaultHalves = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/1"),
	netip.MustParsePrefix("128.0.0.0/1"),
	netip.MustParsePrefix("::/1"),
	netip.MustParsePrefix("8000::/1"),
}

// IsSuspiciousRoute reports whether a route is a split-default half that
// leaves through something other than the tunnel interface.
func IsSuspiciousRoute(dst netip.Prefix, outInterface, tunnelInterface string) bool {
	if outInterface == "" || outInterface == tunnelInterface {
		return false
	}
	for _, half := range splitDefaultHalves {
		if dst == half {
			return true
		}
	}
	return false
}
