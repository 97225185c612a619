package route

import (
	"net/netip"

	"github.com/vishvananda/netlink"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

// Snapshotter reads the kernel's main route table over netlink and
// evaluates the leak predicate against the tunnel interface.
type Snapshotter struct {
	tunnel string

	routeList func(link netlink.Link, family int) ([]netlink.Route, error)
	linkList  func() ([]netlink.Link, error)
}

// New builds a snapshotter for the given tunnel interface.
func New(tunnelInterface string) *Snapshotter {
	return &Snapshotter{
		tunnel:    tunnelInterface,
		routeList: netlink.RouteList,
		linkList:  netlink.LinkList,
	}
}

// Snapshot returns the current routes of both families as LeakRoutes.
// Failures are reported as RouteSnapshotError so the caller can skip
// the cycle instead of dying.
func (s *Snapshotter) Snapshot() ([]domain.LeakRoute, error) {
	names, err := s.linkNames()
	if err != nil {
		return nil, &domain.RouteSnapshotError{Err: err}
	}

	var out []domain.LeakRoute
	for _, family := range []int{netlink.FAMILY_V4, netlink.FAMILY_V6} {
		routes, err := s.routeList(nil, family)
		if err != nil {
			return nil, &domain.RouteSnapshotError{Err: err}
		}
		for _, r := range routes {
			lr, ok := s.convert(r, family, names)
			if !ok {
				continue
			}
			out = append(out, lr)
		}
	}
	return out, nil
}

func (s *Snapshotter) linkNames() (map[int]string, error) {
	links, err := s.linkList()
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		names[attrs.Index] = attrs.Name
	}
	return names, nil
}

func (s *Snapshotter) convert(r netlink.Route, family int, names map[int]string) (domain.LeakRoute, bool) {
	dst, ok := destinationPrefix(r, family)
	if !ok {
		return domain.LeakRoute{}, false
	}

	dev := names[r.LinkIndex]
	gateway := ""
	if r.Gw != nil {
		gateway = r.Gw.String()
	}

	return domain.LeakRoute{
		Destination:  dst,
		OutInterface: dev,
		Gateway:      gateway,
		Suspicious:   domain.IsSuspiciousRoute(dst, dev, s.tunnel),
	}, true
}

// destinationPrefix normalizes a netlink destination. A nil Dst is the
// default route for its family.
func destinationPrefix(r netlink.Route, family int) (netip.Prefix, bool) {
	if r.Dst == nil {
		if family == netlink.FAMILY_V6 {
			return netip.PrefixFrom(netip.IPv6Unspecified(), 0), true
		}
		return netip.PrefixFrom(netip.IPv4Unspecified(), 0), true
	}

	addr, ok := netip.AddrFromSlice(r.Dst.IP)
	if !ok {
		return netip.Prefix{}, false
	}
	ones, _ := r.Dst.Mask.Size()
	return netip.PrefixFrom(addr.Unmap(), ones), true
}
