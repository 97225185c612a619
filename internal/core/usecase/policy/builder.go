package policy

import (
	"net/netip"
	"slices"

	"github.com/routeguard-io/routeguard/internal/core/domain"
)

var (
	privateV4 = []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
	}
	privateV6 = netip.MustParsePrefix("fc00::/7")

	// DHCPv6 talks to link-local and multicast destinations, so those
	// prefixes ride along with the DHCP option.
	linkLocalV6 = []netip.Prefix{
		netip.MustParsePrefix("fe80::/10"),
		netip.MustParsePrefix("ff00::/8"),
	}
)

// Build derives the kill-switch ruleset from the tunnel facts, the
// resolved endpoint addresses, and the caller options. Pure and
// deterministic: identical inputs always produce a structurally
// identical spec. The base deny for non-tunnel egress is the chain
// policy and is deliberately not a member rule.
func Build(facts domain.TunnelFacts, resolved domain.ResolvedEndpoint, opts domain.PolicyOptions) domain.RulesetSpec {
	rules := []domain.Rule{
		{
			Family:  domain.FamilyAgnostic,
			Action:  domain.ActionAccept,
			Match:   domain.Match{OutInterface: "lo"},
			Comment: "loopback",
		},
		{
			Family:  domain.FamilyAgnostic,
			Action:  domain.ActionAccept,
			Match:   domain.Match{OutInterface: facts.InterfaceName},
			Comment: "tunnel",
		},
	}

	rules = append(rules, endpointRules(facts, resolved)...)

	if opts.AllowDHCP {
		rules = append(rules,
			domain.Rule{
				Family:  domain.FamilyAgnostic,
				Action:  domain.ActionAccept,
				Match:   domain.Match{Protocol: "udp", SrcPort: 68, DestPort: 67},
				Comment: "dhcp",
			},
			domain.Rule{
				Family:  domain.FamilyAgnostic,
				Action:  domain.ActionAccept,
				Match:   domain.Match{Protocol: "udp", SrcPort: 546, DestPort: 547},
				Comment: "dhcp",
			},
		)
		for _, p := range linkLocalV6 {
			rules = append(rules, domain.Rule{
				Family:  domain.FamilyV6,
				Action:  domain.ActionAccept,
				Match:   domain.Match{Destination: p},
				Comment: "dhcp",
			})
		}
	}

	if opts.AllowLAN {
		for _, p := range privateV4 {
			rules = append(rules, domain.Rule{
				Family:  domain.FamilyV4,
				Action:  domain.ActionAccept,
				Match:   domain.Match{Destination: p},
				Comment: "lan",
			})
		}
		rules = append(rules, domain.Rule{
			Family:  domain.FamilyV6,
			Action:  domain.ActionAccept,
			Match:   domain.Match{Destination: privateV6},
			Comment: "lan",
		})
	}

	return domain.RulesetSpec{
		TunnelInterface: facts.InterfaceName,
		Rules:           rules,
	}
}

// endpointRules allows outbound UDP to each resolved endpoint address on
// the endpoint port: the tunnel's own transport, the one legitimate path
// outside the tunnel. An empty address set yields no rules at all, which
// leaves the endpoint unreachable on purpose.
func endpointRules(facts domain.TunnelFacts, resolved domain.ResolvedEndpoint) []domain.Rule {
	addrs := make([]netip.Addr, 0, len(resolved.Addresses))
	for _, a := range resolved.Addresses {
		addrs = append(addrs, a.Unmap())
	}
	slices.SortFunc(addrs, func(a, b netip.Addr) int { return a.Compare(b) })
	addrs = slices.Compact(addrs)

	rules := make([]domain.Rule, 0, len(addrs))
	for _, a := range addrs {
		family := domain.FamilyV4
		if a.Is6() {
			family = domain.FamilyV6
		}
		rules = append(rules, domain.Rule{
			Family: family,
			Action: domain.ActionAccept,
			Match: domain.Match{
				Destination: netip.PrefixFrom(a, a.BitLen()),
				Protocol:    "udp",
				DestPort:    facts.EndpointPort,
			},
			Comment: "endpoint",
		})
	}
	return rules
}
