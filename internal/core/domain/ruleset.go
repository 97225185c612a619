package domain

import "net/netip"

// Family selects the address family a rule applies to.
type Family uint8

const (
	// FamilyAgnostic rules match regardless of address family.
	FamilyAgnostic Family = iota
	FamilyV4
	FamilyV6
)

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ip"
	case FamilyV6:
		return "ip6"
	default:
		return "inet"
	}
}

// Action is the rule verdict.
type Action uint8

const (
	ActionAccept Action = iota
	ActionDrop
)

func (a Action) String() string {
	if a == ActionDrop {
		return "drop"
	}
	return "accept"
}

// Match describes the packet attributes a rule applies to. Zero values
// mean "any" for the corresponding attribute.
type Match struct {
	InInterface  string
	OutInterface string
	Destination  netip.Prefix
	Protocol     string // "udp", "tcp", or empty
	DestPort     uint16
	SrcPort      uint16
}

// Rule is one abstract firewall rule. It carries no kernel state; the
// nftables repository translates it into concrete expressions.
type Rule struct {
	Family  Family
	Action  Action
	Match   Match
	Comment string
}

// RulesetSpec is the ordered, declarative description of the kill-switch
// table. The base deny is the chain policy, not a member rule, so every
// entry here is an accept. Identical inputs to the policy builder always
// yield a structurally identical spec.
type RulesetSpec struct {
	TunnelInterface string
	Rules           []Rule
}
