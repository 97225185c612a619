package firewall

import "github.com/routeguard-io/routeguard/internal/core/domain"

// Controller manages the one named kill-switch table in the live kernel
// firewall. The table is the only durable artifact RouteGuard owns; its
// presence must match the supervisor's run state.
type Controller interface {
	// Install atomically replaces the table with one implementing spec.
	// Either the full table (rules plus default-deny policy) becomes
	// visible at once, or nothing changes.
	Install(spec domain.RulesetSpec) error
	// Teardown removes the table by identity. Idempotent: an absent
	// table is success, only an unreachable firewall subsystem errors.
	Teardown() error
	// IsInstalled reports whether the named table currently exists.
	IsInstalled() (bool, error)
}
