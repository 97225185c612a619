package domain

import (
	"errors"
	"fmt"
)

// ErrNotRoot is returned when an operation needs root privileges.
var ErrNotRoot = errors.New("root privileges required")

// ConfigError means the WireGuard config is missing or malformed. Fatal:
// a run never starts from a bad config.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// FirewallError means the nftables subsystem rejected or could not
// perform an install/teardown. Install failures in protect mode are
// fatal; teardown failures are logged and never re-raised.
type FirewallError struct {
	Op  string
	Err error
}

func (e *FirewallError) Error() string {
	return fmt.Sprintf("firewall %s failed: %v", e.Op, e.Err)
}

func (e *FirewallError) Unwrap() error { return e.Err }

// RouteSnapshotError means one poll cycle could not read the route
// table. Recoverable: the cycle is skipped.
type RouteSnapshotError struct {
	Err error
}

func (e *RouteSnapshotError) Error() string {
	return fmt.Sprintf("route snapshot failed: %v", e.Err)
}

func (e *RouteSnapshotError) Unwrap() error { return e.Err }

// ResolutionWarning means the endpoint host did not resolve. Recoverable
// by design: the ruleset is still installable, it just omits the
// endpoint allow rules, preferring blocked-but-safe over open-but-leaky.
type ResolutionWarning struct {
	Host string
	Err  error
}

func (e *ResolutionWarning) Error() string {
	return fmt.Sprintf("cannot resolve endpoint host %q: %v", e.Host, e.Err)
}

func (e *ResolutionWarning) Unwrap() error { return e.Err }
