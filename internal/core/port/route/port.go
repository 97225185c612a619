package route

import "github.com/routeguard-io/routeguard/internal/core/domain"

// Source produces a point-in-time view of the kernel route table with
// the leak predicate already evaluated per route.
type Source interface {
	Snapshot() ([]domain.LeakRoute, error)
}
