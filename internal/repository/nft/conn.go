package nft

import "github.com/google/nftables"

// Conn is the slice of *nftables.Conn the controller needs. Narrow on
// purpose so tests can run against a fake without a kernel.
type Conn interface {
	AddTable(t *nftables.Table) *nftables.Table
	DelTable(t *nftables.Table)
	AddChain(c *nftables.Chain) *nftables.Chain
	AddRule(r *nftables.Rule) *nftables.Rule
	ListTablesOfFamily(family nftables.TableFamily) ([]*nftables.Table, error)
	Flush() error
}

// NewConn opens a lazy netlink connection to the nftables subsystem.
func NewConn() (Conn, error) {
	return nftables.New()
}
