package nft

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os/exec"
	"strings"
	"time"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"

	"github.com/routeguard-io/routeguard/internal/core/domain"
	"github.com/routeguard-io/routeguard/pkg/logger"
)

const (
	// TableName identifies the one table RouteGuard owns. Teardown works
	// from any process by this identity alone.
	TableName = "routeguard"
	// ChainName is the output-hook chain inside the table.
	ChainName = "rg_output"

	flushTimeout = 10 * time.Second
)

// Controller implements the kill-switch table lifecycle on top of
// nftables. Every mutation is staged on the connection and committed
// with a single flush, so the kernel sees either the complete table or
// no change at all.
type Controller struct {
	conn    Conn
	timeout time.Duration

	// escalate is the last-resort teardown when the netlink transaction
	// hangs or fails; swapped out in tests.
	escalate func() error
}

// NewController connects to the nftables subsystem.
func NewController() (*Controller, error) {
	conn, err := NewConn()
	if err != nil {
		return nil, &domain.FirewallError{Op: "connect", Err: err}
	}
	return NewControllerWithConn(conn), nil
}

// NewControllerWithConn builds a controller around an injected
// connection.
func NewControllerWithConn(conn Conn) *Controller {
	return &Controller{
		conn:     conn,
		timeout:  flushTimeout,
		escalate: escalateViaCLI,
	}
}

// Install atomically replaces the kill-switch table with one realizing
// spec. The add-delete-add sequence keeps the embedded delete from
// failing when no previous table exists, so re-installs never stack
// duplicates and first installs need no existence probe.
func (c *Controller) Install(spec domain.RulesetSpec) error {
	stale := c.conn.AddTable(&nftables.Table{Family: nftables.TableFamilyINet, Name: TableName})
	c.conn.DelTable(stale)

	tbl := c.conn.AddTable(&nftables.Table{Family: nftables.TableFamilyINet, Name: TableName})

	policy := nftables.ChainPolicyDrop
	chain := c.conn.AddChain(&nftables.Chain{
		Name:     ChainName,
		Table:    tbl,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookOutput,
		Priority: nftables.ChainPriorityFilter,
		Policy:   &policy,
	})

	for _, r := range spec.Rules {
		c.conn.AddRule(compileRule(tbl, chain, r))
	}

	if err := c.flush("install"); err != nil {
		return err
	}

	ok, err := c.IsInstalled()
	if err != nil {
		return err
	}
	if !ok {
		return &domain.FirewallError{Op: "install", Err: errors.New("table missing after apply")}
	}
	return nil
}

// Teardown removes the table by identity. Succeeds when the table is
// already absent; errors only when the firewall subsystem itself cannot
// be reached, and even then only after a forced CLI deletion attempt.
func (c *Controller) Teardown() error {
	tbl := c.conn.AddTable(&nftables.Table{Family: nftables.TableFamilyINet, Name: TableName})
	c.conn.DelTable(tbl)

	if err := c.flush("teardown"); err != nil {
		logger.Log.Warnf("netlink teardown failed, forcing CLI deletion: %v", err)
		if cliErr := c.escalate(); cliErr != nil {
			return &domain.FirewallError{Op: "teardown", Err: errors.Join(err, cliErr)}
		}
	}
	return nil
}

// IsInstalled reports whether the named table exists right now.
func (c *Controller) IsInstalled() (bool, error) {
	tables, err := c.conn.ListTablesOfFamily(nftables.TableFamilyINet)
	if err != nil {
		return false, &domain.FirewallError{Op: "list", Err: err}
	}
	for _, t := range tables {
		if t.Name == TableName {
			return true, nil
		}
	}
	return false, nil
}

// flush commits the staged batch with a hard timeout so a wedged
// netlink socket cannot hang the supervisor.
func (c *Controller) flush(op string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.conn.Flush() }()

	select {
	case err := <-errCh:
		if err != nil {
			return &domain.FirewallError{Op: op, Err: err}
		}
		return nil
	case <-time.After(c.timeout):
		return &domain.FirewallError{Op: op, Err: errors.New("netlink transaction timed out")}
	}
}

func escalateViaCLI() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nft", "delete", "table", "inet", TableName).CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "No such file or directory") {
			return nil
		}
		return fmt.Errorf("nft delete table: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// compileRule translates one abstract rule into nftables expressions.
func compileRule(tbl *nftables.Table, chain *nftables.Chain, r domain.Rule) *nftables.Rule {
	var exprs []expr.Any

	if r.Match.InInterface != "" {
		exprs = append(exprs,
			&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(r.Match.InInterface)},
		)
	}
	if r.Match.OutInterface != "" {
		exprs = append(exprs,
			&expr.Meta{Key: expr.MetaKeyOIFNAME, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(r.Match.OutInterface)},
		)
	}
	if r.Match.Destination.IsValid() {
		exprs = append(exprs, destinationExprs(r.Match.Destination)...)
	}
	if r.Match.Protocol != "" {
		exprs = append(exprs,
			&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{protoNumber(r.Match.Protocol)}},
		)
	}
	if r.Match.SrcPort != 0 {
		exprs = append(exprs, portExprs(0, r.Match.SrcPort)...)
	}
	if r.Match.DestPort != 0 {
		exprs = append(exprs, portExprs(2, r.Match.DestPort)...)
	}

	verdict := expr.VerdictAccept
	if r.Action == domain.ActionDrop {
		verdict = expr.VerdictDrop
	}
	exprs = append(exprs, &expr.Verdict{Kind: verdict})

	rule := &nftables.Rule{Table: tbl, Chain: chain, Exprs: exprs}
	if r.Comment != "" {
		rule.UserData = []byte(r.Comment)
	}
	return rule
}

// destinationExprs matches the destination address against a prefix. In
// an inet table the payload offset depends on the IP version, so each
// match is guarded by an nfproto check.
func destinationExprs(dst netip.Prefix) []expr.Any {
	dst = dst.Masked()
	addr := dst.Addr()

	var (
		nfproto byte
		offset  uint32
		length  uint32
		data    []byte
	)
	if addr.Is4() {
		nfproto = unix.NFPROTO_IPV4
		offset, length = 16, 4
		b := addr.As4()
		data = b[:]
	} else {
		nfproto = unix.NFPROTO_IPV6
		offset, length = 24, 16
		b := addr.As16()
		data = b[:]
	}

	exprs := []expr.Any{
		&expr.Meta{Key: expr.MetaKeyNFPROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{nfproto}},
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseNetworkHeader,
			Offset:       offset,
			Len:          length,
		},
	}

	if dst.Bits() < addr.BitLen() {
		mask := net.CIDRMask(dst.Bits(), addr.BitLen())
		exprs = append(exprs, &expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            length,
			Mask:           mask,
			Xor:            make([]byte, length),
		})
	}

	return append(exprs, &expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: data})
}

func portExprs(offset uint32, port uint16) []expr.Any {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, port)
	return []expr.Any{
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseTransportHeader,
			Offset:       offset,
			Len:          2,
		},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: data},
	}
}

func protoNumber(proto string) byte {
	switch proto {
	case "tcp":
		return unix.IPPROTO_TCP
	default:
		return unix.IPPROTO_UDP
	}
}

// ifname pads an interface name to IFNAMSIZ as the kernel expects.
func ifname(n string) []byte {
	b := make([]byte, 16)
	copy(b, n)
	return b
}
