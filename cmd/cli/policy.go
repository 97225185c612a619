package cli

import (
	"fmt"
	"net/netip"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/routeguard-io/routeguard/internal/handlers/runner"
)

func initPolicyCommand() *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Preview the ruleset for a config without touching the firewall",
		Run: func(cmd *cobra.Command, args []string) {
			spec, facts, err := runner.BuildRuleset(*cmd)
			if err != nil {
				qwe(exitCodeError, err, "failed to build ruleset")
			}

			fmt.Printf("table inet routeguard / chain rg_output (policy drop), tunnel %q\n\n", facts.InterfaceName)

			data := pterm.TableData{
				{"Rule", "Family", "Action", "Out Iface", "Destination", "Proto", "Port"},
			}
			for _, r := range spec.Rules {
				data = append(data, []string{
					r.Comment,
					r.Family.String(),
					r.Action.String(),
					orDash(r.Match.OutInterface),
					prefixLabel(r.Match.Destination),
					orDash(r.Match.Protocol),
					portLabel(r.Match.DestPort),
				})
			}
			pterm.DefaultTable.WithHasHeader().WithRowSeparator("-").WithHeaderRowSeparator("-").WithData(data).Render()
		},
	}

	addRulesetFlags(policyCmd)

	return policyCmd
}

func prefixLabel(p netip.Prefix) string {
	if !p.IsValid() {
		return "-"
	}
	return p.String()
}

func portLabel(p uint16) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", p)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
