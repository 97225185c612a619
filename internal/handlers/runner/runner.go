// Package runner wires the config, resolver, policy builder, firewall
// and route watcher together and drives one full run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/routeguard-io/routeguard/internal/core/domain"
	"github.com/routeguard-io/routeguard/internal/core/usecase/policy"
	"github.com/routeguard-io/routeguard/internal/core/usecase/supervisor"
	"github.com/routeguard-io/routeguard/internal/repository/nft"
	routerepo "github.com/routeguard-io/routeguard/internal/repository/route"
	"github.com/routeguard-io/routeguard/pkg/logger"
	"github.com/routeguard-io/routeguard/pkg/reporter"
	"github.com/routeguard-io/routeguard/pkg/resolver"
	"github.com/routeguard-io/routeguard/pkg/state"
	"github.com/routeguard-io/routeguard/pkg/utils"
	"github.com/routeguard-io/routeguard/pkg/wgconf"
	"github.com/routeguard-io/routeguard/pkg/wgquick"
)

const linkWaitTimeout = 10 * time.Second

// Run runs routeguard until a signal or a stop request.
func Run(cmd cobra.Command) error {
	var mode = cmd.Flag("mode").Value.String()
	if mode != domain.ModeMonitor && mode != domain.ModeProtect {
		return fmt.Errorf("[mode] flag is invalid: %s", mode)
	}

	var configPath = cmd.Flag("wg-config").Value.String()
	if configPath == "" {
		return errors.New("[wg-config] flag is required")
	}

	if !utils.IsRoot() {
		if mode == domain.ModeProtect {
			return domain.ErrNotRoot
		}
		logger.Log.Warn("running unprivileged, route snapshots may be incomplete")
	}

	spec, facts, err := BuildRuleset(cmd)
	if err != nil {
		return err
	}

	upVPN, _ := cmd.Flags().GetBool("up-vpn")
	downVPNOnExit, _ := cmd.Flags().GetBool("down-vpn-on-exit")
	if upVPN {
		logger.Log.Infof("bringing up tunnel from %s", configPath)
		if err := wgquick.Up(context.Background(), configPath); err != nil {
			return err
		}
		if err := utils.WaitForLink(facts.InterfaceName, linkWaitTimeout); err != nil {
			return err
		}
	}

	if mode == domain.ModeProtect && !utils.LinkExists(facts.InterfaceName) {
		logger.Log.Warnf("tunnel interface %q is not up yet, traffic stays blocked until it appears", facts.InterfaceName)
	}

	fw, err := nft.NewController()
	if err != nil {
		return fmt.Errorf("failed to open nftables connection: %w", err)
	}

	var outputFile = cmd.Flag("output-file-name").Value.String()
	report := reporter.NewReporter(outputFile, facts.InterfaceName)
	if report.Err != nil {
		return report.Err
	}
	defer report.Close()

	interval, _ := cmd.Flags().GetInt("interval")
	noCleanup, _ := cmd.Flags().GetBool("no-cleanup")

	statePath, err := state.Write(state.State{
		PID:             os.Getpid(),
		StartedAt:       time.Now(),
		Mode:            mode,
		Interface:       facts.InterfaceName,
		IntervalSeconds: interval,
		OutputFile:      outputFile,
	})
	if err != nil {
		logger.Log.Warnf("failed to record run state: %v", err)
	} else {
		logger.Log.Debugf("run state written to %s", statePath)
		defer state.Remove()
	}

	sup := supervisor.New(supervisor.Config{
		Mode:          mode,
		Interval:      time.Duration(interval) * time.Second,
		CleanupOnExit: !noCleanup,
	}, spec, fw, routerepo.New(facts.InterfaceName), report)

	runErr := sup.Run()

	report.PrintReportTable()

	if downVPNOnExit {
		logger.Log.Infof("bringing down tunnel from %s", configPath)
		if err := wgquick.Down(context.Background(), configPath); err != nil {
			logger.Log.Errorf("failed to bring tunnel down: %v", err)
		}
	}

	return runErr
}

// BuildRuleset extracts the tunnel facts, resolves the endpoint and
// builds the ruleset spec without touching the kernel. The policy
// preview command uses it too.
func BuildRuleset(cmd cobra.Command) (domain.RulesetSpec, domain.TunnelFacts, error) {
	var configPath = cmd.Flag("wg-config").Value.String()

	facts, err := wgconf.Extract(configPath)
	if err != nil {
		return domain.RulesetSpec{}, domain.TunnelFacts{}, err
	}

	if iface := cmd.Flag("iface").Value.String(); iface != "" {
		facts.InterfaceName = iface
	}

	resolved, err := resolver.New().Resolve(context.Background(), facts)
	if err != nil {
		var warning *domain.ResolutionWarning
		if !errors.As(err, &warning) {
			return domain.RulesetSpec{}, domain.TunnelFacts{}, err
		}
		logger.Log.Warnf("%v; endpoint rules omitted until the next run", warning)
	}

	noAllowLAN, _ := cmd.Flags().GetBool("no-allow-lan")
	noAllowDHCP, _ := cmd.Flags().GetBool("no-allow-dhcp")

	spec := policy.Build(facts, resolved, domain.PolicyOptions{
		AllowDHCP: !noAllowDHCP,
		AllowLAN:  !noAllowLAN,
	})

	return spec, facts, nil
}
