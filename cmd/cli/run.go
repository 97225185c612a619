package cli

import (
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/routeguard-io/routeguard/internal/handlers/runner"
	"github.com/routeguard-io/routeguard/pkg/logger"
)

var pidfile = "/var/run/routeguard.pid"

func initRunCommand() *cobra.Command {
	runCMD := &cobra.Command{
		Use:   "run",
		Short: "Start routeguard",
		Run: func(cmd *cobra.Command, args []string) {
			daemonMode, _ := cmd.Flags().GetBool("daemonize")
			if daemonMode {
				if err := daemonize(os.Args[1:]); err != nil {
					qwe(exitCodeError, err, "failed to daemonize")
				}
				return
			}

			if err := runner.Run(*cmd); err != nil {
				qwe(exitCodeError, err, "failed to run routeguard")
			}
		},
	}

	addRulesetFlags(runCMD)
	runCMD.Flags().String("mode", "monitor", "protect || monitor")
	runCMD.Flags().Int("interval", 5, "route poll interval in seconds")
	runCMD.Flags().Bool("up-vpn", false, "bring the tunnel up with wg-quick before enforcing")
	runCMD.Flags().Bool("down-vpn-on-exit", false, "bring the tunnel down with wg-quick on exit")
	runCMD.Flags().Bool("no-cleanup", false, "leave the kill-switch table in place on exit")
	runCMD.Flags().Bool("daemonize", false, "daemonize process")
	runCMD.Flags().StringP("output-file-name", "o", "/tmp/routeguard.out", "output file name")

	return runCMD
}

// addRulesetFlags registers the flags shared by run and policy: the
// inputs of the ruleset build.
func addRulesetFlags(cmd *cobra.Command) {
	cmd.Flags().String("wg-config", "", "path to the WireGuard config file (required)")
	cmd.Flags().String("iface", "", "override the tunnel interface name derived from the config filename")
	cmd.Flags().Bool("no-allow-lan", false, "do not allow private LAN ranges")
	cmd.Flags().Bool("no-allow-dhcp", false, "do not allow DHCP/DHCPv6 traffic")
}

func daemonize(args []string) error {
	if _, err := os.Stat(pidfile); err == nil {
		qwm(1, "Already running or pidfile exist.")
		return err
	}

	filteredArgs := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--daemonize" {
			continue
		}
		filteredArgs = append(filteredArgs, args[i])
	}

	cmd := exec.Command(os.Args[0], filteredArgs...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	savePID(cmd.Process.Pid)
	qwm(0, "Process started with PID: "+strconv.Itoa(cmd.Process.Pid))

	return nil
}

// removePIDFile clears the daemonize pidfile so the next run can start.
func removePIDFile() {
	if err := os.Remove(pidfile); err != nil && !os.IsNotExist(err) {
		logger.Log.Warnf("failed to remove pidfile %s: %v", pidfile, err)
	}
}

func savePID(pid int) {
	file, err := os.Create(pidfile)
	if err != nil {
		qwe(exitCodeError, err, "Unable to write pid file")
	}
	defer file.Close()

	_, err = file.WriteString(strconv.Itoa(pid))
	if err != nil {
		qwe(exitCodeError, err, "Unable to write pid file")
	}

	file.Sync()
}
