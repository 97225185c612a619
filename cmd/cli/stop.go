package cli

import (
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/routeguard-io/routeguard/internal/repository/nft"
	"github.com/routeguard-io/routeguard/pkg/logger"
	"github.com/routeguard-io/routeguard/pkg/reporter"
	"github.com/routeguard-io/routeguard/pkg/state"
	"github.com/routeguard-io/routeguard/pkg/utils"
)

func initStopCommand() *cobra.Command {
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running routeguard and remove the kill-switch table",
		Run: func(cmd *cobra.Command, args []string) {
			s, path, err := state.Read()
			if err != nil {
				logger.Log.Debugf("no run state found: %v", err)
			}

			if err == nil && state.Alive(s.PID) {
				if err := syscall.Kill(s.PID, syscall.SIGTERM); err != nil {
					qwe(127, err, "failed to signal the process")
				}

				// the running process owns the teardown; give it a moment
				for i := 0; i < 50 && state.Alive(s.PID); i++ {
					time.Sleep(100 * time.Millisecond)
				}

				if state.Alive(s.PID) {
					qwm(127, fmt.Sprintf("process [%d] did not exit, try cleanup", s.PID))
				}

				fmt.Printf("Process id [%d] stopped\n", s.PID)
			} else if err == nil {
				logger.Log.Infof("process [%d] from %s is already gone", s.PID, path)
			}

			// the table is removed by identity, whether or not a
			// process was found
			removeTable()
			state.Remove()
			removePIDFile()

			if err := reporter.LoadAndPrint(s.OutputFile); err != nil {
				logger.Log.Debugf("no report to print: %v", err)
			}
		},
	}

	return stopCmd
}

func removeTable() {
	if !utils.IsRoot() {
		logger.Log.Debug("not root, skipping table removal")
		return
	}

	fw, err := nft.NewController()
	if err != nil {
		logger.Log.Warnf("failed to open nftables connection: %v", err)
		return
	}

	if err := fw.Teardown(); err != nil {
		logger.Log.Errorf("failed to remove the kill-switch table: %v", err)
	}
}
