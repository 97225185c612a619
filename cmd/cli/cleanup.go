package cli

import (
	"github.com/spf13/cobra"

	"github.com/routeguard-io/routeguard/internal/repository/nft"
	"github.com/routeguard-io/routeguard/pkg/state"
	"github.com/routeguard-io/routeguard/pkg/utils"
)

func initCleanupCommand() *cobra.Command {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the kill-switch table left behind by a crashed run",
		Run: func(cmd *cobra.Command, args []string) {
			if !utils.IsRoot() {
				qwm(exitCodeError, "you need root privileges to remove the kill-switch table")
			}

			fw, err := nft.NewController()
			if err != nil {
				qwe(exitCodeError, err, "failed to open nftables connection")
			}

			if err := fw.Teardown(); err != nil {
				qwe(exitCodeError, err, "failed to remove the kill-switch table")
			}

			state.Remove()
			removePIDFile()
			qwm(exitCodeSuccess, "kill-switch table removed")
		},
	}

	return cleanupCmd
}
