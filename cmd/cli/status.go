package cli

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/routeguard-io/routeguard/internal/repository/nft"
	"github.com/routeguard-io/routeguard/pkg/state"
)

func initStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print routeguard daemon and kill-switch table status",
		Run: func(cmd *cobra.Command, args []string) {
			processStatus := "not running"
			iface := "-"
			mode := "-"

			s, _, err := state.Read()
			if err == nil {
				iface = s.Interface
				mode = s.Mode
				if state.Alive(s.PID) {
					processStatus = "running with PID " + strconv.Itoa(s.PID)
				} else {
					processStatus = "stale state for PID " + strconv.Itoa(s.PID)
				}
			}

			tableStatus := "unknown"
			if fw, err := nft.NewController(); err == nil {
				switch ok, err := fw.IsInstalled(); {
				case err != nil:
					tableStatus = "unknown: " + err.Error()
				case ok:
					tableStatus = "installed"
				default:
					tableStatus = "not installed"
				}
			}

			data := pterm.TableData{
				{"Process", processStatus},
				{"Mode", mode},
				{"Tunnel Interface", iface},
				{"Kill-Switch Table", tableStatus},
			}
			pterm.DefaultTable.WithRowSeparator("-").WithData(data).Render()
		},
	}

	return statusCmd
}
