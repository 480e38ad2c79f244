package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyprconnect/hyprconnect/internal/config"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
	"github.com/hyprconnect/hyprconnect/internal/ui"
)

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show concise daemon status",
		Long:  "Print the target device, the number of known devices and backend health.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.request(cmd, ipc.Request{Command: ipc.CmdStatus})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), resp.State)
			}
			ui.WriteStatus(cmd.OutOrStdout(), resp.State)
			return nil
		},
	}
}

func devicesCmd(opts *rootOptions) *cobra.Command {
	return deviceListCmd(opts, "devices", ipc.CmdDevices,
		"List all known devices",
		"List every device present in the daemon cache. Use --json for output that includes battery, charging, signal and network metadata.",
		"No devices known to KDE Connect")
}

func listAvailableCmd(opts *rootOptions) *cobra.Command {
	return deviceListCmd(opts, "list-available", ipc.CmdListAvailable,
		"List currently reachable devices",
		"Show only devices that are currently reachable over KDE Connect.",
		"No reachable devices found")
}

func deviceListCmd(opts *rootOptions, use, command, short, long, empty string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.request(cmd, ipc.Request{Command: command})
			if err != nil {
				return err
			}
			var st ipc.State
			if resp.State != nil {
				st = *resp.State
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), st.Devices)
			}
			return ui.WriteDevices(cmd.OutOrStdout(), st.Devices, empty)
		},
	}
}

func waybarCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "waybar",
		Aliases: []string{"waybar-json"},
		Short:   "Emit Waybar JSON payload",
		Long: `Output a single JSON object suitable for Waybar custom modules.
The payload contains text, tooltip, class and percentage fields. When the
daemon is unreachable the offline payload is printed and the exit code is 0
so the bar keeps rendering.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				cfg = config.Default()
			}
			var st *ipc.State
			if resp, err := opts.request(cmd, ipc.Request{Command: ipc.CmdStatus}); err == nil {
				st = resp.State
			}
			data, err := json.Marshal(ui.Waybar(st, ui.ThresholdsFrom(cfg)))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
