package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyprconnect/hyprconnect/internal/action"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
)

// simpleCmd sends command for the resolved device with no arguments.
func simpleCmd(opts *rootOptions, use, command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runAction(cmd, ipc.Request{Command: command})
		},
	}
}

// pairCmd covers pair and unpair; both need an explicit device id.
func pairCmd(opts *rootOptions, command, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   command + " [device-id]",
		Short: short,
		Long:  long + "\nThe device id may be given as an argument or with --device.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := opts.device
			if len(args) == 1 {
				device = strings.TrimSpace(args[0])
			}
			if device == "" {
				return fmt.Errorf("%s needs a device id; see hyprconnectctl devices", command)
			}
			return opts.runAction(cmd, ipc.Request{Command: command, Device: device})
		},
	}
}

func shareFileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "share-file <path>",
		Short: "Share a file to a device",
		Long: `Send a local file to a paired and reachable device using the KDE Connect
share plugin. Relative paths are resolved against the current directory
before the request is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return opts.runAction(cmd, ipc.Request{Command: action.CmdShareFile, Path: path})
		},
	}
}

func shareURLCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "share-url <url>",
		Short: "Share a URL to a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runAction(cmd, ipc.Request{Command: action.CmdShareURL, URL: args[0]})
		},
	}
}

func pingCmd(opts *rootOptions) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Ping a device",
		Long:  "Send a ping notification to a paired and reachable device.\nUse --message to customize the text shown on the phone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runAction(cmd, ipc.Request{Command: action.CmdPing, Message: message})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "custom ping message")
	return cmd
}
