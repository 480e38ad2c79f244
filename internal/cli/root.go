package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyprconnect/hyprconnect/internal/action"
	"github.com/hyprconnect/hyprconnect/internal/config"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
	"github.com/hyprconnect/hyprconnect/internal/version"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	socket     string
	device     string
	configPath string
	json       bool
	timeout    time.Duration
}

// Root builds the hyprconnectctl command tree.
func Root() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:     "hyprconnectctl",
		Short:   "Control and inspect Hyprconnect",
		Version: version.String(),
		Long: `hyprconnectctl talks to the local hyprconnectd daemon over a Unix socket.
It provides device status, pairing operations, sharing actions, ping, media
control, diagnostics, and Waybar-formatted JSON output.

Commands that act on a phone pick the device given with --device, then
default_device from config.toml, then the first paired and reachable device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.socket, "socket", config.SocketPath(), "daemon socket path")
	pf.StringVarP(&opts.device, "device", "d", "", "target device id")
	pf.StringVar(&opts.configPath, "config", "", "config path (thresholds and log_file)")
	pf.BoolVar(&opts.json, "json", false, "emit structured JSON instead of plain text")
	pf.DurationVar(&opts.timeout, "timeout", ipc.DefaultClientTimeout, "request timeout")

	root.AddCommand(statusCmd(opts))
	root.AddCommand(devicesCmd(opts))
	root.AddCommand(listAvailableCmd(opts))
	root.AddCommand(waybarCmd(opts))

	root.AddCommand(pairCmd(opts, action.CmdPair, "Request pairing with a device",
		"Send a KDE Connect pairing request to a specific device id.\nYou may need to accept the request on the phone."))
	root.AddCommand(pairCmd(opts, action.CmdUnpair, "Unpair a device",
		"Remove KDE Connect pairing from a specific device id."))
	root.AddCommand(shareFileCmd(opts))
	root.AddCommand(shareURLCmd(opts))
	root.AddCommand(simpleCmd(opts, "share-clipboard", action.CmdShareClipboard, "Share clipboard text or URL"))
	root.AddCommand(pingCmd(opts))
	root.AddCommand(simpleCmd(opts, "refresh", action.CmdRefresh, "Request device rediscovery"))
	root.AddCommand(simpleCmd(opts, "find", action.CmdFind, "Ring the target phone"))
	root.AddCommand(simpleCmd(opts, "mount", action.CmdMount, "Mount phone filesystem"))
	root.AddCommand(simpleCmd(opts, "open-mount", action.CmdOpenMount, "Mount and open phone filesystem"))
	root.AddCommand(simpleCmd(opts, "toggle-mount", action.CmdToggleMount, "Unmount if mounted, otherwise mount and open"))
	root.AddCommand(mediaCmd(opts))

	root.AddCommand(doctorCmd(opts))
	root.AddCommand(watchCmd(opts))
	root.AddCommand(logsCmd(opts))

	return root
}

func (o *rootOptions) client() *ipc.Client {
	c := ipc.NewClient(o.socket)
	if o.timeout > 0 {
		c.Timeout = o.timeout
	}
	return c
}

// request sends req, filling the device and json fields from flags.
func (o *rootOptions) request(cmd *cobra.Command, req ipc.Request) (ipc.Response, error) {
	if req.Device == "" {
		req.Device = o.device
	}
	req.JSON = o.json
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := o.client().Do(ctx, req)
	if err != nil && o.json && resp.Error != nil {
		_ = writeJSON(cmd.OutOrStdout(), resp)
	}
	return resp, err
}

// runAction sends an action request and prints its result.
func (o *rootOptions) runAction(cmd *cobra.Command, req ipc.Request) error {
	resp, err := o.request(cmd, req)
	if err != nil {
		return err
	}
	if o.json {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	return writeResult(cmd.OutOrStdout(), resp.Result)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResult(w io.Writer, r *action.Result) error {
	if r == nil {
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
	if r.Message != "" {
		fmt.Fprintln(w, r.Message)
	}
	if m := r.Media; m != nil {
		playing := "paused"
		if m.Playing {
			playing = "playing"
		}
		fmt.Fprintf(w, "Player: %s\nTitle:  %s\nArtist: %s\nState:  %s\nVolume: %d%%\n",
			orDash(m.Player), orDash(m.Title), orDash(m.Artist), playing, m.Volume)
	}
	for _, p := range r.Players {
		fmt.Fprintln(w, p)
	}
	if r.Message == "" && r.Media == nil && len(r.Players) == 0 {
		fmt.Fprintln(w, "ok")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}
