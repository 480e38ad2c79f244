package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyprconnect/hyprconnect/internal/action"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
)

func mediaCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Control phone media playback",
		Long:  "Control media on the connected phone through the KDE Connect mprisremote plugin.",
	}

	send := func(c *cobra.Command, args ipc.MediaArgs) error {
		return opts.runAction(c, ipc.Request{Command: action.CmdMedia, Media: &args})
	}
	simple := func(use, op, short string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return send(c, ipc.MediaArgs{Op: op})
			},
		}
	}

	cmd.AddCommand(simple("status", action.MediaStatus, "Show phone media status"))
	cmd.AddCommand(simple("play-pause", action.MediaPlayPause, "Toggle play/pause"))
	cmd.AddCommand(simple("next", action.MediaNext, "Skip to next track"))
	cmd.AddCommand(simple("previous", action.MediaPrevious, "Go to previous track"))
	cmd.AddCommand(simple("stop", action.MediaStop, "Stop playback"))
	cmd.AddCommand(simple("player-list", action.MediaPlayerList, "List available phone media players"))

	var ms int64
	seek := &cobra.Command{
		Use:   "seek --ms <delta>",
		Short: "Seek by milliseconds (negative allowed)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return send(c, ipc.MediaArgs{Op: action.MediaSeek, DeltaMS: ms})
		},
	}
	seek.Flags().Int64Var(&ms, "ms", 0, "seek delta in milliseconds")
	_ = seek.MarkFlagRequired("ms")
	cmd.AddCommand(seek)

	var volume int
	vol := &cobra.Command{
		Use:   "volume --set <0-100>",
		Short: "Set phone media volume (0-100)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if volume < 0 || volume > 100 {
				return fmt.Errorf("volume must be between 0 and 100, got %d", volume)
			}
			return send(c, ipc.MediaArgs{Op: action.MediaVolume, Volume: &volume})
		},
	}
	vol.Flags().IntVar(&volume, "set", 0, "absolute volume percent")
	_ = vol.MarkFlagRequired("set")
	cmd.AddCommand(vol)

	var name string
	playerSet := &cobra.Command{
		Use:   "player-set --name <player>",
		Short: "Set active phone media player",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return send(c, ipc.MediaArgs{Op: action.MediaPlayerSet, Name: name})
		},
	}
	playerSet.Flags().StringVar(&name, "name", "", "player name as listed by player-list")
	_ = playerSet.MarkFlagRequired("name")
	cmd.AddCommand(playerSet)

	return cmd
}
