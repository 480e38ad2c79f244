package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hyprconnect/hyprconnect/internal/config"
	"github.com/hyprconnect/hyprconnect/internal/logtail"
)

func logsCmd(opts *rootOptions) *cobra.Command {
	var (
		lines  int
		file   string
		filter logtail.Filter
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log lines",
		Long: `Print the tail of the hyprconnectd log file in a readable form.
The file is log_file from config.toml unless --file is given; the daemon
only writes one when log_file or -log-file is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				path = cfg.LogFile
			}
			if path == "" {
				return fmt.Errorf("no log file configured; set log_file in config.toml or pass --file")
			}
			entries, err := logtail.Read(path, lines)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s is empty or missing\n", path)
				return nil
			}
			noColor := color.NoColor || cmd.OutOrStdout() != os.Stdout
			return logtail.Render(cmd.OutOrStdout(), entries, filter, noColor)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of lines to show (0 for all)")
	cmd.Flags().StringVar(&file, "file", "", "log file path")
	cmd.Flags().StringVar(&filter.Level, "level", "", "minimum level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.Component, "component", "", "only show this component (reconciler, ipc, action, notify, signals)")
	return cmd
}
