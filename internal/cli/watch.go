package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyprconnect/hyprconnect/internal/config"
	"github.com/hyprconnect/hyprconnect/internal/prefs"
	"github.com/hyprconnect/hyprconnect/internal/ui"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	var (
		theme     string
		prefsPath string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live device view",
		Long: `Open a full-screen view that polls hyprconnectd every second.
Keys: r refresh discovery, T cycle theme (saved to prefs.toml), ? help, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			p, err := prefs.Load(prefsPath)
			if err != nil {
				return fmt.Errorf("load prefs: %w", err)
			}
			if theme != "" {
				p.Theme = theme
			}
			return ui.Run(ui.Options{
				Context:    cmd.Context(),
				Client:     opts.client(),
				ThemeName:  p.Theme,
				PrefsPath:  prefsPath,
				Thresholds: ui.ThresholdsFrom(cfg),
			})
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", fmt.Sprintf("color theme %v", ui.ThemeNames()))
	cmd.Flags().StringVar(&prefsPath, "prefs", prefs.DefaultPath(), "preferences file")
	return cmd
}
