package cli

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hyprconnect/hyprconnect/internal/config"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
	"github.com/hyprconnect/hyprconnect/internal/kdeconnect"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

const doctorProbeTimeout = 5 * time.Second

type checkStatus int

const (
	checkPass checkStatus = iota
	checkWarn
	checkFail
)

func (s checkStatus) symbol() string {
	switch s {
	case checkPass:
		return color.New(color.FgGreen).Sprint("✓")
	case checkWarn:
		return color.New(color.FgYellow).Sprint("⚠")
	default:
		return color.New(color.FgRed).Sprint("✗")
	}
}

// checkResult is the outcome of a single doctor check.
type checkResult struct {
	Name    string
	Status  checkStatus
	Details string // shown when Status is not checkPass
}

// pluginChecks are the kdeconnect plugins hyprconnect relies on; a missing
// one disables the matching commands but is not fatal.
var pluginChecks = []struct{ id, feature string }{
	{"kdeconnect_battery", "battery level"},
	{"kdeconnect_connectivity_report", "signal strength"},
	{"kdeconnect_sftp", "mount, open-mount, toggle-mount"},
	{"kdeconnect_share", "share-file, share-url, share-clipboard"},
	{"kdeconnect_ping", "ping"},
	{"kdeconnect_findmyphone", "find"},
	{"kdeconnect_mprisremote", "media"},
}

func doctorCmd(opts *rootOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local diagnostics",
		Long: `Check the prerequisites for Hyprconnect and KDE Connect.

Validates:
- config.toml parses
- kdeconnect-cli, kdeconnectd, fusermount and xdg-open are installed
- kdeconnectd owns its session bus name and answers kdeconnect-cli
- hyprconnectd answers on its socket and reports the backend online
- the target device advertises the plugins each command needs

Examples:
  hyprconnectctl doctor           # full report
  hyprconnectctl doctor --quiet   # exit code only (0=healthy, 1=issues)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			results := runDoctor(ctx, opts)
			if !quiet {
				writeReport(cmd.OutOrStdout(), results)
			}
			if hasFailures(results) {
				return fmt.Errorf("doctor found failing checks")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "exit code only")
	return cmd
}

func runDoctor(ctx context.Context, opts *rootOptions) []checkResult {
	cli := checkBinary("kdeconnect-cli", checkFail, "install kdeconnect")
	results := []checkResult{
		checkConfig(opts.configPath),
		cli,
		checkBinary("kdeconnectd", checkWarn, "usually started by the desktop session; may live outside PATH"),
		checkBinary("fusermount", checkWarn, "needed to unmount phone storage"),
		checkBinary("xdg-open", checkWarn, "needed by open-mount and toggle-mount"),
	}

	bus := kdeconnect.NewBus(nil)
	defer bus.Close()
	results = append(results, checkKDEConnectBus(ctx, bus))
	if cli.Status == checkPass {
		results = append(results, checkListDevices(ctx))
	}

	daemon, st := checkDaemon(ctx, opts)
	results = append(results, daemon)
	if st == nil {
		return results
	}
	results = append(results, checkBackend(st))
	if dev := doctorTarget(st); dev != nil {
		results = append(results, checkPlugins(ctx, bus, *dev)...)
	}
	return results
}

func checkConfig(path string) checkResult {
	if _, err := config.Load(path); err != nil {
		return checkResult{Name: "config", Status: checkFail, Details: "  " + err.Error()}
	}
	return checkResult{Name: "config", Status: checkPass}
}

func checkBinary(name string, missing checkStatus, hint string) checkResult {
	if _, err := exec.LookPath(name); err != nil {
		return checkResult{Name: name, Status: missing, Details: fmt.Sprintf("  %s not found in PATH (%s)", name, hint)}
	}
	return checkResult{Name: name, Status: checkPass}
}

func checkKDEConnectBus(ctx context.Context, bus *kdeconnect.Bus) checkResult {
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	if err := bus.Available(ctx); err != nil {
		return checkResult{Name: "kdeconnect bus", Status: checkFail, Details: "  " + err.Error()}
	}
	return checkResult{Name: "kdeconnect bus", Status: checkPass}
}

func checkListDevices(ctx context.Context) checkResult {
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "kdeconnect-cli", "--list-devices").CombinedOutput()
	if err != nil {
		details := strings.TrimSpace(string(out))
		if details == "" {
			details = err.Error()
		}
		return checkResult{Name: "list-devices", Status: checkFail, Details: "  " + details}
	}
	return checkResult{Name: "list-devices", Status: checkPass}
}

func checkDaemon(ctx context.Context, opts *rootOptions) (checkResult, *ipc.State) {
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	resp, err := opts.client().Do(ctx, ipc.Request{Command: ipc.CmdStatus, Device: opts.device})
	if err != nil {
		return checkResult{Name: "hyprconnectd", Status: checkFail, Details: "  " + err.Error() + "\n  start it with: hyprconnectd"}, nil
	}
	return checkResult{Name: "hyprconnectd", Status: checkPass}, resp.State
}

func checkBackend(st *ipc.State) checkResult {
	if st.Backend != nil && !st.Backend.Online {
		return checkResult{
			Name:    "backend",
			Status:  checkFail,
			Details: fmt.Sprintf("  %d consecutive failures: %s", st.Backend.ConsecutiveFailures, st.Backend.LastError),
		}
	}
	if len(st.Devices) == 0 {
		return checkResult{Name: "backend", Status: checkWarn, Details: "  no devices known; pair one from the phone app"}
	}
	return checkResult{Name: "backend", Status: checkPass}
}

// doctorTarget picks the device plugin checks run against: the one the
// daemon resolved, else the first reachable, else the first known.
func doctorTarget(st *ipc.State) *state.Device {
	if st.Device != nil {
		return st.Device
	}
	for i := range st.Devices {
		if st.Devices[i].Reachable {
			return &st.Devices[i]
		}
	}
	if len(st.Devices) > 0 {
		return &st.Devices[0]
	}
	return nil
}

func checkPlugins(ctx context.Context, bus *kdeconnect.Bus, dev state.Device) []checkResult {
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	supported, err := bus.SupportedPlugins(ctx, dev.ID)
	if err != nil {
		return []checkResult{{Name: "plugins", Status: checkWarn, Details: "  " + err.Error()}}
	}
	results := make([]checkResult, 0, len(pluginChecks))
	for _, p := range pluginChecks {
		name := strings.TrimPrefix(p.id, "kdeconnect_")
		if slices.Contains(supported, p.id) {
			results = append(results, checkResult{Name: name, Status: checkPass})
			continue
		}
		results = append(results, checkResult{
			Name:    name,
			Status:  checkWarn,
			Details: fmt.Sprintf("  %s does not advertise %s; affects %s", dev.Name, p.id, p.feature),
		})
	}
	return results
}

func hasFailures(results []checkResult) bool {
	for _, r := range results {
		if r.Status == checkFail {
			return true
		}
	}
	return false
}

func writeReport(w io.Writer, results []checkResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check                Status")
	fmt.Fprintln(w, "───────────────────────────")
	for _, r := range results {
		fmt.Fprintf(w, "%-20s %s\n", r.Name, r.Status.symbol())
	}
	fmt.Fprintln(w)

	hasDetails := false
	for _, r := range results {
		if r.Status == checkPass || r.Details == "" {
			continue
		}
		if !hasDetails {
			fmt.Fprintln(w, "Details:")
			hasDetails = true
		}
		fmt.Fprintf(w, "\n%s:\n%s\n", r.Name, r.Details)
	}

	if hasFailures(results) {
		fmt.Fprintln(w, "\nDoctor: fix failed checks above, then retry")
	} else {
		fmt.Fprintln(w, "Doctor: ready for pairing and connect")
	}
}
