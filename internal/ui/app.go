package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyprconnect/hyprconnect/internal/action"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
	"github.com/hyprconnect/hyprconnect/internal/prefs"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

const (
	defaultPollTick = time.Second
	requestTimeout  = 3 * time.Second
)

// Requester sends IPC requests; *ipc.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, req ipc.Request) (ipc.Response, error)
}

// Options configure the watch view.
type Options struct {
	Context    context.Context
	Client     Requester
	PollTick   time.Duration
	ThemeName  string
	PrefsPath  string
	Thresholds Thresholds
}

// Model is the Bubble Tea model for hyprconnectctl watch.
type Model struct {
	ctx        context.Context
	client     Requester
	pollTick   time.Duration
	prefsPath  string
	thresholds Thresholds

	theme    Theme
	keys     keyMap
	help     help.Model
	width    int
	height   int
	ready    bool
	showHelp bool

	state       *ipc.State
	err         error
	notice      string
	lastUpdated time.Time
	selected    int
}

// New creates a watch model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	th := opts.Thresholds
	if th.Warn == 0 && th.Crit == 0 {
		th = Thresholds{Warn: 30, Crit: 15}
	}
	return Model{
		ctx:        ctx,
		client:     opts.Client,
		pollTick:   pollTick,
		prefsPath:  opts.PrefsPath,
		thresholds: th,
		theme:      GetTheme(opts.ThemeName),
		keys:       DefaultKeyMap(),
		help:       help.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchStateCmd(m.ctx, m.client), tickCmd(m.pollTick))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchStateCmd(m.ctx, m.client), tickCmd(m.pollTick))

	case stateMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.state = msg.state
		m.lastUpdated = time.Now()
		m.clampSelection()
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.notice = "refresh failed: " + msg.err.Error()
		} else {
			m.notice = msg.message
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			p, _ := prefs.Load(m.prefsPath)
			p.Theme = m.theme.Name
			_ = prefs.Save(m.prefsPath, p)
		}
	case key.Matches(msg, m.keys.Refresh):
		m.notice = "refreshing…"
		return m, refreshCmd(m.ctx, m.client)
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.devices())-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		if n := len(m.devices()); n > 0 {
			m.selected = n - 1
		}
	}
	return m, nil
}

func (m Model) devices() []state.Device {
	if m.state == nil {
		return nil
	}
	return m.state.Devices
}

func (m *Model) clampSelection() {
	n := len(m.devices())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderDevices())
	b.WriteString("\n")
	if dev, ok := m.selectedDevice(); ok {
		b.WriteString(m.renderDetail(dev))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.theme.Styles().MutedText.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) selectedDevice() (state.Device, bool) {
	devices := m.devices()
	if m.selected < 0 || m.selected >= len(devices) {
		return state.Device{}, false
	}
	return devices[m.selected], true
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	parts := []string{styles.Logo.Render("hyprconnect")}

	switch {
	case m.err != nil:
		parts = append(parts,
			styles.DangerText.Render(classifyError(m.err)),
			styles.WarningText.Render("Retrying..."))
	case m.state == nil:
		parts = append(parts, styles.MutedText.Render("Connecting..."))
	default:
		reachable := 0
		for _, d := range m.state.Devices {
			if d.Reachable {
				reachable++
			}
		}
		parts = append(parts,
			styles.Text.Render(fmt.Sprintf("%d/%d connected", reachable, len(m.state.Devices))),
			styles.MutedText.Render(fmt.Sprintf("gen %d", m.state.Generation)))
		if m.state.Backend != nil && !m.state.Backend.Online {
			parts = append(parts, styles.DangerText.Render("backend offline"))
		}
		if !m.state.UpdatedAt.IsZero() {
			parts = append(parts, styles.MutedText.Render("updated "+humanizeDuration(time.Since(m.state.UpdatedAt))+" ago"))
		}
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderDevices() string {
	styles := m.theme.Styles()
	devices := m.devices()
	if len(devices) == 0 {
		return styles.FaintText.Render("  No devices known to KDE Connect")
	}

	nameWidth := 24
	if m.width > 0 && m.width < 80 {
		nameWidth = 14
	}
	var b strings.Builder
	for i, d := range devices {
		st := DeviceState(d)
		line := fmt.Sprintf("%-*s %s  %s  %s",
			nameWidth, truncateMiddle(d.Name, nameWidth),
			styles.StatusStyle(st).Render(st),
			styles.StatusStyle(m.thresholds.class(d.BatteryPercent)).Render(BatteryText(d)),
			SignalText(d))
		if d.Mounted {
			line += "  " + styles.StatusStyle(stateMounted).Render(stateMounted)
		}
		if i == m.selected {
			line = styles.Selected.Render("› " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDetail(d state.Device) string {
	styles := m.theme.Styles()
	rows := []string{
		styles.AccentText.Render(d.Name) + styles.MutedText.Render("  "+d.ID),
		"Battery  " + BatteryText(d),
		"Signal   " + SignalText(d),
		"Paired   " + yesNo(d.Paired),
		"Mount    " + mountText(d),
		"Seen     " + humanizeDuration(time.Since(d.LastUpdated)) + " ago",
	}
	box := styles.Box
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	full := m.help
	full.ShowAll = true
	return styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.Logo.Render("hyprconnect watch"),
		"",
		full.View(m.keys),
		"",
		styles.FaintText.Render("press any key to close"),
	))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func mountText(d state.Device) string {
	if !d.Mounted {
		return "not mounted"
	}
	return d.Mountpoint
}

// classifyError shortens transport errors for the header.
func classifyError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connect to hyprconnectd"):
		return "DAEMON NOT RUNNING"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"):
		return "DAEMON TIMEOUT"
	}
	return "ERROR: " + truncateMiddle(msg, 60)
}

// Messages

type tickMsg time.Time

type stateMsg struct {
	state *ipc.State
	err   error
}

type actionMsg struct {
	message string
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStateCmd(ctx context.Context, client Requester) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return stateMsg{err: errors.New("no client")}
		}
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		resp, err := client.Do(ctx, ipc.Request{Command: ipc.CmdStatus})
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			return stateMsg{err: err}
		}
		return stateMsg{state: resp.State}
	}
}

func refreshCmd(ctx context.Context, client Requester) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return actionMsg{err: errors.New("no client")}
		}
		resp, err := client.Do(ctx, ipc.Request{Command: action.CmdRefresh})
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			return actionMsg{err: err}
		}
		msg := "refreshed"
		if resp.Result != nil && resp.Result.Message != "" {
			msg = resp.Result.Message
		}
		return actionMsg{message: msg}
	}
}

// Run starts the watch view and blocks until the user quits.
func Run(opts Options) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context.Err() != nil {
		return nil
	}
	return err
}
