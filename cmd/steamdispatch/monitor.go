package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/steam-dispatch/bridge"
	"github.com/wippyai/steam-dispatch/config"
	"github.com/wippyai/steam-dispatch/dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/native/fake"
	"github.com/wippyai/steam-dispatch/schema"
)

const (
	refreshEvery = 250 * time.Millisecond
	eventBacklog = 256
	logLines     = 12
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type refreshMsg time.Time

type eventMsg dispatch.Event

type ticketMsg struct {
	err    error
	ticket string
}

type monitorModel struct {
	ctx     context.Context
	err     error
	bridge  *bridge.Bridge
	events  <-chan dispatch.Event
	backend string
	ticket  string
	log     []string
	spinner spinner.Model
	stats   table.Model
	waiting bool
}

func newMonitorModel(ctx context.Context, b *bridge.Bridge, events <-chan dispatch.Event, backend string) *monitorModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(eventStyle))
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Counter", Width: 16},
			{Title: "Value", Width: 12},
		}),
		table.WithHeight(13),
	)
	m := &monitorModel{
		ctx:     ctx,
		bridge:  b,
		events:  events,
		backend: backend,
		spinner: s,
		stats:   t,
	}
	m.stats.SetRows(statsRows(b.Stats()))
	return m
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh(), m.waitEvent())
}

func refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *monitorModel) waitEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func (m *monitorModel) requestTicket() tea.Msg {
	ctx, cancel := context.WithTimeout(m.ctx, ticketTimeout)
	defer cancel()
	t, err := m.bridge.AuthSessionTicket(ctx)
	return ticketMsg{ticket: t, err: err}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "t":
			if !m.waiting {
				m.waiting = true
				m.err = nil
				return m, m.requestTicket
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		m.stats.SetRows(statsRows(m.bridge.Stats()))
		return m, refresh()

	case eventMsg:
		m.push(dispatch.Event(msg))
		return m, m.waitEvent()

	case ticketMsg:
		m.waiting = false
		m.ticket = msg.ticket
		m.err = msg.err
	}

	return m, nil
}

func (m *monitorModel) push(e dispatch.Event) {
	m.log = append(m.log, formatEvent(e))
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m *monitorModel) View() string {
	var b strings.Builder

	s := m.bridge.Stats()
	b.WriteString(titleStyle.Render("Steam Dispatch"))
	b.WriteString(" ")
	b.WriteString(m.backend)
	b.WriteString(" ")
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(s.State.String())
	b.WriteString("\n\n")

	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	b.WriteString("Recent events:\n")
	if len(m.log) == 0 {
		b.WriteString(helpStyle.Render("  none yet"))
		b.WriteString("\n")
	}
	for _, line := range m.log {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.waiting:
		b.WriteString("Requesting ticket...\n\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	case m.ticket != "":
		b.WriteString("Ticket: ")
		b.WriteString(resultStyle.Render(m.ticket))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("t auth ticket • q quit"))
	return b.String()
}

func statsRows(s bridge.Stats) []table.Row {
	itoa := strconv.Itoa
	return []table.Row{
		{"ticks", strconv.FormatUint(s.Ticks, 10)},
		{"state", s.State.String()},
		{"drained", itoa(s.Totals.Drained)},
		{"delivered", itoa(s.Totals.Delivered)},
		{"orphaned", itoa(s.Totals.Orphaned)},
		{"dropped", itoa(s.Totals.Dropped)},
		{"failed", itoa(s.Totals.Failed)},
		{"panicked", itoa(s.Totals.Panicked)},
		{"pending calls", itoa(s.Pending)},
		{"handlers", itoa(s.Handlers)},
		{"reads", itoa(s.ReadsInFlight)},
		{"writes", itoa(s.WritesInFlight)},
	}
}

func formatEvent(e dispatch.Event) string {
	line := fmt.Sprintf("#%d.%d %-16s callback %d", e.Tick, e.Seq, e.Type, e.Callback)
	if e.Handle != 0 {
		line += fmt.Sprintf(" handle %#x", uint64(e.Handle))
	}
	if e.Err != nil {
		return errorStyle.Render(line + ": " + e.Err.Error())
	}
	return eventStyle.Render(line)
}

// monitored reports whether the event goes to the event log.
func monitored(t dispatch.EventType) bool {
	switch t {
	case dispatch.EventDelivered, dispatch.EventDecodeFailed, dispatch.EventFetchDropped,
		dispatch.EventOrphaned, dispatch.EventHandlerPanicked:
		return true
	}
	return false
}

func newMonitorCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Watch the dispatch loop in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.InvalidInput(errors.PhaseConfig, "monitor needs a terminal; use run instead")
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMonitor(ctx, cfg)
		},
	}
}

func runMonitor(ctx context.Context, cfg *config.Config) error {
	// The UI owns the terminal, so nothing is logged while it runs.
	b, native, stop, err := startBridge(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer stop()

	events := make(chan dispatch.Event, eventBacklog)
	unsubscribe := b.Loop().Subscribe(dispatch.ObserverFunc(func(e dispatch.Event) {
		if !monitored(e.Type) {
			return
		}
		select {
		case events <- e:
		default:
		}
	}))
	defer unsubscribe()

	for _, id := range broadcastIDs(b.Decoder().Table()) {
		b.RegisterHandler(id, func(schema.Record) {})
	}

	uiCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(uiCtx)

	p := tea.NewProgram(newMonitorModel(gctx, b, events, cfg.Backend), tea.WithAltScreen(), tea.WithContext(gctx))
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if stderrors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	if sdk, ok := native.(*fake.SDK); ok {
		g.Go(func() error { return simulate(gctx, sdk, 500*time.Millisecond) })
	}
	if cfg.ManualPump {
		g.Go(func() error { return pump(gctx, b, b.Loop().Interval()) })
	}
	return g.Wait()
}
