// Command nhrpmon is a read-only terminal viewer for a running nhrpd's
// peer table: it polls nhrpd's Unix domain control socket on a fixed
// cadence and renders bindings and operation counters, the completion
// of the teacher's own declared-but-absent peer monitor TUI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type statusView struct {
	Bindings []struct {
		ProtoAddr        string `json:"proto_addr"`
		NBMAAddr         string `json:"nbma_addr"`
		RemainingSeconds int64  `json:"remaining_seconds"`
	} `json:"bindings"`
	Registrations uint64 `json:"registrations"`
	Purges        uint64 `json:"purges"`
	Resolutions   uint64 `json:"resolutions"`
}

func fetchStatus(sockPath string) (*statusView, error) {
	conn, err := net.DialTimeout("unix", sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial control socket %q: %w", sockPath, err)
	}
	defer conn.Close()

	var v statusView
	if err := json.NewDecoder(conn).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &v, nil
}

type tickMsg time.Time

type statusMsg struct {
	view *statusView
	err  error
}

type model struct {
	sockPath string
	refresh  time.Duration
	table    table.Model
	lastErr  error
	updated  time.Time

	registrations uint64
	purges        uint64
	resolutions   uint64
}

func newModel(sockPath string, refresh time.Duration) model {
	columns := []table.Column{
		{Title: "Protocol Address", Width: 20},
		{Title: "NBMA Address", Width: 20},
		{Title: "Holding", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(15),
	)
	style := table.DefaultStyles()
	style.Header = style.Header.Bold(true).BorderBottom(true)
	style.Selected = lipgloss.NewStyle()
	t.SetStyles(style)

	return model{sockPath: sockPath, refresh: refresh, table: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(pollCmd(m.sockPath), tickCmd(m.refresh))
}

func pollCmd(sockPath string) tea.Cmd {
	return func() tea.Msg {
		v, err := fetchStatus(sockPath)
		return statusMsg{view: v, err: err}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(pollCmd(m.sockPath), tickCmd(m.refresh))
	case statusMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.updated = time.Now()
			rows := make([]table.Row, 0, len(msg.view.Bindings))
			for _, b := range msg.view.Bindings {
				holding := "forever"
				if b.RemainingSeconds >= 0 {
					holding = fmt.Sprintf("%ds", b.RemainingSeconds)
				}
				rows = append(rows, table.Row{b.ProtoAddr, b.NBMAAddr, holding})
			}
			m.table.SetRows(rows)
			m.registrations, m.purges, m.resolutions = msg.view.Registrations, msg.view.Purges, msg.view.Resolutions
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	footStyle  = lipgloss.NewStyle().Faint(true)
)

func (m model) View() string {
	var b string
	b += titleStyle.Render("nhrpd peer table") + "\n\n"
	b += m.table.View() + "\n\n"
	b += fmt.Sprintf("registrations=%d purges=%d resolutions=%d\n", m.registrations, m.purges, m.resolutions)
	if m.lastErr != nil {
		b += errStyle.Render(fmt.Sprintf("last poll error: %v", m.lastErr)) + "\n"
	} else if !m.updated.IsZero() {
		b += footStyle.Render("updated "+m.updated.Format("15:04:05")) + "\n"
	}
	b += footStyle.Render("press q to quit") + "\n"
	return b
}

func main() {
	var (
		sockPath = flag.String("socket", "/run/nhrpd/control.sock", "path to nhrpd's monitor control socket")
		refresh  = flag.Duration("refresh", 2*time.Second, "poll interval")
	)
	flag.Parse()

	p := tea.NewProgram(newModel(*sockPath, *refresh), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "nhrpmon: %v\n", err)
		os.Exit(1)
	}
}
