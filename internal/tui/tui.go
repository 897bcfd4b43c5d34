package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/engine"
	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/narrator"
	"github.com/tatianab/keepsake/internal/savestore"
	"github.com/tatianab/keepsake/internal/state"
)

const refreshEvery = 250 * time.Millisecond

type sessionState int

const (
	statePlaying sessionState = iota
	stateEnded
	stateError
)

// Options are the collaborators the program uses besides the bridge.
type Options struct {
	Registry     *catalog.Registry
	Saves        savestore.Store
	Narrator     narrator.Narrator
	StartContext string
}

type model struct {
	state     sessionState
	bridge    engine.Bridge
	opts      Options
	fallback  *narrator.Static
	snap      models.Snapshot
	context   string
	textInput textinput.Model
	viewport  viewport.Model
	bar       progress.Model
	err       error
	gameLog   string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

const helpText = "go <home|shop|gallery|menu>, pickup <item>, return <item>, surrender <item>, giveup, /save, /load, /saves, /restart, /quit"

func newModel(b engine.Bridge, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "What do you do?"
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	return model{
		state:     statePlaying,
		bridge:    b,
		opts:      opts,
		fallback:  narrator.NewStatic(opts.Registry),
		textInput: ti,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		gameLog:   gameStyle.Bold(true).Render("Keepsake") + "\n\n",
	}
}

// Messages forwarded from the engine observers.
type (
	vitalityMsg struct{ old, new int }
	custodyMsg  struct {
		id       string
		old, new models.CustodyState
	}
	endedMsg struct{ reason models.EndReason }
	resetMsg struct{}
)

// Messages produced by commands.
type (
	snapshotMsg struct {
		snap models.Snapshot
		err  error
	}
	resultMsg struct {
		text string
		err  error
	}
	contextMsg struct {
		name string
		err  error
	}
	epilogueMsg struct{ text string }
	refreshMsg  struct{}
)

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.setContext(m.opts.StartContext), m.scheduleRefresh())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" || m.state == stateError {
				return m, nil
			}
			m.textInput.Reset()
			m.appendLog(userStyle.Width(m.logWidth()).Render("> " + input))
			return m, m.run(input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(m.logWidth(), msg.Height-6)
		}
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		m.bar.Width = max(int(float64(msg.Width)*0.23)-4, 10)
		m.viewport.SetContent(m.gameLog)

	case vitalityMsg:
		if msg.new < msg.old {
			m.appendLog(gameStyle.Render(fmt.Sprintf("Time slips away. Vitality %d.", msg.new)))
		}
		return m, m.pullSnapshot()

	case custodyMsg:
		m.appendLog(gameStyle.Render(custodyLine(m.name(msg.id), msg.new)))
		return m, m.pullSnapshot()

	case endedMsg:
		m.state = stateEnded
		return m, tea.Batch(m.pullSnapshot(), m.tellEpilogue(), m.save(defaultSaveName))

	case resetMsg:
		m.state = statePlaying
		m.appendLog(gameStyle.Bold(true).Render("A new day begins."))
		return m, tea.Batch(m.pullSnapshot(), m.setContext(m.context))

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.snap = msg.snap
		if m.snap.Ended() && m.state == statePlaying {
			m.state = stateEnded
		}

	case contextMsg:
		if msg.err != nil {
			m.appendLog(errorStyle.Render(msg.err.Error()))
			return m, nil
		}
		m.context = msg.name
		m.appendLog(gameStyle.Render("You are in " + msg.name + "."))
		return m, m.pullSnapshot()

	case resultMsg:
		if msg.err != nil {
			m.appendLog(errorStyle.Render(msg.err.Error()))
		} else if msg.text != "" {
			m.appendLog(gameStyle.Width(m.logWidth()).Render(msg.text))
		}
		return m, m.pullSnapshot()

	case epilogueMsg:
		m.appendLog(gameStyle.Width(m.logWidth()).Render(msg.text))
		m.appendLog(helpStyle.Render("Type /restart to begin again or /quit to leave."))

	case refreshMsg:
		return m, tea.Batch(m.pullSnapshot(), m.scheduleRefresh())
	}

	if m.state != stateError {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) appendLog(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.75)
}

func (m model) name(id string) string {
	if m.opts.Registry != nil {
		if it, ok := m.opts.Registry.Lookup(id); ok {
			return it.Name
		}
	}
	return id
}

func custodyLine(name string, to models.CustodyState) string {
	switch to {
	case models.Selected:
		return "You pick up the " + name + "."
	case models.Solved:
		return "You hand over the " + name + ". It is gone for good."
	default:
		return "The " + name + " is back at home."
	}
}

func (m model) View() string {
	var s string

	switch m.state {
	case statePlaying, stateEnded:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		help := helpStyle.Render(helpText)
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View(),
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	snap := m.snap
	var b strings.Builder

	b.WriteString(titleStyle.Render("LOCATION") + "\n")
	b.WriteString(orNone(m.context) + "\n\n")

	b.WriteString(titleStyle.Render("VITALITY") + "\n")
	b.WriteString(m.bar.ViewAs(snap.Vitality.Ratio()) + "\n")
	fmt.Fprintf(&b, "%d / %d  (%s)\n\n", snap.Vitality.Current, snap.Vitality.Max, snap.Stage)

	b.WriteString(titleStyle.Render("KEEPSAKES") + "\n")
	for _, id := range m.itemIDs() {
		c, ok := snap.Custody[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", m.name(id), strings.ReplaceAll(c.String(), "_", " "))
	}
	b.WriteString("\n")

	visited, total := visitedCount(snap.Flags)
	fmt.Fprintf(&b, "Visited: %d/%d\n", visited, total)
	fmt.Fprintf(&b, "Play time: %s\n", snap.PlayTime.Round(time.Second))
	if snap.Ended() {
		b.WriteString("\n" + titleStyle.Render("THE END") + "\n" + snap.EndReason.String() + "\n")
	}

	stateWidth := int(float64(m.width) * 0.23)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(b.String())
}

// visitedCount counts the hasVisited flags that are set.
func visitedCount(flags map[string]bool) (visited, total int) {
	for name, set := range flags {
		if !strings.HasPrefix(name, state.VisitedFlag("")) {
			continue
		}
		total++
		if set {
			visited++
		}
	}
	return visited, total
}

// itemIDs lists keepsakes in catalog order when a catalog is known.
func (m model) itemIDs() []string {
	if m.opts.Registry != nil {
		return m.opts.Registry.IDs()
	}
	ids := make([]string, 0, len(m.snap.Custody))
	for id := range m.snap.Custody {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func (m model) run(input string) tea.Cmd {
	c, err := parseCommand(input)
	if err != nil {
		return func() tea.Msg { return resultMsg{err: err} }
	}
	switch c.kind {
	case cmdQuit:
		return tea.Quit
	case cmdHelp:
		return func() tea.Msg { return resultMsg{text: helpText} }
	case cmdGo:
		return m.setContext(c.arg)
	case cmdSave:
		return m.save(c.arg)
	case cmdLoad:
		return m.load(c.arg)
	case cmdList:
		return m.list()
	}
	return m.push(c.action)
}

func (m model) push(a engine.Action) tea.Cmd {
	return func() tea.Msg {
		if err := m.bridge.PushAction(context.Background(), a); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{}
	}
}

func (m model) setContext(name string) tea.Cmd {
	if name == "" {
		return nil
	}
	return func() tea.Msg {
		err := m.bridge.SetContext(context.Background(), name)
		return contextMsg{name: name, err: err}
	}
}

func (m model) pullSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.bridge.PullSnapshot(context.Background())
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m model) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m model) save(name string) tea.Cmd {
	if m.opts.Saves == nil {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		snap, err := m.bridge.PullSnapshot(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		if err := m.opts.Saves.Save(ctx, name, snap); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{text: "Saved as " + name + "."}
	}
}

func (m model) load(name string) tea.Cmd {
	if m.opts.Saves == nil {
		return func() tea.Msg { return resultMsg{err: fmt.Errorf("saving is disabled")} }
	}
	return func() tea.Msg {
		ctx := context.Background()
		snap, err := m.opts.Saves.Load(ctx, name)
		if err != nil {
			return resultMsg{err: err}
		}
		if err := m.bridge.SyncIn(ctx, snap); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{text: "Loaded " + name + "."}
	}
}

func (m model) list() tea.Cmd {
	if m.opts.Saves == nil {
		return func() tea.Msg { return resultMsg{err: fmt.Errorf("saving is disabled")} }
	}
	return func() tea.Msg {
		names, err := m.opts.Saves.List(context.Background())
		if err != nil {
			return resultMsg{err: err}
		}
		if len(names) == 0 {
			return resultMsg{text: "No saves yet."}
		}
		return resultMsg{text: "Saves: " + strings.Join(names, ", ")}
	}
}

func (m model) tellEpilogue() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		snap, err := m.bridge.PullSnapshot(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		return epilogueMsg{text: narrator.Tell(ctx, m.opts.Narrator, m.fallback, snap)}
	}
}

// Events is the observer surface the program subscribes to.
type Events interface {
	OnVitalityChanged(fn state.VitalityObserver)
	OnCustodyChanged(fn state.CustodyObserver)
	OnReset(fn func())
	OnSessionEnded(fn func(models.EndReason))
}

// NewProgram builds the terminal program and forwards ev notifications to it.
// Subscribe before the engine loop starts.
func NewProgram(b engine.Bridge, ev Events, opts Options) *tea.Program {
	p := tea.NewProgram(newModel(b, opts), tea.WithAltScreen())
	ev.OnVitalityChanged(func(old, new int) { p.Send(vitalityMsg{old, new}) })
	ev.OnCustodyChanged(func(id string, old, new models.CustodyState) { p.Send(custodyMsg{id, old, new}) })
	ev.OnReset(func() { p.Send(resetMsg{}) })
	ev.OnSessionEnded(func(r models.EndReason) { p.Send(endedMsg{r}) })
	return p
}
