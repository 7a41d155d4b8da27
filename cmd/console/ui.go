package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/immersion-engine/internal/runtime"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/session"
	"github.com/muesli/reflow/wordwrap"
)

const (
	PlaceHolderText = "Type a command (n, p, goto <name>, /help)..."
	maxLogLines     = 200
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	sseClient    *http.Client
	snapshot     *runtime.Snapshot
	sceneView    viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool
	status       string
	log          []string

	// Frame loop state
	ticking      bool
	pendingFrame bool

	// Live event stream
	events    chan SSEEvent
	cancelSSE context.CancelFunc

	// Immersion selection state
	showImmersionModal bool
	immersions         []string
	immersionMap       map[string]string
	selectedImmersion  int
	loadingImmersions  bool

	// Quit confirmation state
	showQuitModal bool
}

type immersionsLoadedMsg struct {
	immersions   []string
	immersionMap map[string]string
	err          error
}

type sessionCreatedMsg struct {
	result *runtime.Result
	err    error
}

type commandResultMsg struct {
	cmd    runtime.Command
	result *runtime.Result
	err    error
}

type frameTickMsg struct{}

type sseEventMsg struct {
	event SSEEvent
	ok    bool
}

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	waypointTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")). // purple
				Bold(true)

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sceneVp := viewport.New(50, 20)
	sceneVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:             cfg,
		client:             client,
		sseClient:          &http.Client{}, // no timeout, the stream stays open
		textarea:           ta,
		sceneView:          sceneVp,
		metaViewport:       metaVp,
		showImmersionModal: true,
		loadingImmersions:  true,
	}
}

func (m *ConsoleUI) layout() {
	sceneWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - sceneWidth - 6

	m.sceneView.Width = sceneWidth - 2
	m.sceneView.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(sceneWidth - 4)
}

// writeScene rebuilds the scene panel for the current viewport width.
func (m *ConsoleUI) writeScene() {
	width := m.sceneView.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("IMMERSION ENGINE") + "\n\n")
	if m.snapshot != nil {
		content.WriteString(describeWaypoint(m.snapshot.Current, width))
	}
	content.WriteString("\n" + separatorStyle.Render(strings.Repeat("─", max(width-6, 1))) + "\n\n")

	for _, line := range m.log {
		content.WriteString(wordwrap.String(line, width) + "\n")
	}
	if m.status != "" {
		content.WriteString("\n" + loadingStyle.Render(m.status) + "\n")
	}

	m.sceneView.SetContent(content.String())
	m.sceneView.GotoBottom()
}

func (m *ConsoleUI) appendLog(lines ...string) {
	m.log = append(m.log, lines...)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// applyResult logs the messages of a command result and keeps its snapshot.
func (m *ConsoleUI) applyResult(res *runtime.Result) {
	for _, msg := range res.Messages {
		if line, ok := describeMessage(msg); ok {
			style := logStyle
			if msg.Type == runtime.MessageError {
				style = errorStyle
			}
			m.appendLog(style.Render(line))
		}
	}
	snap := res.Snapshot
	m.snapshot = &snap
	m.metaViewport.SetContent(writeMetadata(snap))
	m.writeScene()
}

// moving reports whether the session needs frames to make progress.
func (m ConsoleUI) moving() bool {
	if m.snapshot == nil {
		return false
	}
	return m.snapshot.Cursor.State != navigation.StateIdle
}

// scheduleFrames starts the frame loop unless it is already running.
func (m *ConsoleUI) scheduleFrames() tea.Cmd {
	if m.ticking || (!m.moving() && !m.pendingFrame) {
		return nil
	}
	m.ticking = true
	return tea.Tick(m.config.FrameInterval, func(time.Time) tea.Msg {
		return frameTickMsg{}
	})
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showImmersionModal {
		return m.loadImmersions()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle immersion modal first
	if m.showImmersionModal {
		return m.updateImmersionModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.sceneView, vpCmd = m.sceneView.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeScene()
		if m.snapshot != nil {
			m.metaViewport.SetContent(writeMetadata(*m.snapshot))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlN:
			return m.run(runtime.Command{Type: runtime.CommandNext})
		case tea.KeyCtrlP:
			return m.run(runtime.Command{Type: runtime.CommandPrevious})
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m.handleInput(input)
		}

	case commandResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.appendLog(errorStyle.Render("Error: " + msg.err.Error()))
			m.writeScene()
			next := m.scheduleFrames()
			return m, next
		}
		m.err = nil
		m.applyResult(msg.result)
		next := m.scheduleFrames()
		return m, next

	case frameTickMsg:
		m.ticking = false
		if m.loading {
			// A command is in flight; try again on the next tick.
			next := m.scheduleFrames()
			return m, next
		}
		if !m.moving() && !m.pendingFrame {
			return m, nil
		}
		frames := m.config.FramesPerTick
		if m.pendingFrame {
			frames = 1
			m.pendingFrame = false
		}
		m.loading = true
		return m, m.sendCommand(runtime.Command{Type: runtime.CommandFrame, Frames: frames})

	case sseEventMsg:
		if !msg.ok {
			return m, nil
		}
		switch msg.event.Type {
		case "progress.all_unlocked":
			m.appendLog(titleStyle.Render(fmt.Sprintf("★ Mission complete: all %v found!", msg.event.Data["total"])))
			m.writeScene()
		case "session.ended":
			m.appendLog(errorStyle.Render("Session ended by the server"))
			m.writeScene()
		}
		return m, m.waitForEvent()
	}

	// Update components for non-mouse events
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.sceneView, vpCmd = m.sceneView.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	current := ""
	if m.snapshot != nil {
		current = m.snapshot.Cursor.Waypoint
	}
	m.status = ""
	m.appendLog(inputStyle.Render(":: " + input))

	cmd, action, err := parseInput(input, current)
	if err != nil {
		m.appendLog(errorStyle.Render(err.Error()))
		m.writeScene()
		return m, nil
	}

	switch action {
	case actionHelp:
		m.appendLog(strings.Split(strings.TrimRight(helpText, "\n"), "\n")...)
		m.writeScene()
		return m, nil
	case actionQuit:
		m.showQuitModal = true
		return m, nil
	case actionCopy:
		m.copyCoordinates()
		m.writeScene()
		return m, nil
	}
	return m.run(*cmd)
}

// copyCoordinates puts the camera position on the clipboard, for authors
// placing waypoints in dev mode.
func (m *ConsoleUI) copyCoordinates() {
	if m.snapshot == nil || m.snapshot.Config.Mode != session.ModeDev {
		m.status = "Copying coordinates needs mode=dev"
		return
	}
	pos := m.snapshot.Cursor.Camera.Position
	text := fmt.Sprintf(`{"x": %.2f, "y": %.2f, "z": %.2f}`, pos.X, pos.Y, pos.Z)
	if err := clipboard.WriteAll(text); err != nil {
		m.status = "Clipboard unavailable: " + err.Error()
		return
	}
	m.status = "Copied " + text
}

func (m ConsoleUI) run(cmd runtime.Command) (tea.Model, tea.Cmd) {
	if m.snapshot == nil {
		return m, nil
	}
	if m.loading {
		m.status = "Busy, try again"
		m.writeScene()
		return m, nil
	}
	m.loading = true
	m.writeScene()
	return m, m.sendCommand(cmd)
}

func (m ConsoleUI) sendCommand(cmd runtime.Command) tea.Cmd {
	id := m.snapshot.SessionID
	return func() tea.Msg {
		res, err := sendCommand(m.client, m.config.APIBaseURL, id, cmd)
		return commandResultMsg{cmd: cmd, result: res, err: err}
	}
}

func (m ConsoleUI) loadImmersions() tea.Cmd {
	return func() tea.Msg {
		orderedNames, immersionMap, err := listImmersions(m.client, m.config.APIBaseURL)
		return immersionsLoadedMsg{orderedNames, immersionMap, err}
	}
}

func (m ConsoleUI) createSessionFromImmersion(immersionFile string) tea.Cmd {
	return func() tea.Msg {
		res, err := createSession(m.client, m.config.APIBaseURL, immersionFile, m.config.Session)
		return sessionCreatedMsg{res, err}
	}
}

// startEvents subscribes to the session's published events.
func (m *ConsoleUI) startEvents() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelSSE = cancel
	m.events = make(chan SSEEvent, 16)
	id := m.snapshot.SessionID
	events := m.events
	go func() {
		defer close(events)
		_ = listenToSSE(ctx, m.sseClient, m.config.APIBaseURL, id, events)
	}()
	return m.waitForEvent()
}

func (m ConsoleUI) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		return sseEventMsg{event: e, ok: ok}
	}
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.cancelSSE != nil {
		m.cancelSSE()
	}
	return m, tea.Quit
}

// endAndQuit deletes the session on the server before leaving.
func (m ConsoleUI) endAndQuit() tea.Cmd {
	id := m.snapshot.SessionID
	if m.cancelSSE != nil {
		m.cancelSSE()
	}
	return func() tea.Msg {
		_ = endSession(m.client, m.config.APIBaseURL, id)
		return tea.Quit()
	}
}

func (m ConsoleUI) updateImmersionModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case immersionsLoadedMsg:
		m.loadingImmersions = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.immersions = msg.immersions
			m.immersionMap = msg.immersionMap
		}

	case sessionCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.showImmersionModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		m.ready = true
		m.applyResult(msg.result)
		m.textarea.Focus()
		// The first frame lets the viewer arrive where the camera was placed.
		m.pendingFrame = true
		listen := m.startEvents()
		frames := m.scheduleFrames()
		return m, tea.Batch(textarea.Blink, listen, frames)

	case tea.KeyMsg:
		if m.loadingImmersions || m.loading {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m.quit()
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			m.showImmersionModal = false
			return m, nil
		case tea.KeyUp:
			if m.selectedImmersion > 0 {
				m.selectedImmersion--
			}
		case tea.KeyDown:
			if m.selectedImmersion < len(m.immersions)-1 {
				m.selectedImmersion++
			}
		case tea.KeyEnter:
			if m.err == nil && len(m.immersions) > 0 {
				name := m.immersions[m.selectedImmersion]
				m.loading = true
				return m, m.createSessionFromImmersion(m.immersionMap[name])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "e", "E":
				if m.snapshot == nil {
					return m.quit()
				}
				return m, m.endAndQuit()
			case "n", "N":
				m.showQuitModal = false
				if m.snapshot == nil {
					m.showImmersionModal = true
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Immersion?"))
	content.WriteString("\n\n")
	content.WriteString("Your session is saved and can be resumed from the API.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, E to end the session and quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderImmersionModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loadingImmersions {
		content.WriteString(modalTitleStyle.Render("Loading Immersions..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available immersions..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Starting Session..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Placing the camera..."))
	} else if len(m.immersions) == 0 {
		content.WriteString(modalTitleStyle.Render("No Immersions"))
		content.WriteString("\n\n")
		content.WriteString("Add descriptors under DATA_DIR/immersions and restart.")
	} else {
		content.WriteString(modalTitleStyle.Render("Select an Immersion"))
		content.WriteString("\n\n")

		for i, name := range m.immersions {
			if i == m.selectedImmersion {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showImmersionModal {
		return m.renderImmersionModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	sceneWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - sceneWidth - 6

	scenePanel := scenePanelStyle.Width(sceneWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.sceneView.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(sceneWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, scenePanel, metaPanel)
}
