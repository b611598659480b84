// Package tui provides a Bubble Tea terminal user interface for tiledl.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/handiism/tiledl/internal/archive"
	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/config"
	"github.com/handiism/tiledl/internal/download"
	"github.com/handiism/tiledl/internal/model"
	"github.com/handiism/tiledl/internal/region"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500")).
			Bold(true)
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StatePlanning
	StateDownloading
	StateArchiving
	StateComplete
	StateError
)

// errCancelled is shown when the user aborts a download.
var errCancelled = errors.New("cancelled by user")

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

const (
	fieldRegion = iota
	fieldZoom
	fieldCount
)

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	styles   *config.Styles
	store    *cache.Store
	logger   zerolog.Logger
	logs     []LogEntry
	err      error

	// Style picker
	styleNames []string
	styleIndex int

	// Options
	world        bool
	reduceColors bool
	verbose      bool

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Running job
	job     *download.Job
	events  <-chan download.Event
	result  <-chan error
	stats   download.Progress
	zipPath string

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, styles *config.Styles, logger zerolog.Logger) Model {
	regionInput := textinput.New()
	regionInput.Placeholder = "area.geojson"
	regionInput.Prompt = "Region file: "
	regionInput.CharLimit = 500
	regionInput.Width = 50
	regionInput.Focus()

	zoomInput := textinput.New()
	zoomInput.Placeholder = "0-12"
	zoomInput.Prompt = "Zoom range:  "
	zoomInput.CharLimit = 5
	zoomInput.Width = 10

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:      StateInput,
		inputs:     []textinput.Model{regionInput, zoomInput},
		spinner:    sp,
		progress:   prog,
		settings:   settings,
		styles:     styles,
		store:      cache.NewStore(settings.CacheDir),
		logger:     logger,
		logs:       make([]LogEntry, 0),
		styleNames: styles.Names(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// EventMsg carries one download event.
	EventMsg struct {
		Event download.Event
	}

	// DoneMsg is sent when the job returns.
	DoneMsg struct {
		Err error
	}

	// ArchiveDoneMsg is sent when the zip archive is written.
	ArchiveDoneMsg struct {
		Path string
		Err  error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StatePlanning || m.state == StateDownloading {
				m.cancel()
			}
			return m, nil

		case "enter":
			if m.state == StateInput {
				return m.start()
			}

		case "tab", "shift+tab":
			if m.state == StateInput {
				m.inputs[m.focus].Blur()
				if msg.String() == "tab" {
					m.focus = (m.focus + 1) % fieldCount
				} else {
					m.focus = (m.focus + fieldCount - 1) % fieldCount
				}
				cmds = append(cmds, m.inputs[m.focus].Focus())
				return m, tea.Batch(cmds...)
			}

		case "up", "down":
			if m.state == StateInput && len(m.styleNames) > 0 {
				n := len(m.styleNames)
				if msg.String() == "up" {
					m.styleIndex = (m.styleIndex + n - 1) % n
				} else {
					m.styleIndex = (m.styleIndex + 1) % n
				}
				return m, nil
			}

		case "ctrl+w":
			if m.state == StateInput {
				m.world = !m.world
				return m, nil
			}

		case "ctrl+e":
			if m.state == StateInput {
				m.reduceColors = !m.reduceColors
				return m, nil
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for new download
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.job = nil
				m.events = nil
				m.result = nil
				m.stats = download.Progress{}
				m.zipPath = ""
				m.ctx, m.cancel = context.WithCancel(context.Background())
				return m, m.inputs[m.focus].Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case EventMsg:
		m = m.handleEvent(msg.Event)
		cmds = append(cmds, waitForEvent(m.events, m.result))
		if msg.Event.Type == download.EventStarted {
			cmds = append(cmds, tickProgress())
		}

	case DoneMsg:
		if m.job != nil {
			m.stats = m.job.Progress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateArchiving
			cmds = append(cmds, m.writeArchive(), m.spinner.Tick)
		}

	case ArchiveDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = fmt.Errorf("create archive: %w", msg.Err)
		} else {
			m.state = StateComplete
			m.zipPath = msg.Path
		}

	case TickMsg:
		// Update progress from the job
		if m.job != nil && m.state == StateDownloading {
			m.stats = m.job.Progress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text inputs
	if m.state == StateInput {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// start validates the form and launches the job.
func (m Model) start() (tea.Model, tea.Cmd) {
	job, err := m.buildJob()
	if err != nil {
		m.state = StateError
		m.err = err
		return m, nil
	}

	m.job = job
	m.events, m.result = download.Stream(m.ctx, job)
	m.state = StatePlanning
	return m, tea.Batch(waitForEvent(m.events, m.result), m.spinner.Tick)
}

func (m Model) buildJob() (*download.Job, error) {
	if len(m.styleNames) == 0 {
		return nil, errors.New("no map styles configured")
	}
	style, err := m.styles.Lookup(m.styleNames[m.styleIndex])
	if err != nil {
		return nil, err
	}

	req := model.Request{
		Region:       region.Region{World: m.world},
		Style:        style.Name,
		ReduceColors: m.reduceColors,
	}
	if !m.world {
		req.MinZoom, req.MaxZoom, err = parseZoomRange(m.inputs[fieldZoom].Value())
		if err != nil {
			return nil, err
		}
		req.Region.Polygons, err = region.LoadPolygons(strings.TrimSpace(m.inputs[fieldRegion].Value()))
		if err != nil {
			return nil, err
		}
	}

	return download.NewJob(req, style, m.store, m.settings.ToOptions(m.logger)), nil
}

func (m Model) handleEvent(e download.Event) Model {
	switch e.Type {
	case download.EventStarted:
		m.state = StateDownloading
		m.stats.Total = e.Total
	case download.EventTileDownloaded, download.EventTileSkipped:
		if !m.verbose {
			return m
		}
	}

	var msg string
	switch e.Type {
	case download.EventStarted:
		msg = fmt.Sprintf("Downloading %d tiles", e.Total)
	case download.EventTileDownloaded:
		msg = fmt.Sprintf("Downloaded %s", e.Tile)
	case download.EventTileSkipped:
		msg = fmt.Sprintf("Cached %s", e.Tile)
	case download.EventTileFailed:
		msg = fmt.Sprintf("Failed %s", e.Tile)
	case download.EventCompleted:
		msg = "All tiles processed"
	case download.EventCancelled:
		msg = "Download cancelled"
	case download.EventError:
		msg = e.Message
	}

	m.logs = append(m.logs, LogEntry{Message: msg, Level: e.Level()})
	// Keep only last 10 logs
	if len(m.logs) > 10 {
		m.logs = m.logs[len(m.logs)-10:]
	}
	return m
}

func (m Model) percent() float64 {
	if m.stats.Total == 0 {
		return 0
	}
	return float64(m.stats.Done()+m.stats.Failed) / float64(m.stats.Total)
}

// waitForEvent turns the next stream event into a message.
func waitForEvent(events <-chan download.Event, result <-chan error) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return DoneMsg{Err: <-result}
		}
		return EventMsg{Event: e}
	}
}

// tickProgress returns a command to tick progress updates.
func tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) writeArchive() tea.Cmd {
	ctx := m.ctx
	style := m.job.Style
	src := m.store.StyleDir(style.Name)
	dest := filepath.Join(m.settings.DownloadsDir, style.CacheName()+".zip")
	return func() tea.Msg {
		path, err := archive.ZipDir(ctx, src, dest)
		return ArchiveDoneMsg{Path: path, Err: err}
	}
}

// parseZoomRange accepts "z" or "min-max".
func parseZoomRange(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}
	minZ, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("zoom range %q: want \"min-max\"", s)
	}
	maxZ, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("zoom range %q: want \"min-max\"", s)
	}
	if err := region.ValidateZoom(minZ, maxZ); err != nil {
		return 0, 0, err
	}
	return minZ, maxZ, nil
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("🗺️  Map Tile Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download map tiles for offline use"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StatePlanning:
		b.WriteString(m.viewWorking("Planning tiles..."))
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateArchiving:
		b.WriteString(m.viewWorking("Creating archive..."))
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Map style:"))
	b.WriteString("\n")
	for i, name := range m.styleNames {
		if i == m.styleIndex {
			b.WriteString(selectedStyle.Render("  › " + name))
		} else {
			b.WriteString("    " + name)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.world {
		b.WriteString(infoStyle.Render("World basemap, zoom 0-7"))
		b.WriteString("\n")
	} else {
		for _, in := range m.inputs {
			b.WriteString(in.View())
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	// Options
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s World basemap (ctrl+w)\n", checkbox(m.world)))
	b.WriteString(fmt.Sprintf("  %s Convert to 8-bit PNG (ctrl+e)\n", checkbox(m.reduceColors)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+v)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Cache: %s  Archives: %s", m.settings.CacheDir, m.settings.DownloadsDir)))
	b.WriteString("\n")

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewWorking(label string) string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(label))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(successStyle.Render(m.job.Style.Name))
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Tiles: %d/%d | Downloaded: %d | Cached: %d | Failed: %d",
		m.stats.Done(),
		m.stats.Total,
		m.stats.Downloaded,
		m.stats.Cached,
		m.stats.Failed,
	)))
	b.WriteString("\n\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	box := boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Downloaded: %d\n"+
			"Cached: %d\n"+
			"Failed: %d\n"+
			"Archive: %s",
		m.stats.Downloaded,
		m.stats.Cached,
		m.stats.Failed,
		m.zipPath,
	))
	return box
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ↑/↓: style • tab: next field • ctrl+w: world • ctrl+e: 8-bit • ctrl+v: verbose • esc: quit"
	case StatePlanning, StateDownloading:
		return "esc: cancel"
	case StateArchiving:
		return "ctrl+c: quit"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, styles *config.Styles, logger zerolog.Logger) error {
	p := tea.NewProgram(NewModel(settings, styles, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
