package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/services"
	"github.com/Odrinateur/sputifixV2/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistPickView ViewState = iota
	ArtistSearchView
	ArtistPickView
	ConfirmView
	RunView
	ResultView
)

// Model represents the maker wizard state.
type Model struct {
	ctx     context.Context
	view    ViewState
	spotify services.Library
	engine  *tasks.MakerEngine
	width   int
	height  int

	playlistList list.Model
	playlists    []models.Playlist
	picked       map[string]bool

	searchInput textinput.Model
	artistList  list.Model
	chosen      []models.Artist
	chosenIDs   map[string]bool
	searching   bool

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	runResults   []models.ProcessedPlaylist
	runErr       error
	results      []models.ProcessedPlaylist

	err  error
	help help.Model
	keys keyMap
}

// NewModel creates a new wizard model with the provided dependencies.
func NewModel(ctx context.Context, spotify services.Library, engine *tasks.MakerEngine) *Model {
	return &Model{
		ctx:       ctx,
		view:      PlaylistPickView,
		spotify:   spotify,
		engine:    engine,
		picked:    map[string]bool{},
		chosenIDs: map[string]bool{},
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init initializes the wizard by fetching the user's playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.artistList.Width() == 0 {
			m.artistList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistPickView:
			return m.handlePlaylistPickKeys(msg)
		case ArtistSearchView:
			return m.handleArtistSearchKeys(msg)
		case ArtistPickView:
			return m.handleArtistPickKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.playlists = msg.playlists
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl, selected: m.picked[pl.ID]}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Target Playlists"
		m.playlistList.SetFilteringEnabled(false)
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case artistsFoundMsg:
		m.searching = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, len(msg.artists))
		for i, a := range msg.artists {
			items[i] = artistItem{artist: a, selected: m.chosenIDs[a.ID]}
		}
		m.artistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.artistList.Title = fmt.Sprintf("Artists matching '%s'", m.searchInput.Value())
		m.artistList.SetFilteringEnabled(false)
		m.artistList.SetSize(m.width-4, m.height-8)
		m.view = ArtistPickView
		return m, nil

	case runProgressMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.results = msg.results
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateActive(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView && m.view != ArtistSearchView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistPickView:
		return m.renderPlaylistPick()
	case ArtistSearchView:
		return m.renderArtistSearch()
	case ArtistPickView:
		return m.renderArtistPick()
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistPickKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			item.selected = !item.selected
			m.picked[item.playlist.ID] = item.selected
			return m, m.playlistList.SetItem(m.playlistList.Index(), item)
		}
	case "enter":
		m.searchInput = textinput.New()
		m.searchInput.Placeholder = "Artist name"
		m.searchInput.CharLimit = 64
		m.searchInput.Width = 40
		m.searchInput.Focus()
		m.err = nil
		m.view = ArtistSearchView
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleArtistSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.err = nil
		m.view = PlaylistPickView
		return m, nil
	case "enter":
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" {
			if len(m.chosen) > 0 || m.pickedCount() > 0 {
				m.err = nil
				m.view = ConfirmView
			}
			return m, nil
		}
		m.err = nil
		m.searching = true
		return m, m.searchArtists(query)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) handleArtistPickKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.view = ArtistSearchView
		return m, textinput.Blink
	case " ":
		if item, ok := m.artistList.SelectedItem().(artistItem); ok {
			item.selected = !item.selected
			m.toggleArtist(item.artist, item.selected)
			return m, m.artistList.SetItem(m.artistList.Index(), item)
		}
	case "enter":
		if len(m.chosen) > 0 || m.pickedCount() > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.artistList, cmd = m.artistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "esc":
		m.view = ArtistSearchView
		return m, textinput.Blink
	case "y":
		m.view = RunView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PlaylistPickView
		m.picked = map[string]bool{}
		m.chosen = nil
		m.chosenIDs = map[string]bool{}
		m.results = nil
		m.runResults = nil
		m.runErr = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, m.fetchPlaylists()
	}
	return m, nil
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistPickView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case ArtistSearchView:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case ArtistPickView:
		m.artistList, cmd = m.artistList.Update(msg)
	}
	return m, cmd
}

// toggleArtist keeps the chosen slice in first-picked order.
func (m *Model) toggleArtist(artist models.Artist, selected bool) {
	m.chosenIDs[artist.ID] = selected
	if selected {
		m.chosen = append(m.chosen, artist)
		return
	}
	kept := m.chosen[:0]
	for _, a := range m.chosen {
		if a.ID != artist.ID {
			kept = append(kept, a)
		}
	}
	m.chosen = kept
}

func (m *Model) pickedCount() int {
	count := 0
	for _, selected := range m.picked {
		if selected {
			count++
		}
	}
	return count
}

func (m *Model) selectedPlaylists() []models.Playlist {
	var selected []models.Playlist
	for _, pl := range m.playlists {
		if m.picked[pl.ID] {
			selected = append(selected, pl)
		}
	}
	return selected
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.spotify.GetPlaylists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) searchArtists(query string) tea.Cmd {
	return func() tea.Msg {
		artists, err := m.spotify.SearchArtists(m.ctx, query, 10)
		return artistsFoundMsg{artists: artists, err: err}
	}
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	playlists := m.selectedPlaylists()
	artists := append([]models.Artist(nil), m.chosen...)
	progress := m.progressChan

	go func() {
		results, err := m.engine.ProcessAll(m.ctx, playlists, artists, progress)
		m.runResults = results
		m.runErr = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg{results: m.runResults, err: m.runErr}
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg{results: m.runResults, err: m.runErr}
		}
		return runProgressMsg(update)
	}
}

func (m *Model) renderPlaylistPick() string {
	status := styles.help.Render(fmt.Sprintf("%d selected — none selected creates a new playlist", m.pickedCount()))
	helpKeys := []key.Binding{m.keys.toggle, m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s\n%s", m.playlistList.View(), status, helpView)
}

func (m *Model) renderArtistSearch() string {
	title := styles.title.Render("Add Artists")

	var chosen string
	if len(m.chosen) > 0 {
		names := make([]string, len(m.chosen))
		for i, a := range m.chosen {
			names[i] = a.Name
		}
		chosen = fmt.Sprintf("\nChosen: %s\n", styles.accent.Render(strings.Join(names, ", ")))
	}

	var status string
	switch {
	case m.searching:
		status = styles.help.Render("Searching...")
	case m.err != nil:
		status = styles.err.Render(fmt.Sprintf("Search failed: %v", m.err))
	default:
		status = styles.help.Render("enter: search • empty + enter: continue • esc: back")
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", title, m.searchInput.View(), chosen, status)
}

func (m *Model) renderArtistPick() string {
	status := styles.help.Render(fmt.Sprintf("%d artists chosen — esc searches again", len(m.chosen)))
	helpKeys := []key.Binding{m.keys.toggle, m.keys.enter, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s\n%s", m.artistList.View(), status, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Start maker run?")

	var targets string
	if playlists := m.selectedPlaylists(); len(playlists) > 0 {
		names := make([]string, len(playlists))
		for i, pl := range playlists {
			names[i] = pl.Name
		}
		targets = fmt.Sprintf("Playlists: %s", strings.Join(names, ", "))
	} else {
		targets = "Playlists: a new playlist will be created"
	}

	var merge string
	if len(m.chosen) > 0 {
		names := make([]string, len(m.chosen))
		for i, a := range m.chosen {
			names[i] = a.Name
		}
		merge = fmt.Sprintf("Artists:   %s", strings.Join(names, ", "))
	} else {
		merge = "Artists:   refresh from each playlist's recorded artists"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, targets, merge, helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Building Playlists")

	var phase string
	switch m.progress.Phase {
	case tasks.ProbeReleases:
		phase = fmt.Sprintf("Checking for new releases (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CrawlArtist:
		phase = fmt.Sprintf("Crawling artist catalogs (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.FetchExisting:
		phase = "Reading current playlist tracks..."
	case tasks.DedupeTracks:
		phase = "Removing duplicates..."
	case tasks.AddBatch:
		phase = fmt.Sprintf("Adding tracks (batch %d/%d)", m.progress.Step, m.progress.Total)
	case tasks.WriteDescription:
		phase = "Recording artists in the playlist description..."
	case tasks.CreateTarget:
		phase = "Creating playlist..."
	case tasks.Waiting:
		phase = "Waiting before the next playlist..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Maker run failed: %v\n\nPress r to retry, q to quit", m.err))
	}

	title := styles.ok.Render("✓ Maker Run Complete")

	var lines []string
	added := 0
	for _, result := range m.results {
		added += len(result.Tracks)
		if len(result.Tracks) == 0 {
			lines = append(lines, fmt.Sprintf("  %s: already up to date", result.Playlist.Name))
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: %d tracks added", result.Playlist.Name, len(result.Tracks)))
	}
	if len(lines) == 0 {
		lines = append(lines, styles.warn.Render("  Nothing to do."))
	}

	summary := fmt.Sprintf("\n%s\n\n%d playlists, %d tracks added", strings.Join(lines, "\n"), len(m.results), added)

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s\n\n%s", title, summary, helpView)
}
