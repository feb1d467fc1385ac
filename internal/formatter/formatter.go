// package formatter renders maker run reports to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/shared"
)

// Report is one finished maker run, ready for rendering.
type Report struct {
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Results    []models.ProcessedPlaylist `json:"results"`
}

// TracksAdded returns the total number of tracks added across playlists.
func (r *Report) TracksAdded() int {
	total := 0
	for _, result := range r.Results {
		total += len(result.Tracks)
	}
	return total
}

// ToCSV renders the report as CSV with columns: Playlist, Track ID, Title, Artists, Album, Duration (ms)
func ToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Playlist", "Track ID", "Title", "Artists", "Album", "Duration (ms)"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, result := range report.Results {
		for _, track := range result.Tracks {
			record := []string{
				result.Playlist.Name,
				track.ID,
				track.Name,
				artistNames(track.Artists),
				track.Album.Name,
				strconv.Itoa(track.DurationMS),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown renders the report as Markdown, one section per playlist
func ToMarkdown(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Maker run\n\n")
	buf.WriteString(fmt.Sprintf("**Started**: %s\n", report.StartedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Finished**: %s\n", report.FinishedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Playlists**: %d\n", len(report.Results)))
	buf.WriteString(fmt.Sprintf("**Tracks added**: %d\n\n", report.TracksAdded()))

	for _, result := range report.Results {
		buf.WriteString(fmt.Sprintf("## %s\n\n", result.Playlist.Name))
		if len(result.Tracks) == 0 {
			buf.WriteString("Already up to date.\n\n")
			continue
		}
		for i, track := range result.Tracks {
			albumPart := ""
			if track.Album.Name != "" {
				albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
			}
			buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, artistNames(track.Artists), track.Name, albumPart, track.Duration()))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ToText renders the report as plain text
func ToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Maker run: %d playlists, %d tracks added\n\n", len(report.Results), report.TracksAdded()))

	for _, result := range report.Results {
		buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.Playlist.Name))
		if len(result.Tracks) == 0 {
			buf.WriteString("  already up to date\n")
			continue
		}
		for i, track := range result.Tracks {
			buf.WriteString(fmt.Sprintf("  %d. %s - %s\n", i+1, artistNames(track.Artists), track.Name))
		}
	}

	return buf.Bytes(), nil
}

// ToJSON renders the report as indented JSON
func ToJSON(report *Report) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}

// WriteReport renders the report in the requested format and writes it to a
// file. An empty path defaults to maker_run_{timestamp}.{ext}; the chosen
// path is returned.
func WriteReport(report *Report, format, path string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch strings.ToLower(format) {
	case "csv":
		data, err = ToCSV(report)
		ext = "csv"
	case "markdown", "md":
		data, err = ToMarkdown(report)
		ext = "md"
	case "json":
		data, err = ToJSON(report)
		ext = "json"
	case "text", "txt", "":
		data, err = ToText(report)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: unknown report format '%s'", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	if path == "" {
		path = fmt.Sprintf("maker_run_%s.%s", report.StartedAt.Format("20060102_150405"), ext)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

func artistNames(artists []models.Artist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
