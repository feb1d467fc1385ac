package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a maker run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Run phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Run phase enumeration
type Phase int

const (
	ProbeReleases Phase = iota
	CrawlArtist
	FetchExisting
	DedupeTracks
	AddBatch
	WriteDescription
	CreateTarget
	PlaylistDone
	Waiting
)

func (p Phase) String() string {
	switch p {
	case ProbeReleases:
		return "probe_releases"
	case CrawlArtist:
		return "crawl_artist"
	case FetchExisting:
		return "fetch_existing"
	case DedupeTracks:
		return "dedupe_tracks"
	case AddBatch:
		return "add_batch"
	case WriteDescription:
		return "write_description"
	case CreateTarget:
		return "create_target"
	case PlaylistDone:
		return "playlist_done"
	case Waiting:
		return "waiting"
	default:
		return ""
	}
}

func probeReleasesUpdate(step, total int, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeReleases,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Checking %s for new releases...", artist),
	}
}

func crawlArtistUpdate(step, total int, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CrawlArtist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Collecting tracks by %s...", artist),
	}
}

func fetchExistingUpdate(playlist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchExisting,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching current tracks of '%s'...", playlist),
	}
}

func dedupeUpdate(candidates int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DedupeTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Deduplicating %d candidate tracks...", candidates),
	}
}

func addBatchUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Adding batch %d of %d...", step, total),
	}
}

func writeDescriptionUpdate(playlist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteDescription,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Recording artist set on '%s'...", playlist),
	}
}

func createTargetUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateTarget,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist '%s'...", name),
	}
}

func playlistDoneUpdate(playlist string, added int, data any) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlaylistDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Done with '%s': %d tracks added", playlist, added),
		Data:    data,
	}
}

func waitingUpdate(d time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Waiting,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Waiting %s before the next playlist...", d),
	}
}
