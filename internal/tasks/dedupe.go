package tasks

import (
	"time"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/shared"
)

// DefaultDuplicateTolerance is the duration window within which two tracks
// with the same name count as the same song. Catalog crawls commonly return
// the same song from multiple releases (studio album + deluxe edition) with
// masters differing by a few hundred milliseconds.
const DefaultDuplicateTolerance = 2000 * time.Millisecond

// TracksMatch reports whether two tracks are the same song: names equal
// case-insensitively and durations within tolerance.
func TracksMatch(a, b models.Track, tolerance time.Duration) bool {
	if shared.NormalizeTrackName(a.Name) != shared.NormalizeTrackName(b.Name) {
		return false
	}
	delta := a.DurationMS - b.DurationMS
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta)*time.Millisecond <= tolerance
}

// Dedupe collapses fuzzy duplicates in candidates, preferring explicit
// versions, and suppresses any candidate already present in existing.
//
// The pass is order-preserving: the first occurrence of a song keeps its
// position even when a later explicit version replaces it in place.
// Candidates matching a track in existing are dropped unconditionally,
// which makes repeated runs against the same playlist idempotent.
func Dedupe(candidates, existing []models.Track, tolerance time.Duration) []models.Track {
	unique := make([]models.Track, 0, len(candidates))

	for _, candidate := range candidates {
		if matchesAny(existing, candidate, tolerance) {
			continue
		}

		idx := -1
		for i := range unique {
			if TracksMatch(unique[i], candidate, tolerance) {
				idx = i
				break
			}
		}

		if idx >= 0 {
			if candidate.Explicit && !unique[idx].Explicit {
				unique[idx] = candidate
			}
			continue
		}

		unique = append(unique, candidate)
	}

	return unique
}

func matchesAny(tracks []models.Track, candidate models.Track, tolerance time.Duration) bool {
	for _, t := range tracks {
		if TracksMatch(t, candidate, tolerance) {
			return true
		}
	}
	return false
}
