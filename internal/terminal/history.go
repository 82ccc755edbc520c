package terminal

import "strings"

// priorHistoryLimit caps how many prior-session entries are shown in
// the collapsed history region.
const priorHistoryLimit = 10

// FilterHistory drops entries that are not real user history: blank
// commands and the transcript-management builtins. Live-transcript
// info banners never reach the stored history, so they need no
// special-casing here.
func FilterHistory(entries []HistoryEntry) []HistoryEntry {
	var out []HistoryEntry
	for _, e := range entries {
		switch strings.TrimSpace(e.Command) {
		case "", "clear", "history":
			continue
		}
		out = append(out, e)
	}
	return out
}

// PriorHistory returns the filtered tail of entries shown in the
// "previous session" disclosure region, oldest first.
func PriorHistory(entries []HistoryEntry) []HistoryEntry {
	filtered := FilterHistory(entries)
	if len(filtered) > priorHistoryLimit {
		filtered = filtered[len(filtered)-priorHistoryLimit:]
	}
	return filtered
}

// HasRealHistory reports whether the disclosure control should be
// visible at all.
func HasRealHistory(entries []HistoryEntry) bool {
	return len(FilterHistory(entries)) > 0
}
