package events

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

const (
	maxMessageWidth   = 200
	maxLineWidth      = 120
	truncateIndicator = "..."
)

// Format converts an event to a human-readable string. It returns "" for
// nil or unknown events.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *SessionStartEvent:
		s := fmt.Sprintf("session started: %d structures, %d dandisets from %s",
			e.Structures, e.Dandisets, SafeString(e.DataSource))
		if e.LastUpdated != "" {
			s += fmt.Sprintf(" (data %s)", SafeString(e.LastUpdated))
		}
		return s
	case *SessionEndEvent:
		if e.Reason != "" {
			return fmt.Sprintf("session ended: %s", SafeString(e.Reason))
		}
		return "session ended"
	case *SelectionChangedEvent:
		return fmt.Sprintf("%s: %s -> %s %s", e.Operation, e.From, e.To, HashLabel(e.Hash))
	case *NavigationEvent:
		if e.Error != "" {
			return fmt.Sprintf("navigation %s failed: %s", HashLabel(e.Hash), Truncate(e.Error, maxMessageWidth))
		}
		return fmt.Sprintf("navigated to %s", HashLabel(e.Hash))
	case *MeshBatchEvent:
		s := fmt.Sprintf("meshes %d/%d: %d loaded", e.Done, e.Total, e.Loaded)
		if e.Failed > 0 {
			s += fmt.Sprintf(", %d failed", e.Failed)
		}
		return s + fmt.Sprintf(" in %dms", e.DurationMs)
	case *MeshFailedEvent:
		return fmt.Sprintf("mesh %d unavailable: %s", e.StructureID, Truncate(e.Error, maxMessageWidth))
	case *TitlesResolvedEvent:
		return fmt.Sprintf("titles: %d/%d resolved", e.Resolved, e.Requested)
	case *ElectrodesLoadedEvent:
		return fmt.Sprintf("electrodes %s: %d shown of %d", e.DandisetID, e.Shown, e.Points)
	case *ErrorEvent:
		return formatError(e)
	case *ParseErrorEvent:
		return fmt.Sprintf("parse error: %s", Truncate(e.Error, maxMessageWidth))
	default:
		return ""
	}
}

// HashLabel renders a navigation hash, "#" for the default view.
func HashLabel(hash string) string {
	if hash == "" {
		return "#"
	}
	return "#" + hash
}

func formatError(e *ErrorEvent) string {
	msg := Truncate(e.Message, maxMessageWidth)
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Severity, msg)
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + SafeString(e.Context[k])
	}
	return fmt.Sprintf("%s: %s [%s]", e.Severity, msg, strings.Join(parts, " "))
}

// FormatWithTimestamp formats an event with a clock prefix.
func FormatWithTimestamp(event Event) string {
	if event == nil {
		return ""
	}
	ts := event.Timestamp().Format("15:04:05")
	detail := Format(event)
	if detail == "" {
		return fmt.Sprintf("[%s] %s", ts, event.Type())
	}
	return Truncate(fmt.Sprintf("[%s] %s", ts, detail), maxLineWidth)
}

// Truncate shortens s to maxWidth display cells, adding an indicator if
// truncated.
func Truncate(s string, maxWidth int) string {
	s = SafeString(s)
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(truncateIndicator) {
		return truncateIndicator
	}
	return runewidth.Truncate(s, maxWidth, truncateIndicator)
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// SafeString strips escape sequences and control characters and collapses
// whitespace runs to single spaces.
func SafeString(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == ' ' || !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
