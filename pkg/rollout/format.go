package rollout

import (
	"fmt"
	"strconv"
	"strings"
)

// Format identifies how a flag record is persisted.
type Format uint8

const (
	// FormatAuto resolves the format from the persisted record itself.
	FormatAuto Format = iota
	// FormatEmbedded keeps percentage, users, groups and data in a single value.
	FormatEmbedded
	// FormatSets keeps users and groups in native store sets next to the record.
	FormatSets
)

// formatToken marks a record as written in the sets format.
const formatToken = "__sets__"

// String returns the textual name of the format.
func (f Format) String() string {
	switch f {
	case FormatEmbedded:
		return "embedded"
	case FormatSets:
		return "sets"
	default:
		return "auto"
	}
}

// ParseFormat converts a textual format name into a Format.
// An empty string is treated as FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "embedded", "legacy":
		return FormatEmbedded, nil
	case "sets", "set":
		return FormatSets, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// hasFormatToken reports whether raw carries the sets format marker.
// Data segments are JSON objects, so a trailing "|__sets__" cannot be part of them.
func hasFormatToken(raw string) bool {
	return strings.HasSuffix(raw, "|"+formatToken)
}

func stripFormatToken(raw string) string {
	return strings.TrimSuffix(raw, "|"+formatToken)
}

// formatPercentage writes percentages the way legacy records hold them ("50.0", "12.5").
func formatPercentage(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.ContainsAny(s, ".IN") {
		s += ".0"
	}
	return s
}

// parsePercentage is lenient: text that is not a number reads as 0.
func parsePercentage(s string) float64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return p
}

// splitList decodes a comma-joined membership segment, dropping blanks and duplicates.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
