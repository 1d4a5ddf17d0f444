// Package exclusion drops records for players who have left the roster.
package exclusion

import (
	"strings"

	"github.com/okian/almog/internal/domain/model"
)

// Filter returns the records whose player name does not contain any of the
// excluded names, compared case-insensitively. Substring matching is
// intentional so that name variants ("Jr.", middle names) are caught too.
// Blank entries in excluded are ignored; an empty list returns records as-is.
func Filter(records []model.SessionRecord, excluded []string) []model.SessionRecord {
	needles := normalize(excluded)
	if len(needles) == 0 {
		return records
	}

	out := make([]model.SessionRecord, 0, len(records))
	for _, r := range records {
		if !matches(r.PlayerName, needles) {
			out = append(out, r)
		}
	}
	return out
}

// Excluded reports whether name would be dropped by Filter.
func Excluded(name string, excluded []string) bool {
	return matches(name, normalize(excluded))
}

func matches(name string, needles []string) bool {
	name = strings.ToLower(name)
	for _, n := range needles {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

func normalize(excluded []string) []string {
	needles := make([]string, 0, len(excluded))
	for _, e := range excluded {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			needles = append(needles, e)
		}
	}
	return needles
}
