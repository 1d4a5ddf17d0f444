// Package week buckets calendar dates into Sunday-to-Saturday weeks.
//
// A Key holds both ends of the week as civil dates, so equality of keys is
// equality of dates and no timezone arithmetic is involved anywhere. The
// long-form label ("3 March 2024 - 9 March 2024") is only a rendering; Parse
// reverses it with the same layout.
package week

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	// LabelLayout is the long-form calendar layout used for both ends of a label.
	LabelLayout = "2 January 2006"

	separator = " - "
	span      = 6
)

// Key identifies one Sunday-to-Saturday week.
type Key struct {
	Start civil.Date
	End   civil.Date
}

// Of returns the week containing d.
func Of(d civil.Date) Key {
	start := d.AddDays(-int(weekday(d)))
	return Key{Start: start, End: start.AddDays(span)}
}

// OfTime returns the week containing t, evaluated in t's own location.
func OfTime(t time.Time) Key {
	return Of(civil.DateOf(t))
}

// Supported reports whether both ends of d's week fall in years 1-9999, the
// range whose labels the four-digit layout can parse back.
func Supported(d civil.Date) bool {
	k := Of(d)
	return k.Start.Year >= 1 && k.End.Year <= 9999
}

// KeyOf returns the label of the week containing d.
func KeyOf(d civil.Date) string {
	return Of(d).Label()
}

// StartOf parses a week label and returns its Sunday.
func StartOf(label string) (civil.Date, error) {
	k, err := Parse(label)
	if err != nil {
		return civil.Date{}, err
	}
	return k.Start, nil
}

// Parse converts a label produced by Key.Label back into a Key.
func Parse(label string) (Key, error) {
	startPart, endPart, ok := strings.Cut(strings.TrimSpace(label), separator)
	if !ok {
		return Key{}, fmt.Errorf("%w: %q has no separator", ErrInvalidKey, label)
	}
	start, err := parseLong(startPart)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrInvalidKey, label, err)
	}
	end, err := parseLong(endPart)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrInvalidKey, label, err)
	}
	k := Of(start)
	if k.Start != start || k.End != end {
		return Key{}, fmt.Errorf("%w: %q is not a Sunday-to-Saturday span", ErrInvalidKey, label)
	}
	return k, nil
}

// Label renders the key as "<start> - <end>" in long form.
func (k Key) Label() string {
	return formatLong(k.Start) + separator + formatLong(k.End)
}

// String implements fmt.Stringer.
func (k Key) String() string { return k.Label() }

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k.Start.IsZero() && k.End.IsZero() }

// Contains reports whether d falls inside the week.
func (k Key) Contains(d civil.Date) bool {
	return !d.Before(k.Start) && !d.After(k.End)
}

// Less orders keys by their start date.
func Less(a, b Key) bool { return a.Start.Before(b.Start) }

// Sort orders keys ascending by start date. Label order is not date order
// because the day of month is not zero-padded.
func Sort(keys []Key) {
	sort.SliceStable(keys, func(i, j int) bool { return Less(keys[i], keys[j]) })
}

type keyJSON struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON renders the label plus ISO dates.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyJSON{Label: k.Label(), Start: k.Start.String(), End: k.End.String()})
}

// UnmarshalJSON accepts either the object form or a bare label string.
func (k *Key) UnmarshalJSON(b []byte) error {
	var label string
	if err := json.Unmarshal(b, &label); err == nil {
		parsed, err := Parse(label)
		if err != nil {
			return err
		}
		*k = parsed
		return nil
	}
	var raw keyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	start, err := civil.ParseDate(raw.Start)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	*k = Of(start)
	return nil
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

func formatLong(d civil.Date) string {
	return d.In(time.UTC).Format(LabelLayout)
}

func parseLong(s string) (civil.Date, error) {
	t, err := time.Parse(LabelLayout, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}
