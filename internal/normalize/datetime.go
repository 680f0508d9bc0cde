package normalize

import (
	"strings"
	"time"
)

// dateLayouts is tried in order; the first successful parse wins. Day-first
// layouts come before month-first ones because Indian documents write 02/03 as 2 March.
var dateLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-January-2006",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2 Jan 06",
	"2006-01-02",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"3:04:05PM",
}

const (
	minYear = 1900
	maxYear = 2100
)

// ParseDate tries each known layout in priority order.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.Join(strings.Fields(raw), " ")
	s = strings.Trim(s, ".,;:")
	if s == "" {
		return time.Time{}, false
	}
	candidates := []string{s}
	// "12 Jan, 2024" and "12-Jan-2024," variants
	if alt := strings.ReplaceAll(s, ", ", " "); alt != s {
		candidates = append(candidates, alt)
	}
	for _, layout := range dateLayouts {
		for _, c := range candidates {
			t, err := time.Parse(layout, c)
			if err != nil {
				continue
			}
			if t.Year() < minYear || t.Year() > maxYear {
				continue
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTime returns the clock time in raw as a duration since midnight.
func ParseTime(raw string) (time.Duration, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Trim(s, ",;")
	if s == "" {
		return 0, false
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second, true
	}
	return 0, false
}
