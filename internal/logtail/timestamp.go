package logtail

import (
	"strings"
	"time"
)

// DefaultLayouts are tried in order when a source configures none.
var DefaultLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05,000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006/01/02 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
	time.StampMilli,
	time.Stamp,
}

// TimestampParser finds the timestamp at the start of a log line.
type TimestampParser struct {
	layouts []string
	loc     *time.Location
}

// NewTimestampParser returns a parser for layouts. Timestamps without a zone
// are read in loc, or in the local zone when loc is nil.
func NewTimestampParser(layouts []string, loc *time.Location) *TimestampParser {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	if loc == nil {
		loc = time.Local
	}
	return &TimestampParser{layouts: layouts, loc: loc}
}

// Parse returns the timestamp that starts line, or false.
func (p *TimestampParser) Parse(line string) (time.Time, bool) {
	line = strings.TrimLeft(line, " \t[")
	if line == "" {
		return time.Time{}, false
	}
	for _, layout := range p.layouts {
		if ts, ok := p.parsePrefix(line, layout); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parsePrefix tries the prefix of line as long as layout first, then the
// leading whitespace separated fields layout spans.
func (p *TimestampParser) parsePrefix(line, layout string) (time.Time, bool) {
	if n := len(layout); len(line) >= n {
		if ts, err := time.ParseInLocation(layout, line[:n], p.loc); err == nil {
			return p.fix(ts), true
		}
	}

	fields := strings.Count(layout, " ") + 1
	candidate := leadingFields(line, fields)
	if candidate == "" {
		return time.Time{}, false
	}
	candidate = strings.TrimRight(candidate, "]:,")
	ts, err := time.ParseInLocation(layout, candidate, p.loc)
	if err != nil {
		return time.Time{}, false
	}
	return p.fix(ts), true
}

// fix places year-less timestamps in the current year.
func (p *TimestampParser) fix(ts time.Time) time.Time {
	if ts.Year() == 0 {
		now := time.Now().In(p.loc)
		return time.Date(now.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), p.loc)
	}
	return ts
}

func leadingFields(line string, n int) string {
	end := 0
	for i := 0; i < n; i++ {
		for end < len(line) && line[end] == ' ' {
			end++
		}
		next := strings.IndexAny(line[end:], " \t")
		if next < 0 {
			if i == n-1 {
				return line
			}
			return ""
		}
		end += next
	}
	return line[:end]
}
