package logtail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampParserDefaults(t *testing.T) {
	p := NewTimestampParser(nil, time.UTC)

	tests := []struct {
		line string
		want time.Time
	}{
		{"2024-05-01 12:00:00.123 INFO started", time.Date(2024, 5, 1, 12, 0, 0, 123e6, time.UTC)},
		{"2024-05-01 12:00:00,250 WARN slow", time.Date(2024, 5, 1, 12, 0, 0, 250e6, time.UTC)},
		{"2024-05-01 12:00:07 ERROR boom", time.Date(2024, 5, 1, 12, 0, 7, 0, time.UTC)},
		{"2024-05-01T12:00:00Z level=info msg=hi", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"[2024-05-01 12:00:01] worker ready", time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)},
		{"2024/05/01 12:00:02 listening", time.Date(2024, 5, 1, 12, 0, 2, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := p.Parse(tt.line)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestTimestampParserOffset(t *testing.T) {
	p := NewTimestampParser(nil, time.UTC)
	got, ok := p.Parse("2024-05-01T14:00:00+02:00 shifted")
	require.True(t, ok)
	assert.True(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Equal(got))
}

func TestTimestampParserRejects(t *testing.T) {
	p := NewTimestampParser(nil, time.UTC)
	for _, line := range []string{
		"",
		"   at com.example.Main(Main.java:10)",
		"Traceback (most recent call last):",
		"12:00:00 no date",
	} {
		_, ok := p.Parse(line)
		assert.False(t, ok, line)
	}
}

func TestTimestampParserCustomLayout(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	p := NewTimestampParser([]string{"02.01.2006 15:04:05"}, loc)

	got, ok := p.Parse("24.12.2023 18:30:00 gifts")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 12, 24, 18, 30, 0, 0, loc), got)

	_, ok = p.Parse("2024-05-01 12:00:00 default layouts are not used")
	assert.False(t, ok)
}

func TestTimestampParserYearless(t *testing.T) {
	p := NewTimestampParser([]string{time.Stamp}, time.UTC)
	got, ok := p.Parse("Mar  7 08:15:00 host sshd[1]: accepted")
	require.True(t, ok)
	assert.Equal(t, time.Now().UTC().Year(), got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 7, got.Day())
}

func TestDetectLevel(t *testing.T) {
	tests := []struct {
		line string
		want Level
	}{
		{"2024-05-01 12:00:00 INFO started", LevelInfo},
		{"2024-05-01 12:00:00 [WARN] slow", LevelWarning},
		{"time=now level=error msg=boom", LevelError},
		{"2024-05-01 12:00:00 DBG cache hit", LevelDebug},
		{"2024-05-01 12:00:00 FATAL: out of memory", LevelFatal},
		{"plain line", LevelOther},
		{"a b c d e f ERROR too far", LevelOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLevel(tt.line), tt.line)
	}
}
