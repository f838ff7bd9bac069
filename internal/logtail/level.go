package logtail

import "strings"

// Level is the severity a log line announces.
type Level uint8

const (
	LevelOther Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "other"
	}
}

var levelWords = map[string]Level{
	"TRACE":    LevelTrace,
	"TRC":      LevelTrace,
	"DEBUG":    LevelDebug,
	"DBG":      LevelDebug,
	"INFO":     LevelInfo,
	"INF":      LevelInfo,
	"WARN":     LevelWarning,
	"WARNING":  LevelWarning,
	"WRN":      LevelWarning,
	"ERROR":    LevelError,
	"ERR":      LevelError,
	"FATAL":    LevelFatal,
	"CRITICAL": LevelFatal,
	"PANIC":    LevelFatal,
}

// maxLevelFields bounds how far into a line the level is looked for.
const maxLevelFields = 6

// DetectLevel returns the first level keyword among the leading fields of
// line. "level=warn" style fields are understood too.
func DetectLevel(line string) Level {
	fields := strings.Fields(line)
	if len(fields) > maxLevelFields {
		fields = fields[:maxLevelFields]
	}
	for _, f := range fields {
		if _, v, ok := strings.Cut(f, "="); ok {
			f = v
		}
		f = strings.Trim(f, "[]():|\"")
		if lvl, ok := levelWords[strings.ToUpper(f)]; ok {
			return lvl
		}
	}
	return LevelOther
}
