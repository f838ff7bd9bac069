package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/tailmerge/internal/merge"
)

// defaultMaxReadBytes bounds how much of a file one Poll reads.
const defaultMaxReadBytes = 4 << 20

// maxLineBytes bounds a line held back while waiting for its newline.
const maxLineBytes = 1 << 20

// Options configure a File.
type Options struct {
	// Name is shown next to the file's lines. Defaults to the base name.
	Name string
	// Layouts are the timestamp layouts tried on every line.
	Layouts []string
	// Location applies to timestamps without a zone.
	Location *time.Location
	// Multiline makes lines without a timestamp continue the entry above.
	Multiline bool
	// MaxReadBytes bounds a single Poll. Defaults to 4 MiB.
	MaxReadBytes int
	Logger       logrus.FieldLogger
}

type line struct {
	text  string
	ts    time.Time
	entry int
	level Level
}

// File is a log file read incrementally from disk. It implements
// merge.TextSource and merge.NamedSource.
type File struct {
	path      string
	name      string
	parser    *TimestampParser
	multiline bool
	maxRead   int
	logger    logrus.FieldLogger

	mu        sync.RWMutex
	lines     []line
	nextEntry int

	// Read position, only touched by Poll.
	info    os.FileInfo
	offset  int64
	partial []byte
}

// Open prepares a tail of path. The file does not have to exist yet; the
// first Poll reads whatever is there.
func Open(path string, opts Options) *File {
	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}
	maxRead := opts.MaxReadBytes
	if maxRead <= 0 {
		maxRead = defaultMaxReadBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &File{
		path:      path,
		name:      name,
		parser:    NewTimestampParser(opts.Layouts, opts.Location),
		multiline: opts.Multiline,
		maxRead:   maxRead,
		logger:    logger.WithField("file", path),
	}
}

// Path returns the path being tailed.
func (f *File) Path() string {
	return f.path
}

// Poll reads what was written since the previous call and returns the
// resulting modifications. A file that shrank, was replaced or vanished
// yields a Reset. Poll must not be called concurrently with itself.
func (f *File) Poll() ([]merge.Modification, error) {
	var mods []merge.Modification

	info, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if f.drop() {
				f.logger.Info("log file vanished")
				mods = append(mods, merge.Reset())
			}
			return mods, nil
		}
		return nil, fmt.Errorf("stat log: %w", err)
	}

	switch {
	case f.info != nil && !os.SameFile(f.info, info):
		f.logger.Info("log file replaced, reading from the start")
		if f.drop() {
			mods = append(mods, merge.Reset())
		}
	case info.Size() < f.offset:
		f.logger.WithField("size", info.Size()).WithField("offset", f.offset).
			Info("log file truncated, reading from the start")
		if f.drop() {
			mods = append(mods, merge.Reset())
		}
	}
	f.info = info

	if info.Size() == f.offset {
		return mods, nil
	}

	chunk, err := f.read(info.Size())
	if err != nil {
		return mods, err
	}
	if m, ok := f.consume(chunk); ok {
		mods = append(mods, m)
	}
	return mods, nil
}

// drop forgets everything read so far and reports whether there was
// anything to forget.
func (f *File) drop() bool {
	f.info = nil
	f.offset = 0
	f.partial = nil

	f.mu.Lock()
	defer f.mu.Unlock()
	had := len(f.lines) > 0
	f.lines = nil
	f.nextEntry = 0
	return had
}

func (f *File) read(size int64) ([]byte, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	n := min(size-f.offset, int64(f.maxRead))
	buf := make([]byte, n)
	read, err := file.ReadAt(buf, f.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read log: %w", err)
	}
	f.offset += int64(read)
	return buf[:read], nil
}

// consume splits chunk into lines, holding back an unterminated tail, and
// appends them.
func (f *File) consume(chunk []byte) (merge.Modification, bool) {
	data := chunk
	if len(f.partial) > 0 {
		data = append(f.partial, chunk...)
		f.partial = nil
	}

	var texts []string
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		texts = append(texts, string(bytes.TrimSuffix(data[:i], []byte{'\r'})))
		data = data[i+1:]
	}
	if len(data) > 0 {
		if len(data) >= maxLineBytes {
			texts = append(texts, string(data))
		} else {
			f.partial = bytes.Clone(data)
		}
	}
	if len(texts) == 0 {
		return merge.Modification{}, false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	from := len(f.lines)
	for _, text := range texts {
		f.lines = append(f.lines, f.parse(text))
	}
	return merge.Appended(from, len(texts)), true
}

// parse must be called with mu held.
func (f *File) parse(text string) line {
	ts, ok := f.parser.Parse(text)
	if !ok && f.multiline && len(f.lines) > 0 {
		prev := f.lines[len(f.lines)-1]
		return line{text: text, ts: prev.ts, entry: prev.entry, level: prev.level}
	}
	l := line{text: text, entry: f.nextEntry, level: DetectLevel(text)}
	if ok {
		l.ts = ts
	}
	f.nextEntry++
	return l
}

// Name implements merge.NamedSource.
func (f *File) Name() string {
	return f.name
}

// Count implements merge.Source.
func (f *File) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.lines)
}

// Columns implements merge.Source.
func (f *File) Columns(from, count int) merge.Columns {
	if count <= 0 {
		return merge.Columns{}
	}
	cols := merge.NewColumns(count)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := range count {
		n := from + i
		if n < 0 || n >= len(f.lines) {
			cols.Index[i] = -1
			cols.Entry[i] = -1
			continue
		}
		cols.Index[i] = n
		cols.Entry[i] = f.lines[n].entry
		cols.Timestamp[i] = f.lines[n].ts
	}
	return cols
}

// Text implements merge.TextSource.
func (f *File) Text(n int) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n < 0 || n >= len(f.lines) {
		return ""
	}
	return f.lines[n].text
}

// Level returns the level of line n.
func (f *File) Level(n int) Level {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n < 0 || n >= len(f.lines) {
		return LevelOther
	}
	return f.lines[n].level
}
