package merge

import "fmt"

// SourceHandle is the small integer an index hands out for each registered
// source. Records store handles instead of source references.
type SourceHandle uint8

const (
	// InvalidHandle never identifies a registered source.
	InvalidHandle SourceHandle = 255

	// MaxSources is the number of handles available per index.
	MaxSources = int(InvalidHandle)
)

// IsValid reports whether h can identify a registered source.
func (h SourceHandle) IsValid() bool {
	return h != InvalidHandle
}

func (h SourceHandle) String() string {
	if !h.IsValid() {
		return "invalid"
	}
	return fmt.Sprintf("#%d", uint8(h))
}

type registeredSource struct {
	source Source
	// next is the first source line the index has not seen yet. Appends
	// starting before it would duplicate lines.
	next int
}

// registry maps handles to sources. Handles are dense and never reused
// until reset.
type registry struct {
	entries []registeredSource
	byRef   map[Source]SourceHandle
}

func newRegistry() registry {
	return registry{byRef: make(map[Source]SourceHandle)}
}

func (r *registry) register(src Source) (SourceHandle, error) {
	if src == nil {
		return InvalidHandle, fmt.Errorf("register source: %w", ErrUnknownSource)
	}
	if h, ok := r.byRef[src]; ok {
		return h, nil
	}
	if len(r.entries) >= MaxSources {
		return InvalidHandle, fmt.Errorf("register source: %w (limit %d)", ErrTooManySources, MaxSources)
	}
	h := SourceHandle(len(r.entries))
	r.entries = append(r.entries, registeredSource{source: src})
	r.byRef[src] = h
	return h, nil
}

func (r *registry) lookup(h SourceHandle) (*registeredSource, bool) {
	if int(h) >= len(r.entries) {
		return nil, false
	}
	return &r.entries[h], true
}

func (r *registry) handle(src Source) (SourceHandle, bool) {
	h, ok := r.byRef[src]
	return h, ok
}

func (r *registry) len() int {
	return len(r.entries)
}

func (r *registry) reset() {
	r.entries = nil
	r.byRef = make(map[Source]SourceHandle)
}
