// Package history keeps the linear, undoable sequence of committed canvas
// images.
package history

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Descriptions used for root entries.
const (
	DescWebsiteImported = "Website imported"
	DescImageUploaded   = "Image uploaded"
)

var (
	// ErrIndexOutOfRange is returned by Jump and AttachCode for an index
	// that does not name an entry.
	ErrIndexOutOfRange = errors.New("history index out of range")
	// ErrEntryNotFound is returned by AppendAfter when the base entry has
	// been cleared or discarded.
	ErrEntryNotFound = errors.New("history entry no longer exists")
)

// ImageState is one committed full-canvas image. Entries are immutable once
// appended except for the generated code pointers.
type ImageState struct {
	ID          string
	Image       []byte
	Description string
	// Prompt and RequestID are empty for import roots.
	Prompt    string
	RequestID string
	Reference []byte
	Timestamp time.Time

	GeneratedCodeURL string
	ViewURL          string
}

// Root reports whether the entry came from an import or upload rather than
// a transformation.
func (s ImageState) Root() bool { return s.RequestID == "" && s.Prompt == "" }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lexically sortable entry id for t.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewImport builds a root entry for an imported or uploaded image.
func NewImport(image []byte, description string, now time.Time) ImageState {
	return ImageState{
		ID:          NewID(now),
		Image:       image,
		Description: description,
		Timestamp:   now,
	}
}

// NewTransform builds the entry committed after a successful transformation.
// The description is the prompt text.
func NewTransform(image []byte, prompt, requestID string, reference []byte, now time.Time) ImageState {
	return ImageState{
		ID:          NewID(now),
		Image:       image,
		Description: prompt,
		Prompt:      prompt,
		RequestID:   requestID,
		Reference:   reference,
		Timestamp:   now,
	}
}

// PromptEntry is one line of the prompt log.
type PromptEntry struct {
	Timestamp time.Time
	Prompt    string
	RequestID string
	Index     int
}

// Store is the history buffer and its current position. It is safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  []ImageState
	index    int
	onChange []func(ImageState, int)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: -1}
}

// OnChange registers f to be called after any operation that changes the
// displayed entry. f receives the current entry and index, or a zero entry
// and -1 after Clear. It runs without the store lock held.
func (s *Store) OnChange(f func(ImageState, int)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, f)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	fs := append([]func(ImageState, int){}, s.onChange...)
	cur, idx := s.currentLocked()
	s.mu.RUnlock()
	for _, f := range fs {
		f(cur, idx)
	}
}

func (s *Store) currentLocked() (ImageState, int) {
	if s.index < 0 {
		return ImageState{}, -1
	}
	return s.entries[s.index], s.index
}

// Append drops every entry after the current one and adds e as the new
// current entry. It returns the new index.
func (s *Store) Append(e ImageState) int {
	s.mu.Lock()
	s.entries = append(s.entries[:s.index+1:s.index+1], e)
	s.index = len(s.entries) - 1
	idx := s.index
	s.mu.Unlock()
	s.notify()
	return idx
}

// AppendAfter is Append relative to the entry with id base instead of the
// current one: entries after base are dropped and e becomes current. It
// fails with ErrEntryNotFound when base has left the buffer.
func (s *Store) AppendAfter(base string, e ImageState) (int, error) {
	s.mu.Lock()
	at := -1
	for i := range s.entries {
		if s.entries[i].ID == base {
			at = i
			break
		}
	}
	if at < 0 {
		s.mu.Unlock()
		return -1, ErrEntryNotFound
	}
	s.entries = append(s.entries[:at+1:at+1], e)
	s.index = len(s.entries) - 1
	idx := s.index
	s.mu.Unlock()
	s.notify()
	return idx, nil
}

// Undo steps back one entry. The root entry cannot be undone.
func (s *Store) Undo() bool {
	s.mu.Lock()
	if s.index <= 0 {
		s.mu.Unlock()
		return false
	}
	s.index--
	s.mu.Unlock()
	s.notify()
	return true
}

// Redo steps forward one entry.
func (s *Store) Redo() bool {
	s.mu.Lock()
	if s.index >= len(s.entries)-1 {
		s.mu.Unlock()
		return false
	}
	s.index++
	s.mu.Unlock()
	s.notify()
	return true
}

// Jump makes entry i current.
func (s *Store) Jump(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.entries) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	s.index = i
	s.mu.Unlock()
	s.notify()
	return nil
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.index = -1
	s.mu.Unlock()
	s.notify()
}

// Current returns the displayed entry.
func (s *Store) Current() (ImageState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, idx := s.currentLocked()
	return cur, idx >= 0
}

// Index returns the current position, -1 when empty.
func (s *Store) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of all entries in order.
func (s *Store) Entries() []ImageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ImageState, len(s.entries))
	copy(out, s.entries)
	return out
}

// At returns entry i.
func (s *Store) At(i int) (ImageState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.entries) {
		return ImageState{}, false
	}
	return s.entries[i], true
}

func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index > 0
}

func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index >= 0 && s.index < len(s.entries)-1
}

// AttachCode records generated markup pointers on entry i.
func (s *Store) AttachCode(i int, url, viewURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.entries) {
		return ErrIndexOutOfRange
	}
	s.entries[i].GeneratedCodeURL = url
	s.entries[i].ViewURL = viewURL
	return nil
}

// Originating returns the prompt and request id that produced entry i.
// Root entries and unknown indexes report ok=false.
func (s *Store) Originating(i int) (prompt, requestID string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i <= 0 || i >= len(s.entries) {
		return "", "", false
	}
	e := s.entries[i]
	if e.RequestID == "" {
		return "", "", false
	}
	return e.Prompt, e.RequestID, true
}

// PromptLog lists the transformations in the buffer, newest first.
func (s *Store) PromptLog() []PromptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PromptEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.RequestID == "" {
			continue
		}
		out = append(out, PromptEntry{Timestamp: e.Timestamp, Prompt: e.Prompt, RequestID: e.RequestID, Index: i})
	}
	return out
}
