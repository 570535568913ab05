package console

import (
	"strings"
	"sync"
)

// DefaultHistorySize bounds History when no size is given.
const DefaultHistorySize = 500

// History keeps submitted lines in memory and tracks where Up/Down
// navigation currently points.
type History struct {
	mutex   sync.RWMutex
	entries []string
	maxSize int

	cursor   int    // len(entries) when not browsing
	saved    string // line being edited when browsing started
	browsing bool
}

// NewHistory creates an empty history holding at most maxSize entries.
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		entries: make([]string, 0, min(maxSize, 64)),
		maxSize: maxSize,
	}
}

// Add records a submitted line and ends any browsing. Blank lines are
// skipped and an existing duplicate moves to the end.
func (h *History) Add(entry string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	defer h.resetLocked()

	entry = strings.TrimRight(entry, "\r\n")
	if strings.TrimSpace(entry) == "" {
		return
	}

	for i, existing := range h.entries {
		if existing == entry {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, entry)

	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Previous steps to an older entry. current is the line being edited; it is
// saved the first time browsing starts. ok is false at the oldest entry.
func (h *History) Previous(current string) (string, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.entries) == 0 || h.cursor == 0 && h.browsing {
		return "", false
	}
	if !h.browsing {
		h.saved = current
		h.browsing = true
		h.cursor = len(h.entries)
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Next steps to a newer entry, finally restoring the saved line. ok is
// false when not browsing.
func (h *History) Next() (string, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.browsing {
		return "", false
	}
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], true
	}
	saved := h.saved
	h.resetLocked()
	return saved, true
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	result := make([]string, len(h.entries))
	copy(result, h.entries)
	return result
}

// Size returns the number of entries.
func (h *History) Size() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.entries)
}

// Reset stops browsing without touching the entries.
func (h *History) Reset() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.resetLocked()
}

func (h *History) resetLocked() {
	h.browsing = false
	h.saved = ""
	h.cursor = len(h.entries)
}
