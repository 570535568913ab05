package console

import (
	"fmt"
	"sync"
)

// CaretSynchronizer keeps a caret offset for one buffer consistent across
// every mutation of that buffer, and implements prompt-aware navigation.
type CaretSynchronizer struct {
	mu     sync.Mutex
	buffer *PromptedBuffer
	caret  int
}

// NewCaretSynchronizer attaches a caret to buffer, starting at its end.
func NewCaretSynchronizer(buffer *PromptedBuffer) *CaretSynchronizer {
	cs := &CaretSynchronizer{buffer: buffer, caret: buffer.Length()}
	buffer.AddListener(cs.onChange)
	return cs
}

// Caret returns the current caret offset.
func (cs *CaretSynchronizer) Caret() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.caret
}

// SetCaret moves the caret. Out-of-range offsets are clamped and reported.
func (cs *CaretSynchronizer) SetCaret(offset int) error {
	length := cs.buffer.Length()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if offset < 0 || offset > length {
		cs.caret = clamp(offset, 0, length)
		return fmt.Errorf("caret %d of %d: %w", offset, length, ErrBounds)
	}
	cs.caret = offset
	return nil
}

func (cs *CaretSynchronizer) onChange(ch Change) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if ch.Kind == ChangeRemove {
		cs.caret = clamp(cs.caret, 0, ch.Length)
		return
	}

	promptPos := ch.PromptAfter
	prevPromptPos := promptPos
	if ch.Offset < promptPos {
		prevPromptPos = promptPos - ch.Count
	}

	switch {
	case !ch.HasPrompt:
		cs.caret = ch.Length
	case promptPos <= ch.Length:
		if cs.caret < prevPromptPos {
			cs.caret = promptPos
		} else {
			cs.caret += promptPos - prevPromptPos
		}
	}
	// A prompt past the end means a reset is underway; leave the caret alone.
}

// MoveLeft moves one rune left. At the prompt it wraps to the end of the
// buffer, and from inside history it snaps back to the prompt.
func (cs *CaretSynchronizer) MoveLeft() {
	promptPos, length, hasPrompt := cs.bounds()
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch {
	case !hasPrompt:
		cs.caret = clamp(cs.caret-1, 0, length)
	case cs.caret < promptPos:
		cs.caret = promptPos
	case cs.caret == promptPos:
		cs.caret = length
	default:
		cs.caret--
	}
}

// MoveRight moves one rune right. At the end it wraps to the prompt, and
// from inside history it snaps to the end.
func (cs *CaretSynchronizer) MoveRight() {
	promptPos, length, hasPrompt := cs.bounds()
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch {
	case !hasPrompt:
		cs.caret = clamp(cs.caret+1, 0, length)
	case cs.caret < promptPos:
		cs.caret = length
	case cs.caret >= length:
		cs.caret = promptPos
	default:
		cs.caret++
	}
}

// MoveHome moves to the start of the input region.
func (cs *CaretSynchronizer) MoveHome() {
	promptPos, _, hasPrompt := cs.bounds()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if hasPrompt {
		cs.caret = promptPos
	} else {
		cs.caret = 0
	}
}

// MoveEnd moves to the end of the buffer.
func (cs *CaretSynchronizer) MoveEnd() {
	_, length, _ := cs.bounds()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.caret = length
}

// InHistory reports whether the caret sits in the read-only region.
func (cs *CaretSynchronizer) InHistory() bool {
	promptPos, _, _ := cs.bounds()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.caret < promptPos
}

func (cs *CaretSynchronizer) bounds() (promptPos, length int, hasPrompt bool) {
	b := cs.buffer
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.promptPos, len(b.text), b.hasPrompt
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
