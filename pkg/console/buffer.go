package console

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Style tags a run of text. It is carried for the view and never consulted
// by the buffer logic.
type Style = tcell.Style

// ChangeKind identifies the kind of buffer mutation.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeRemove
	ChangePrompt
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	case ChangePrompt:
		return "prompt"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change describes a single mutation. PromptBefore and PromptAfter are the
// prompt positions around the mutation and Length is the buffer length after
// it.
type Change struct {
	Kind         ChangeKind
	Offset       int
	Text         string
	Count        int // runes inserted or removed
	Style        Style
	PromptBefore int
	PromptAfter  int
	HasPrompt    bool
	Length       int
}

// Run is a maximal span of text sharing one style.
type Run struct {
	Text  string
	Style Style
}

// PromptedBuffer is an append-oriented text buffer split by a prompt
// position into read-only history and an editable input region. Offsets
// are counted in runes.
type PromptedBuffer struct {
	mu          sync.RWMutex
	text        []rune
	styles      []Style
	prompt      []rune
	promptStyle Style
	promptPos   int
	markerPos   int // start of the open prompt marker
	hasPrompt   bool
	inProgress  bool
	listeners   []func(Change)
}

// NewPromptedBuffer creates an empty buffer whose prompt marker is prompt.
// The marker may be empty.
func NewPromptedBuffer(prompt string) *PromptedBuffer {
	return &PromptedBuffer{
		prompt:      []rune(prompt),
		promptStyle: tcell.StyleDefault.Bold(true),
	}
}

// AddListener registers fn to receive every change. Listeners run on the
// mutating goroutine after the buffer lock is released.
func (b *PromptedBuffer) AddListener(fn func(Change)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *PromptedBuffer) notify(ch Change) {
	b.mu.RLock()
	listeners := make([]func(Change), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(ch)
	}
}

// Length returns the number of runes in the buffer.
func (b *PromptedBuffer) Length() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

// PromptPos returns the start of the editable region.
func (b *PromptedBuffer) PromptPos() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.promptPos
}

// HasPrompt reports whether a prompt is currently open.
func (b *PromptedBuffer) HasPrompt() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hasPrompt
}

// InProgress reports whether a computation is running.
func (b *PromptedBuffer) InProgress() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.inProgress
}

// Prompt returns the prompt marker.
func (b *PromptedBuffer) Prompt() string {
	return string(b.prompt)
}

// Text returns the whole buffer.
func (b *PromptedBuffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.text)
}

// Slice returns the text in [from, to).
func (b *PromptedBuffer) Slice(from, to int) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if from < 0 || to > len(b.text) || from > to {
		return "", fmt.Errorf("slice [%d,%d) of %d: %w", from, to, len(b.text), ErrBounds)
	}
	return string(b.text[from:to]), nil
}

// InputText returns the editable text after the prompt.
func (b *PromptedBuffer) InputText() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.text[b.promptPos:])
}

// Runs returns the buffer as coalesced style runs.
func (b *PromptedBuffer) Runs() []Run {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var runs []Run
	start := 0
	for i := 1; i <= len(b.text); i++ {
		if i == len(b.text) || b.styles[i] != b.styles[start] {
			runs = append(runs, Run{Text: string(b.text[start:i]), Style: b.styles[start]})
			start = i
		}
	}
	return runs
}

// insertMode selects how insert validates and positions text.
type insertMode int

const (
	insertProgram insertMode = iota
	insertUser
	insertEnd
	insertBeforePrompt
)

// InsertText inserts text at offset. Inserting before the prompt shifts the
// prompt right.
func (b *PromptedBuffer) InsertText(offset int, text string, style Style) error {
	return b.insert(insertProgram, offset, []rune(text), style)
}

// UserInsert inserts text on behalf of the user. History is read-only.
func (b *PromptedBuffer) UserInsert(offset int, text string, style Style) error {
	return b.insert(insertUser, offset, []rune(text), style)
}

// Append inserts text at the end of the buffer.
func (b *PromptedBuffer) Append(text string, style Style) {
	_ = b.insert(insertEnd, 0, []rune(text), style)
}

// InsertBeforeLastPrompt inserts text in front of the open prompt marker so
// output lands above a line that is still being edited. The prompt moves by
// the length of text.
func (b *PromptedBuffer) InsertBeforeLastPrompt(text string, style Style) error {
	return b.insert(insertBeforePrompt, 0, []rune(text), style)
}

func (b *PromptedBuffer) insert(mode insertMode, offset int, runes []rune, style Style) error {
	b.mu.Lock()
	switch mode {
	case insertUser:
		if offset < b.promptPos {
			promptPos := b.promptPos
			b.mu.Unlock()
			return fmt.Errorf("insert at %d before prompt %d: %w", offset, promptPos, ErrReadOnlyRegion)
		}
	case insertEnd:
		offset = len(b.text)
	case insertBeforePrompt:
		if !b.hasPrompt {
			b.mu.Unlock()
			return ErrNoPrompt
		}
		offset = b.markerPos
	}
	if offset < 0 || offset > len(b.text) {
		n := len(b.text)
		b.mu.Unlock()
		return fmt.Errorf("insert at %d of %d: %w", offset, n, ErrBounds)
	}
	if len(runes) == 0 {
		b.mu.Unlock()
		return nil
	}

	before := b.promptPos
	b.text = append(b.text[:offset], append(append([]rune{}, runes...), b.text[offset:]...)...)
	styles := make([]Style, len(runes))
	for i := range styles {
		styles[i] = style
	}
	b.styles = append(b.styles[:offset], append(styles, b.styles[offset:]...)...)
	if mode == insertBeforePrompt || offset < b.promptPos {
		b.promptPos += len(runes)
	}
	if mode == insertBeforePrompt || offset < b.markerPos || (offset == b.markerPos && offset < before) {
		b.markerPos += len(runes)
	}

	ch := Change{
		Kind:         ChangeInsert,
		Offset:       offset,
		Text:         string(runes),
		Count:        len(runes),
		Style:        style,
		PromptBefore: before,
		PromptAfter:  b.promptPos,
		HasPrompt:    b.hasPrompt,
		Length:       len(b.text),
	}
	b.mu.Unlock()

	b.notify(ch)
	return nil
}

// Remove deletes n runes starting at offset. Removing history pulls the
// prompt back by the overlap.
func (b *PromptedBuffer) Remove(offset, n int) error {
	return b.remove(offset, n, false)
}

// UserRemove deletes on behalf of the user. History is read-only.
func (b *PromptedBuffer) UserRemove(offset, n int) error {
	return b.remove(offset, n, true)
}

func (b *PromptedBuffer) remove(offset, n int, user bool) error {
	b.mu.Lock()
	ch, err := b.removeLocked(offset, n, user)
	b.mu.Unlock()

	if err != nil || ch.Count == 0 {
		return err
	}
	b.notify(ch)
	return nil
}

// removeLocked deletes n runes at offset. The caller holds the write lock
// and notifies listeners with the returned change once it is released.
func (b *PromptedBuffer) removeLocked(offset, n int, user bool) (Change, error) {
	if user && offset < b.promptPos {
		return Change{}, fmt.Errorf("remove at %d before prompt %d: %w", offset, b.promptPos, ErrReadOnlyRegion)
	}
	if offset < 0 || n < 0 || offset+n > len(b.text) {
		return Change{}, fmt.Errorf("remove [%d,%d) of %d: %w", offset, offset+n, len(b.text), ErrBounds)
	}
	if n == 0 {
		return Change{}, nil
	}

	before := b.promptPos
	removed := string(b.text[offset : offset+n])
	b.text = append(b.text[:offset], b.text[offset+n:]...)
	b.styles = append(b.styles[:offset], b.styles[offset+n:]...)
	if offset < b.promptPos {
		b.promptPos -= min(n, b.promptPos-offset)
	}
	// A marker cut into by the removal starts where the cut began.
	if offset < b.markerPos {
		b.markerPos -= min(n, b.markerPos-offset)
	}

	return Change{
		Kind:         ChangeRemove,
		Offset:       offset,
		Text:         removed,
		Count:        n,
		PromptBefore: before,
		PromptAfter:  b.promptPos,
		HasPrompt:    b.hasPrompt,
		Length:       len(b.text),
	}, nil
}

// InsertPrompt appends the prompt marker and opens a new input region at
// the end of the buffer.
func (b *PromptedBuffer) InsertPrompt() error {
	b.mu.Lock()
	if b.inProgress {
		b.mu.Unlock()
		return ErrInProgress
	}

	before := b.promptPos
	offset := len(b.text)
	b.text = append(b.text, b.prompt...)
	for range b.prompt {
		b.styles = append(b.styles, b.promptStyle)
	}
	b.markerPos = offset
	b.promptPos = len(b.text)
	b.hasPrompt = true

	ch := Change{
		Kind:         ChangePrompt,
		Offset:       offset,
		Text:         string(b.prompt),
		Count:        len(b.prompt),
		Style:        b.promptStyle,
		PromptBefore: before,
		PromptAfter:  b.promptPos,
		HasPrompt:    true,
		Length:       len(b.text),
	}
	b.mu.Unlock()

	b.notify(ch)
	return nil
}

// ClosePrompt commits the whole buffer to history and closes the prompt.
// It is used when a submitted line starts running.
func (b *PromptedBuffer) ClosePrompt() {
	b.mu.Lock()
	if !b.hasPrompt {
		b.mu.Unlock()
		return
	}
	before := b.promptPos
	b.promptPos = len(b.text)
	b.hasPrompt = false
	ch := Change{
		Kind:         ChangePrompt,
		Offset:       len(b.text),
		PromptBefore: before,
		PromptAfter:  b.promptPos,
		Length:       len(b.text),
	}
	b.mu.Unlock()

	b.notify(ch)
}

// ClearCurrentInteraction drops everything typed after the prompt.
func (b *PromptedBuffer) ClearCurrentInteraction() {
	b.mu.Lock()
	// The range is derived from the buffer under the same lock, so it is
	// always in bounds.
	ch, _ := b.removeLocked(b.promptPos, len(b.text)-b.promptPos, false)
	b.mu.Unlock()

	if ch.Count > 0 {
		b.notify(ch)
	}
}

// SetInProgress marks a computation as running; prompts are refused until
// it is cleared.
func (b *PromptedBuffer) SetInProgress(inProgress bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inProgress = inProgress
}

// Reset empties the buffer and closes the prompt.
func (b *PromptedBuffer) Reset() {
	b.mu.Lock()
	before := b.promptPos
	removed := string(b.text)
	count := len(b.text)
	b.text = b.text[:0]
	b.styles = b.styles[:0]
	b.promptPos = 0
	b.markerPos = 0
	b.hasPrompt = false
	b.mu.Unlock()

	b.notify(Change{
		Kind:         ChangeRemove,
		Text:         removed,
		Count:        count,
		PromptBefore: before,
	})
}
