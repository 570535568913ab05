package console

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptedBuffer_InsertPromptOnEmpty(t *testing.T) {
	b := NewPromptedBuffer("")
	require.NoError(t, b.InsertPrompt())

	assert.Equal(t, 0, b.PromptPos())
	assert.Equal(t, 0, b.Length())
	assert.True(t, b.HasPrompt())
}

func TestPromptedBuffer_PromptMarker(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.Append("welcome\n", tcell.StyleDefault)
	require.NoError(t, b.InsertPrompt())

	assert.Equal(t, "welcome\n> ", b.Text())
	assert.Equal(t, 10, b.PromptPos())
	assert.Equal(t, "", b.InputText())

	require.NoError(t, b.UserInsert(b.PromptPos(), "ls", tcell.StyleDefault))
	assert.Equal(t, "ls", b.InputText())
}

func TestPromptedBuffer_UserEditsRejectedInHistory(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.Append("old output\n", tcell.StyleDefault)
	require.NoError(t, b.InsertPrompt())
	before := b.Text()

	err := b.UserInsert(3, "x", tcell.StyleDefault)
	assert.ErrorIs(t, err, ErrReadOnlyRegion)

	err = b.UserRemove(0, 2)
	assert.ErrorIs(t, err, ErrReadOnlyRegion)

	assert.Equal(t, before, b.Text())
}

func TestPromptedBuffer_ProgramInsertShiftsPrompt(t *testing.T) {
	b := NewPromptedBuffer("> ")
	require.NoError(t, b.InsertPrompt())
	require.NoError(t, b.UserInsert(2, "abc", tcell.StyleDefault))

	require.NoError(t, b.InsertText(0, "hi\n", tcell.StyleDefault))
	assert.Equal(t, 5, b.PromptPos())
	assert.Equal(t, "abc", b.InputText())
}

func TestPromptedBuffer_InsertBeforeLastPrompt(t *testing.T) {
	b := NewPromptedBuffer("> ")
	require.NoError(t, b.InsertPrompt())
	require.NoError(t, b.UserInsert(2, "typed", tcell.StyleDefault))

	require.NoError(t, b.InsertBeforeLastPrompt("out\n", tcell.StyleDefault))
	assert.Equal(t, "out\n> typed", b.Text())
	assert.Equal(t, 6, b.PromptPos())
	assert.Equal(t, "typed", b.InputText())
}

func TestPromptedBuffer_InsertBeforeLastPromptWithoutPrompt(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.Append("x", tcell.StyleDefault)

	err := b.InsertBeforeLastPrompt("out", tcell.StyleDefault)
	assert.ErrorIs(t, err, ErrNoPrompt)
	assert.ErrorIs(t, err, ErrReadOnlyRegion)
	assert.Equal(t, "x", b.Text())
}

func TestPromptedBuffer_InsertPromptRefusedInProgress(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.SetInProgress(true)

	assert.ErrorIs(t, b.InsertPrompt(), ErrInProgress)
	assert.False(t, b.HasPrompt())
	assert.Equal(t, 0, b.Length())

	b.SetInProgress(false)
	assert.NoError(t, b.InsertPrompt())
}

func TestPromptedBuffer_ClosePrompt(t *testing.T) {
	b := NewPromptedBuffer("> ")
	require.NoError(t, b.InsertPrompt())
	require.NoError(t, b.UserInsert(2, "run", tcell.StyleDefault))

	b.ClosePrompt()
	assert.False(t, b.HasPrompt())
	assert.Equal(t, b.Length(), b.PromptPos())
	assert.ErrorIs(t, b.UserInsert(0, "x", tcell.StyleDefault), ErrReadOnlyRegion)

	b.ClosePrompt()
	assert.Equal(t, "> run", b.Text())
}

func TestPromptedBuffer_ClearCurrentInteractionIdempotent(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.Append("history\n", tcell.StyleDefault)
	require.NoError(t, b.InsertPrompt())
	require.NoError(t, b.UserInsert(b.PromptPos(), "draft", tcell.StyleDefault))

	b.ClearCurrentInteraction()
	first := b.Text()
	b.ClearCurrentInteraction()

	assert.Equal(t, "history\n> ", first)
	assert.Equal(t, first, b.Text())
	assert.Equal(t, b.Length(), b.PromptPos())
}

func TestPromptedBuffer_RemoveAcrossPrompt(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.Append("abcdef", tcell.StyleDefault)
	require.NoError(t, b.InsertPrompt())
	require.NoError(t, b.UserInsert(8, "xy", tcell.StyleDefault))

	require.NoError(t, b.Remove(4, 5))
	assert.Equal(t, "abcdy", b.Text())
	assert.Equal(t, 4, b.PromptPos())
}

func TestPromptedBuffer_Bounds(t *testing.T) {
	b := NewPromptedBuffer("")
	b.Append("abc", tcell.StyleDefault)

	assert.ErrorIs(t, b.InsertText(4, "x", tcell.StyleDefault), ErrBounds)
	assert.ErrorIs(t, b.InsertText(-1, "x", tcell.StyleDefault), ErrBounds)
	assert.ErrorIs(t, b.Remove(2, 2), ErrBounds)

	_, err := b.Slice(2, 1)
	assert.ErrorIs(t, err, ErrBounds)
	s, err := b.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, "bc", s)
}

func TestPromptedBuffer_RunsCoalesceStyles(t *testing.T) {
	red := tcell.StyleDefault.Foreground(tcell.ColorRed)
	b := NewPromptedBuffer("$ ")
	b.Append("one ", tcell.StyleDefault)
	b.Append("two", tcell.StyleDefault)
	b.Append("!", red)
	require.NoError(t, b.InsertPrompt())

	runs := b.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, "one two", runs[0].Text)
	assert.Equal(t, "!", runs[1].Text)
	assert.Equal(t, red, runs[1].Style)
	assert.Equal(t, "$ ", runs[2].Text)
}

func TestPromptedBuffer_MultiByteOffsets(t *testing.T) {
	b := NewPromptedBuffer("λ ")
	require.NoError(t, b.InsertPrompt())
	require.NoError(t, b.UserInsert(2, "日本", tcell.StyleDefault))

	assert.Equal(t, 4, b.Length())
	assert.Equal(t, 2, b.PromptPos())
	assert.Equal(t, "日本", b.InputText())
}

func TestPromptedBuffer_ListenersSeeChanges(t *testing.T) {
	b := NewPromptedBuffer("> ")
	var got []Change
	b.AddListener(func(ch Change) { got = append(got, ch) })

	b.Append("a", tcell.StyleDefault)
	require.NoError(t, b.InsertPrompt())
	b.Reset()

	require.Len(t, got, 3)
	assert.Equal(t, ChangeInsert, got[0].Kind)
	assert.Equal(t, ChangePrompt, got[1].Kind)
	assert.Equal(t, 3, got[1].PromptAfter)
	assert.True(t, got[1].HasPrompt)
	assert.Equal(t, ChangeRemove, got[2].Kind)
	assert.Equal(t, "a> ", got[2].Text)
}

func TestPromptedBuffer_Reset(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.Append("text", tcell.StyleDefault)
	require.NoError(t, b.InsertPrompt())

	b.Reset()
	assert.Equal(t, 0, b.Length())
	assert.Equal(t, 0, b.PromptPos())
	assert.False(t, b.HasPrompt())
}

// Random mixes of operations must keep 0 <= promptPos <= length, leave
// history untouched by user edits and keep a caret in the input region
// there across output inserted before the prompt.
func TestPromptedBuffer_RandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := NewPromptedBuffer("> ")
	caret := NewCaretSynchronizer(b)

	for i := 0; i < 2000; i++ {
		history, _ := b.Slice(0, b.PromptPos())
		length := b.Length()
		offset := rng.Intn(length + 1)
		promptBefore, caretBefore := b.PromptPos(), caret.Caret()

		var err error
		user, output := false, false
		switch rng.Intn(10) {
		case 0:
			err = b.InsertText(offset, "ab", tcell.StyleDefault)
		case 1:
			user = true
			err = b.UserInsert(offset, "u", tcell.StyleDefault)
		case 2:
			user = true
			err = b.UserRemove(offset, min(1, length-offset))
		case 3:
			b.Append("z\n", tcell.StyleDefault)
		case 4:
			output = true
			err = b.InsertBeforeLastPrompt("o", tcell.StyleDefault)
		case 5:
			err = b.InsertPrompt()
		case 6:
			b.ClearCurrentInteraction()
		case 7:
			b.SetInProgress(rng.Intn(2) == 0)
		case 8:
			err = caret.SetCaret(offset)
		case 9:
			err = b.Remove(offset, min(2, length-offset))
		}

		if err != nil && !errors.Is(err, ErrReadOnlyRegion) && !errors.Is(err, ErrInProgress) {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
		promptPos := b.PromptPos()
		if promptPos < 0 || promptPos > b.Length() {
			t.Fatalf("step %d: prompt %d outside [0,%d]", i, promptPos, b.Length())
		}
		if c := caret.Caret(); c < 0 || c > b.Length() {
			t.Fatalf("step %d: caret %d outside [0,%d]", i, c, b.Length())
		}
		if b.HasPrompt() && b.markerPos > promptPos {
			t.Fatalf("step %d: marker %d after prompt %d", i, b.markerPos, promptPos)
		}
		if output && err == nil && caretBefore >= promptBefore && caret.Caret() < promptPos {
			t.Fatalf("step %d: output moved caret %d out of input (prompt %d)", i, caret.Caret(), promptPos)
		}
		if user {
			after, _ := b.Slice(0, len([]rune(history)))
			if after != history {
				t.Fatalf("step %d: user edit changed history %q -> %q", i, history, after)
			}
		}
	}
}

func TestPromptedBuffer_InsertBeforeDamagedMarker(t *testing.T) {
	b := NewPromptedBuffer("> ")
	b.Append("out\n", tcell.StyleDefault)
	require.NoError(t, b.InsertPrompt())

	// Cut the first rune of the marker.
	require.NoError(t, b.Remove(4, 1))
	require.NoError(t, b.InsertBeforeLastPrompt("x\n", tcell.StyleDefault))
	assert.Equal(t, "out\nx\n ", b.Text())
	assert.Equal(t, 7, b.PromptPos())

	// Cut across history and what is left of the marker.
	require.NoError(t, b.Remove(5, 2))
	require.NoError(t, b.InsertBeforeLastPrompt("y", tcell.StyleDefault))
	assert.Equal(t, "out\nxy", b.Text())
	assert.Equal(t, 6, b.PromptPos())
}

func TestPromptedBuffer_EmptyMarkerKeepsOutputAboveInput(t *testing.T) {
	b := NewPromptedBuffer("")
	require.NoError(t, b.InsertPrompt())
	require.NoError(t, b.UserInsert(0, "typed", tcell.StyleDefault))
	require.NoError(t, b.InsertBeforeLastPrompt("out\n", tcell.StyleDefault))
	require.NoError(t, b.InsertText(0, "first\n", tcell.StyleDefault))
	require.NoError(t, b.InsertBeforeLastPrompt("last\n", tcell.StyleDefault))

	assert.Equal(t, "first\nout\nlast\ntyped", b.Text())
	assert.Equal(t, "typed", b.InputText())
}

func TestPromptedBuffer_ClearCurrentInteractionWithConcurrentOutput(t *testing.T) {
	b := NewPromptedBuffer("> ")
	require.NoError(t, b.InsertPrompt())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = b.InsertBeforeLastPrompt("o\n", tcell.StyleDefault)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = b.UserInsert(b.Length(), "x", tcell.StyleDefault)
			b.ClearCurrentInteraction()
		}
	}()
	wg.Wait()

	assert.Equal(t, strings.Repeat("o\n", 500)+"> ", b.Text())
	assert.Equal(t, "", b.InputText())
}
