package console

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory_AddSkipsBlankAndDedups(t *testing.T) {
	h := NewHistory(0)
	h.Add("ls")
	h.Add("   ")
	h.Add("pwd\n")
	h.Add("ls")

	assert.Equal(t, []string{"pwd", "ls"}, h.Entries())
}

func TestHistory_Bounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(fmt.Sprintf("cmd%d", i))
	}
	assert.Equal(t, []string{"cmd2", "cmd3", "cmd4"}, h.Entries())
	assert.Equal(t, 3, h.Size())
}

func TestHistory_BrowseRestoresDraft(t *testing.T) {
	h := NewHistory(10)
	h.Add("first")
	h.Add("second")

	line, ok := h.Previous("draft")
	assert.True(t, ok)
	assert.Equal(t, "second", line)

	line, ok = h.Previous("ignored")
	assert.True(t, ok)
	assert.Equal(t, "first", line)

	_, ok = h.Previous("ignored")
	assert.False(t, ok, "already at the oldest entry")

	line, ok = h.Next()
	assert.True(t, ok)
	assert.Equal(t, "second", line)

	line, ok = h.Next()
	assert.True(t, ok)
	assert.Equal(t, "draft", line)

	_, ok = h.Next()
	assert.False(t, ok)
}

func TestHistory_EmptyBrowse(t *testing.T) {
	h := NewHistory(10)
	_, ok := h.Previous("x")
	assert.False(t, ok)
	_, ok = h.Next()
	assert.False(t, ok)
}

func TestHistory_ResetStopsBrowsing(t *testing.T) {
	h := NewHistory(10)
	h.Add("a")
	h.Add("b")
	h.Previous("")
	h.Reset()

	line, _ := h.Previous("new")
	assert.Equal(t, "b", line)
}
