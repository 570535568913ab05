package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/alantheprice/consolepane/pkg/logging"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type screenSession struct {
	t      *testing.T
	screen tcell.SimulationScreen
	done   chan error
}

func startSession(t *testing.T) *screenSession {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(100, 12)

	ctx, cancel := context.WithCancel(context.Background())
	ss := &screenSession{t: t, screen: screen, done: make(chan error, 1)}
	go func() { ss.done <- runSession(ctx, screen, console.Options{Prompt: "> "}, logging.Discard()) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-ss.done:
		case <-time.After(5 * time.Second):
			t.Error("session did not stop")
		}
		screen.Fini()
	})
	return ss
}

func (ss *screenSession) typeLine(text string) {
	for _, r := range text {
		ss.post(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	ss.post(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
}

func (ss *screenSession) post(ev tcell.Event) {
	require.Eventually(ss.t, func() bool { return ss.screen.PostEvent(ev) == nil },
		time.Second, 5*time.Millisecond)
}

func (ss *screenSession) rows() []string {
	_, height := ss.screen.Size()
	rows := make([]string, height)
	for y := range rows {
		rows[y] = rowText(ss.screen, y)
	}
	return rows
}

func (ss *screenSession) waitFor(match func(rows []string) bool, msg string) {
	ss.t.Helper()
	require.Eventually(ss.t, func() bool { return match(ss.rows()) }, 3*time.Second, 10*time.Millisecond, msg)
}

func hasRow(want string) func([]string) bool {
	return func(rows []string) bool {
		for _, r := range rows {
			if r == want {
				return true
			}
		}
		return false
	}
}

func statusHas(want string) func([]string) bool {
	return func(rows []string) bool {
		return strings.Contains(rows[len(rows)-1], want)
	}
}

func TestRunSessionInlineCommand(t *testing.T) {
	ss := startSession(t)
	ss.waitFor(hasRow(strings.TrimSuffix(welcome, "\n")), "welcome shown")

	ss.typeLine("echo hi")
	ss.waitFor(hasRow("hi"), "command output shown")
	ss.waitFor(hasRow("> echo hi"), "command echoed at prompt")

	ss.typeLine("read name?")
	ss.waitFor(statusHas("reading (inline)"), "inline read pending")
	ss.typeLine("bob")
	ss.waitFor(hasRow("read: bob"), "read answered inline")
	ss.waitFor(statusHas("ready"), "back at the prompt")
}

func TestRunSessionPopupWhenHidden(t *testing.T) {
	ss := startSession(t)
	ss.waitFor(statusHas("pane shown"), "started")

	ss.post(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone))
	ss.waitFor(statusHas("pane hidden"), "pane hidden")

	ss.typeLine("read")
	ss.waitFor(statusHas("reading (popup)"), "popup read pending")
	ss.waitFor(func(rows []string) bool {
		for _, r := range rows {
			if strings.Contains(r, "input requested") {
				return true
			}
		}
		return false
	}, "popup drawn")

	ss.typeLine("x")
	ss.waitFor(hasRow("read: x"), "popup answer delivered")
	ss.waitFor(statusHas("ready"), "popup closed")
}

func TestRunSessionQuitsOnCtrlC(t *testing.T) {
	ss := startSession(t)
	ss.waitFor(statusHas("ready"), "started")

	ss.post(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone))
	select {
	case err := <-ss.done:
		assert.NoError(t, err)
		ss.done <- err
	case <-time.After(3 * time.Second):
		t.Fatal("Ctrl+C did not end the session")
	}
}
