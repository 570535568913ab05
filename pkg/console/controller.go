package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alantheprice/consolepane/pkg/events"
	"github.com/alantheprice/consolepane/pkg/logging"
	"github.com/gdamore/tcell/v2"
)

// InputMode selects how a pending read collects its line.
type InputMode int

const (
	// ModeAuto picks inline when the host is visible, popup when it is
	// hidden and silent when there is no host at all.
	ModeAuto InputMode = iota
	ModeInline
	ModePopup
	ModeSilent
)

var inputModeNames = map[InputMode]string{
	ModeAuto:   "auto",
	ModeInline: "inline",
	ModePopup:  "popup",
	ModeSilent: "silent",
}

func (m InputMode) String() string {
	if name, ok := inputModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("InputMode(%d)", int(m))
}

// ParseInputMode resolves a mode by name. The empty string is ModeAuto.
func ParseInputMode(s string) (InputMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeAuto, nil
	}
	for mode, name := range inputModeNames {
		if name == s {
			return mode, nil
		}
	}
	return ModeAuto, fmt.Errorf("unknown input mode %q", s)
}

// WaitState tells whether the console is blocked on a read.
type WaitState int

const (
	NotWaiting WaitState = iota
	WaitingForInput
)

func (s WaitState) String() string {
	if s == WaitingForInput {
		return "waiting"
	}
	return "not-waiting"
}

// Host is the view embedding the console. Visible may be called from any
// goroutine.
type Host interface {
	Visible() bool
}

// HostFunc adapts a function to Host.
type HostFunc func() bool

// Visible implements Host.
func (f HostFunc) Visible() bool { return f() }

// Options configures a Controller.
type Options struct {
	Prompt      string
	Terminator  string
	Keys        KeyBindingConfig // zero value selects DefaultKeyBindings
	Mode        InputMode
	Host        Host
	Bus         *events.EventBus
	Logger      *logging.Logger
	HistorySize int

	// Strict turns an illegal bridge transition into a panic instead of a
	// logged error.
	Strict bool

	// OnSubmit, when set, receives each line entered while nothing is
	// reading. It runs on its own goroutine inside an interaction.
	OnSubmit func(line string)
}

var (
	inputStyle  = tcell.StyleDefault
	outputStyle = tcell.StyleDefault
	errorStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// Controller ties a PromptedBuffer, its caret and an InputBridge together.
// Buffer and caret mutations all happen on the controller's dispatcher;
// the public methods are safe to call from any goroutine.
type Controller struct {
	buffer     *PromptedBuffer
	caret      *CaretSynchronizer
	bridge     *InputBridge
	history    *History
	dispatcher *Dispatcher
	keys       KeyBindingConfig
	bus        *events.EventBus
	log        *logging.Logger
	host       Host
	fixedMode  InputMode
	strict     bool
	onSubmit   func(string)
	closeOnce  sync.Once

	// Dispatcher-owned.
	state  WaitState
	mode   InputMode
	active *InputRequest
	popup  *Popup
}

// NewController builds a controller and shows the first prompt.
func NewController(opts Options) (*Controller, error) {
	keys := opts.Keys
	if keys.Len() == 0 {
		keys = DefaultKeyBindings()
	} else {
		keys = keys.Clone()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	c := &Controller{
		buffer:     NewPromptedBuffer(opts.Prompt),
		bridge:     NewInputBridge(opts.Terminator),
		history:    NewHistory(opts.HistorySize),
		dispatcher: NewDispatcher(),
		keys:       keys,
		bus:        opts.Bus,
		log:        log,
		host:       opts.Host,
		fixedMode:  opts.Mode,
		strict:     opts.Strict,
		onSubmit:   opts.OnSubmit,
	}
	c.caret = NewCaretSynchronizer(c.buffer)
	c.buffer.AddListener(c.publishChange)

	if err := c.dispatcher.Start(); err != nil {
		return nil, err
	}
	if err := c.call(func() { _ = c.buffer.InsertPrompt() }); err != nil {
		return nil, err
	}
	return c, nil
}

// Buffer exposes the underlying buffer for rendering. Mutate it only
// through the controller.
func (c *Controller) Buffer() *PromptedBuffer { return c.buffer }

// History returns the submitted-line history.
func (c *Controller) History() *History { return c.history }

// Keys returns a copy of the active key bindings.
func (c *Controller) Keys() KeyBindingConfig { return c.keys.Clone() }

// Close cancels any pending read and stops the dispatcher.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.bridge.Cancel()
		err = c.dispatcher.Stop()
	})
	return err
}

func (c *Controller) call(fn func()) error {
	return c.dispatcher.InvokeAndWait(context.Background(), fn)
}

func (c *Controller) publishChange(ch Change) {
	switch ch.Kind {
	case ChangeInsert:
		c.bus.Publish(events.EventTypeBufferAppended, events.BufferAppendedEvent(ch.Offset, ch.Text, ch.Style))
	case ChangeRemove:
		c.bus.Publish(events.EventTypeBufferRemoved, events.BufferRemovedEvent(ch.Offset, ch.Count))
	case ChangePrompt:
		if ch.Count > 0 {
			c.bus.Publish(events.EventTypeBufferAppended, events.BufferAppendedEvent(ch.Offset, ch.Text, ch.Style))
		}
		if ch.HasPrompt {
			c.bus.Publish(events.EventTypePromptInserted, events.PromptInsertedEvent(ch.PromptAfter))
		}
	}
}

func (c *Controller) illegal(err error) {
	c.log.Errorf("input bridge: %v", err)
	c.bus.Publish(events.EventTypeError, events.ErrorEvent("illegal input bridge transition", err))
	if c.strict {
		panic(err)
	}
}

// RequestInput blocks the calling goroutine until a line is entered and
// returns it with the terminator. Depending on the mode the line comes from
// the inline prompt, a popup or SupplyLine. Canceled reads return
// ErrInputCanceled.
func (c *Controller) RequestInput(ctx context.Context) (string, error) {
	req, err := c.bridge.Begin()
	if err != nil {
		c.illegal(err)
		return "", err
	}

	mode := c.selectMode()
	if err := c.dispatcher.Invoke(func() { c.beginWaiting(req, mode) }); err != nil {
		req.Cancel()
	}

	line, err := req.Wait(ctx)
	_ = c.dispatcher.Invoke(func() { c.resolve(req, err != nil) })
	if err != nil {
		c.log.Debugf("input request %d: %v", req.ID(), err)
		return "", err
	}
	return line, nil
}

func (c *Controller) selectMode() InputMode {
	if c.fixedMode != ModeAuto {
		return c.fixedMode
	}
	if c.host == nil {
		return ModeSilent
	}
	if c.host.Visible() {
		return ModeInline
	}
	return ModePopup
}

func (c *Controller) beginWaiting(req *InputRequest, mode InputMode) {
	// Resolved before the UI got to it; nothing to show.
	if !c.bridge.isPending(req) {
		return
	}
	c.active = req
	c.state = WaitingForInput
	c.mode = mode

	switch mode {
	case ModeInline:
		if !c.buffer.HasPrompt() {
			inProgress := c.buffer.InProgress()
			c.buffer.SetInProgress(false)
			_ = c.buffer.InsertPrompt()
			c.buffer.SetInProgress(inProgress)
		}
		c.caret.MoveEnd()
	case ModePopup:
		c.popup = newPopup(req, func(canceled bool) { c.resolve(req, canceled) })
	}

	c.log.Debugf("input request %d waiting (%s)", req.ID(), mode)
	c.bus.Publish(events.EventTypeInputRequested, events.InputRequestedEvent(req.ID(), mode.String()))
}

// resolve tears down the UI for req. It runs once per request no matter
// how many paths report the outcome.
func (c *Controller) resolve(req *InputRequest, canceled bool) {
	if c.active != req {
		return
	}
	// The UI is going away, so the reader must not stay parked on it.
	if req.Cancel() {
		canceled = true
	}
	c.active = nil
	c.state = NotWaiting

	if p := c.popup; p != nil {
		c.popup = nil
		if !p.closed {
			p.closed = true
			req.Cancel()
		}
	}
	if canceled && c.mode == ModeInline && c.buffer.InProgress() {
		c.buffer.ClosePrompt()
	}

	c.log.Debugf("input request %d resolved (canceled=%t)", req.ID(), canceled)
	c.bus.Publish(events.EventTypeInputResolved, events.InputResolvedEvent(req.ID(), canceled))
}

// SupplyLine hands text to the pending read directly, bypassing the UI.
func (c *Controller) SupplyLine(text string) error {
	if err := c.bridge.SupplyLine(text); err != nil {
		c.illegal(err)
		return err
	}
	return nil
}

// CancelPendingInput aborts the pending read, if any.
func (c *Controller) CancelPendingInput() bool {
	return c.bridge.Cancel()
}

// WaitUntilReady blocks until a read is pending.
func (c *Controller) WaitUntilReady(ctx context.Context) error {
	return c.bridge.WaitUntilReady(ctx)
}

// HandleKey translates a terminal key event and performs it.
func (c *Controller) HandleKey(ev *tcell.EventKey) error {
	if action, ok := c.keys.Lookup(ev); ok {
		return c.Perform(action)
	}
	if ev.Key() == tcell.KeyRune {
		return c.TypeText(string(ev.Rune()))
	}
	return nil
}

// Perform runs an editing action. Keystrokes aimed at read-only text are
// ignored rather than reported.
func (c *Controller) Perform(action Action) error {
	var err error
	if callErr := c.call(func() { err = c.perform(action) }); callErr != nil {
		return callErr
	}
	return c.swallow(action.String(), err)
}

// TypeText inserts text at the caret as if it had been typed.
func (c *Controller) TypeText(text string) error {
	var err error
	if callErr := c.call(func() {
		if c.popup != nil {
			err = c.popup.typeText(text)
			return
		}
		err = c.typeText(text)
	}); callErr != nil {
		return callErr
	}
	return c.swallow("type", err)
}

func (c *Controller) swallow(what string, err error) error {
	if err != nil && recoverable(err) {
		c.log.Debugf("ignored %s: %v", what, err)
		return nil
	}
	return err
}

func (c *Controller) perform(action Action) error {
	if c.popup != nil {
		return c.popup.perform(action)
	}

	switch action {
	case ActionSubmit:
		switch {
		case c.state == WaitingForInput && c.mode == ModeInline:
			return c.submitInline()
		case c.state == WaitingForInput:
			return c.typeText("\n")
		case c.onSubmit != nil && c.buffer.HasPrompt() && !c.buffer.InProgress():
			c.submitInteraction()
		default:
			return c.typeText("\n")
		}
	case ActionNewline:
		return c.typeText("\n")
	case ActionTab:
		return c.typeText("\t")
	case ActionLeft:
		c.caret.MoveLeft()
	case ActionRight:
		c.caret.MoveRight()
	case ActionHome:
		c.caret.MoveHome()
	case ActionEnd:
		c.caret.MoveEnd()
	case ActionHistoryPrev:
		return c.recall(c.history.Previous(c.buffer.InputText()))
	case ActionHistoryNext:
		return c.recall(c.history.Next())
	case ActionBackspace:
		return c.backspace()
	case ActionDelete:
		return c.deleteForward()
	case ActionClearInput:
		c.buffer.ClearCurrentInteraction()
		c.history.Reset()
	case ActionCancelInput:
		if c.active != nil {
			c.active.Cancel()
		}
	}
	return nil
}

func (c *Controller) typeText(text string) error {
	if !c.buffer.HasPrompt() {
		return ErrNoPrompt
	}
	if c.caret.InHistory() {
		c.caret.MoveEnd()
	}
	at := c.caret.Caret()
	if err := c.buffer.UserInsert(at, text, inputStyle); err != nil {
		return err
	}
	c.history.Reset()
	return c.caret.SetCaret(at + len([]rune(text)))
}

func (c *Controller) backspace() error {
	if !c.buffer.HasPrompt() {
		return ErrNoPrompt
	}
	at := c.caret.Caret()
	if at <= c.buffer.PromptPos() {
		return nil
	}
	if err := c.buffer.UserRemove(at-1, 1); err != nil {
		return err
	}
	return c.caret.SetCaret(at - 1)
}

func (c *Controller) deleteForward() error {
	if !c.buffer.HasPrompt() {
		return ErrNoPrompt
	}
	at := c.caret.Caret()
	if at >= c.buffer.Length() {
		return nil
	}
	return c.buffer.UserRemove(at, 1)
}

func (c *Controller) recall(line string, ok bool) error {
	if !ok {
		return nil
	}
	if !c.buffer.HasPrompt() {
		return ErrNoPrompt
	}
	c.buffer.ClearCurrentInteraction()
	if err := c.buffer.UserInsert(c.buffer.PromptPos(), line, inputStyle); err != nil {
		return err
	}
	c.caret.MoveEnd()
	return nil
}

// submitInline completes the inline read with the typed line and reopens
// the prompt unless a computation is still running.
func (c *Controller) submitInline() error {
	req := c.active
	line := c.buffer.InputText()
	if err := req.Supply(line); err != nil {
		if errors.Is(err, ErrIllegalBridgeState) {
			c.log.Warnf("inline submit for request %d: %v", req.ID(), err)
			c.resolve(req, true)
			return nil
		}
		return err
	}
	c.history.Add(line)
	c.resolve(req, false)
	c.buffer.Append("\n", inputStyle)
	c.reopenPrompt()
	return nil
}

func (c *Controller) submitInteraction() {
	line := c.buffer.InputText()
	c.history.Add(line)
	c.buffer.Append("\n", inputStyle)
	c.buffer.ClosePrompt()
	c.buffer.SetInProgress(true)
	go func() {
		defer func() { _ = c.FinishInteraction() }()
		c.onSubmit(line)
	}()
}

func (c *Controller) reopenPrompt() {
	if c.buffer.InProgress() {
		c.buffer.ClosePrompt()
		return
	}
	_ = c.buffer.InsertPrompt()
}

// Output appends program output above the prompt. It does not wait for the
// text to be shown.
func (c *Controller) Output(text string) error {
	return c.dispatcher.Invoke(func() { c.output(text, outputStyle) })
}

// OutputError is Output with the error style.
func (c *Controller) OutputError(text string) error {
	return c.dispatcher.Invoke(func() { c.output(text, errorStyle) })
}

// OutputStyled is Output with an explicit style.
func (c *Controller) OutputStyled(text string, style Style) error {
	return c.dispatcher.Invoke(func() { c.output(text, style) })
}

func (c *Controller) output(text string, style Style) {
	if text == "" {
		return
	}
	if err := c.buffer.InsertBeforeLastPrompt(text, style); errors.Is(err, ErrNoPrompt) {
		c.buffer.Append(text, style)
	}
}

// Flush waits for every output queued before it to reach the buffer.
func (c *Controller) Flush(ctx context.Context) error {
	return c.dispatcher.InvokeAndWait(ctx, func() {})
}

// StartInteraction closes the prompt and marks a computation as running.
func (c *Controller) StartInteraction() error {
	return c.call(func() {
		c.buffer.ClosePrompt()
		c.buffer.SetInProgress(true)
	})
}

// FinishInteraction ends the running computation and shows a new prompt.
func (c *Controller) FinishInteraction() error {
	return c.call(func() {
		c.buffer.SetInProgress(false)
		if !c.buffer.HasPrompt() {
			_ = c.buffer.InsertPrompt()
		}
	})
}

// Reset cancels any pending read, clears everything and shows a fresh
// prompt.
func (c *Controller) Reset() error {
	return c.call(func() {
		// Covers a read that has begun but not reached the dispatcher yet.
		// A reader asking again from here on is set up after the reset.
		c.bridge.Cancel()
		if c.active != nil {
			c.resolve(c.active, true)
		}
		c.buffer.SetInProgress(false)
		c.buffer.Reset()
		c.history.Reset()
		_ = c.buffer.InsertPrompt()
	})
}

// PopupDone submits the open popup's text.
func (c *Controller) PopupDone() error {
	var err error
	if callErr := c.call(func() {
		if c.popup != nil {
			err = c.popup.Done()
		}
	}); callErr != nil {
		return callErr
	}
	return err
}

// PopupClose dismisses the open popup, canceling its read.
func (c *Controller) PopupClose() error {
	return c.call(func() {
		if c.popup != nil {
			c.popup.Close()
		}
	})
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	Text       string
	Length     int
	PromptPos  int
	Caret      int
	HasPrompt  bool
	InProgress bool
	State      WaitState
	Mode       InputMode
	Bridge     BridgeState
	PopupOpen  bool
	PopupText  string
	PopupCaret int
	Runs       []Run
}

// Snapshot captures the current state from the dispatcher.
func (c *Controller) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := c.call(func() {
		s = Snapshot{
			Text:       c.buffer.Text(),
			Length:     c.buffer.Length(),
			PromptPos:  c.buffer.PromptPos(),
			Caret:      c.caret.Caret(),
			HasPrompt:  c.buffer.HasPrompt(),
			InProgress: c.buffer.InProgress(),
			State:      c.state,
			Mode:       c.mode,
			Bridge:     c.bridge.State(),
			Runs:       c.buffer.Runs(),
		}
		if c.popup != nil {
			s.PopupOpen = true
			s.PopupText = c.popup.Text()
			s.PopupCaret = c.popup.Caret()
		}
	})
	return s, err
}

// Stdin returns a reader fed by RequestInput. Each Read that finds no
// buffered bytes requests a new line. A request canceled from the UI reads
// as io.EOF; one abandoned because ctx ended returns the wrapped ctx error.
func (c *Controller) Stdin(ctx context.Context) io.Reader {
	return &inputReader{ctx: ctx, c: c}
}

// Stdout returns a writer that queues Output.
func (c *Controller) Stdout() io.Writer {
	return outputWriter{c: c, style: outputStyle}
}

// Stderr returns a writer that queues output in the error style.
func (c *Controller) Stderr() io.Writer {
	return outputWriter{c: c, style: errorStyle}
}

type inputReader struct {
	ctx     context.Context
	c       *Controller
	pending []byte
}

func (r *inputReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.pending) == 0 {
		line, err := r.c.RequestInput(r.ctx)
		if err != nil {
			if errors.Is(err, ErrInputCanceled) && r.ctx.Err() == nil {
				return 0, io.EOF
			}
			return 0, err
		}
		r.pending = []byte(line)
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

type outputWriter struct {
	c     *Controller
	style Style
}

func (w outputWriter) Write(p []byte) (int, error) {
	if err := w.c.OutputStyled(string(p), w.style); err != nil {
		return 0, err
	}
	return len(p), nil
}
