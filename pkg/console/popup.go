package console

import (
	"errors"

	"github.com/gdamore/tcell/v2"
)

// Popup collects one line of input in its own modal buffer. It is only
// touched from the controller's dispatcher.
type Popup struct {
	req     *InputRequest
	buffer  *PromptedBuffer
	caret   *CaretSynchronizer
	closed  bool
	dispose func(canceled bool)
}

func newPopup(req *InputRequest, dispose func(canceled bool)) *Popup {
	buffer := NewPromptedBuffer("")
	// An empty marker never fails outside an interaction.
	_ = buffer.InsertPrompt()
	return &Popup{
		req:     req,
		buffer:  buffer,
		caret:   NewCaretSynchronizer(buffer),
		dispose: dispose,
	}
}

// Text returns what has been typed so far.
func (p *Popup) Text() string {
	return p.buffer.InputText()
}

// Caret returns the caret offset inside the popup text.
func (p *Popup) Caret() int {
	return p.caret.Caret()
}

// Done supplies the typed text and closes the popup. A request canceled
// before the popup caught up closes it as canceled.
func (p *Popup) Done() error {
	if p.closed {
		return nil
	}
	if err := p.req.Supply(p.buffer.InputText()); err != nil {
		if !errors.Is(err, ErrIllegalBridgeState) {
			return err
		}
		p.close(true)
		return nil
	}
	p.close(false)
	return nil
}

// Close dismisses the popup and cancels the request it was serving.
func (p *Popup) Close() {
	if p.closed {
		return
	}
	p.req.Cancel()
	p.close(true)
}

func (p *Popup) close(canceled bool) {
	p.closed = true
	if p.dispose != nil {
		p.dispose(canceled)
	}
}

func (p *Popup) perform(action Action) error {
	switch action {
	case ActionSubmit:
		return p.Done()
	case ActionCancelInput:
		p.Close()
	case ActionNewline:
		return p.typeText("\n")
	case ActionTab:
		return p.typeText("\t")
	case ActionLeft:
		p.caret.MoveLeft()
	case ActionRight:
		p.caret.MoveRight()
	case ActionHome:
		p.caret.MoveHome()
	case ActionEnd:
		p.caret.MoveEnd()
	case ActionBackspace:
		if c := p.caret.Caret(); c > p.buffer.PromptPos() {
			if err := p.buffer.UserRemove(c-1, 1); err != nil {
				return err
			}
			return p.caret.SetCaret(c - 1)
		}
	case ActionDelete:
		if c := p.caret.Caret(); c < p.buffer.Length() {
			return p.buffer.UserRemove(c, 1)
		}
	case ActionClearInput:
		p.buffer.ClearCurrentInteraction()
	}
	return nil
}

func (p *Popup) typeText(text string) error {
	c := p.caret.Caret()
	if err := p.buffer.UserInsert(c, text, tcell.StyleDefault); err != nil {
		return err
	}
	return p.caret.SetCaret(c + len([]rune(text)))
}

// recoverable reports errors a stray keystroke may produce. They are
// logged and otherwise ignored.
func recoverable(err error) bool {
	return errors.Is(err, ErrReadOnlyRegion) || errors.Is(err, ErrBounds)
}
