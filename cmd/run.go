package cmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/alantheprice/consolepane/pkg/events"
	"github.com/alantheprice/consolepane/pkg/logging"
	"github.com/alantheprice/consolepane/pkg/toyinterp"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const welcome = "consolepane - type 'help' for commands. F2 hides the pane, Ctrl+C quits.\n"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive console in the terminal",
	Long: `Starts a full-screen console running a small interpreter. Reads made by
the interpreter are answered inline at the prompt, or in a popup while the
pane is hidden with F2.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := settings.ControllerOptions()
		if err != nil {
			return err
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			logger.Infof("run: stdin is not a terminal, running headless")
			return pipeSession(cmd.Context(), os.Stdin, cmd.OutOrStdout(), opts, logger)
		}

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialize screen: %w", err)
		}
		defer screen.Fini()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runSession(ctx, screen, opts, logger)
	},
}

// session couples a controller with a terminal screen.
type session struct {
	screen  tcell.Screen
	ctrl    *console.Controller
	log     *logging.Logger
	visible atomic.Bool
}

// runSession runs the interpreter in the console on screen until Ctrl+C,
// ctx ends, or the screen stops delivering events.
func runSession(ctx context.Context, screen tcell.Screen, opts console.Options, log *logging.Logger) error {
	s := &session{screen: screen, log: log}
	s.visible.Store(true)

	bus := events.NewEventBus()
	updates := bus.Subscribe("screen")
	defer bus.Unsubscribe("screen")

	var interp *toyinterp.Interpreter
	opts.Host = console.HostFunc(s.visible.Load)
	opts.Bus = bus
	opts.Logger = log
	opts.OnSubmit = func(line string) {
		if err := interp.Eval(line); err != nil {
			log.Debugf("run: %q: %v", line, err)
		}
	}

	ctrl, err := console.NewController(opts)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	s.ctrl = ctrl
	interp = toyinterp.New(ctrl.Stdin(ctx), ctrl.Stdout(), ctrl.Stderr())
	if err := ctrl.Output(welcome); err != nil {
		return err
	}

	quit := make(chan struct{})
	defer close(quit)
	input := make(chan tcell.Event)
	go func() {
		defer close(input)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case input <- ev:
			case <-quit:
				return
			}
		}
	}()

	s.redraw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-input:
			if !ok {
				return nil
			}
			if s.handle(ev) {
				return nil
			}
			s.redraw()
		case <-updates:
			s.redraw()
		}
	}
}

// handle processes one terminal event and reports whether to quit.
func (s *session) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyCtrlC:
			return true
		case tcell.KeyF2:
			s.visible.Store(!s.visible.Load())
		default:
			if err := s.ctrl.HandleKey(ev); err != nil {
				s.log.Warnf("run: key %s: %v", console.KeyStrokeOf(ev), err)
			}
		}
	}
	return false
}

func (s *session) redraw() {
	snap, err := s.ctrl.Snapshot()
	if err != nil {
		s.log.Debugf("run: snapshot: %v", err)
		return
	}
	drawSnapshot(s.screen, snap, statusLine(snap, s.visible.Load()))
	s.screen.Show()
}

func statusLine(snap console.Snapshot, visible bool) string {
	pane := "shown"
	if !visible {
		pane = "hidden"
	}
	state := "ready"
	switch {
	case snap.State == console.WaitingForInput:
		state = "reading (" + snap.Mode.String() + ")"
	case snap.InProgress:
		state = "running"
	}
	return fmt.Sprintf(" %s | pane %s | F2 toggle | Ctrl+C quit", state, pane)
}
