package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/alantheprice/consolepane/pkg/logging"
	"github.com/alantheprice/consolepane/pkg/toyinterp"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Run the interpreter headless, fed from standard input",
	Long: `Reads lines from standard input. A line is handed to a pending read when
the running command is waiting for input, and is run as a new command
otherwise. Output is written to standard output as it is produced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			logger.Infof("pipe: stdin is a terminal; lines are read as typed")
		}
		opts, err := settings.ControllerOptions()
		if err != nil {
			return err
		}
		return pipeSession(cmd.Context(), os.Stdin, cmd.OutOrStdout(), opts, logger)
	},
}

// pipeSession drives a silent console from in and copies everything the
// interpreter prints to out.
func pipeSession(ctx context.Context, in io.Reader, out io.Writer, opts console.Options, log *logging.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Mode = console.ModeSilent
	opts.Prompt = ""
	opts.Logger = log

	ctrl, err := console.NewController(opts)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	var writeErr error
	ctrl.Buffer().AddListener(func(ch console.Change) {
		if ch.Kind == console.ChangeInsert && writeErr == nil {
			_, writeErr = io.WriteString(out, ch.Text)
		}
	})

	interp := toyinterp.New(ctrl.Stdin(ctx), ctrl.Stdout(), ctrl.Stderr())
	p := &pipe{ctx: ctx, ctrl: ctrl, interp: interp, log: log}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := p.feed(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := p.drain(); err != nil {
		return err
	}

	if err := ctrl.Flush(ctx); err != nil {
		return err
	}
	return writeErr
}

type pipe struct {
	ctx    context.Context
	ctrl   *console.Controller
	interp *toyinterp.Interpreter
	log    *logging.Logger

	running <-chan struct{} // closed when the current command returns
}

// feed routes one input line to the pending read or starts it as a command.
func (p *pipe) feed(line string) error {
	if p.running != nil {
		reading, err := p.awaitTurn()
		if err != nil {
			return err
		}
		if reading {
			return p.ctrl.SupplyLine(line)
		}
	}
	return p.start(line)
}

func (p *pipe) start(line string) error {
	if err := p.ctrl.StartInteraction(); err != nil {
		return err
	}
	done := make(chan struct{})
	p.running = done
	go func() {
		defer close(done)
		if err := p.interp.Eval(line); err != nil {
			p.log.Debugf("pipe: %q: %v", line, err)
		}
		if err := p.ctrl.FinishInteraction(); err != nil {
			p.log.Warnf("pipe: finish interaction: %v", err)
		}
	}()
	return nil
}

// awaitTurn waits until the running command either asks for input or
// returns.
func (p *pipe) awaitTurn() (reading bool, err error) {
	ctx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	ready := make(chan error, 1)
	go func() { ready <- p.ctrl.WaitUntilReady(ctx) }()

	select {
	case err := <-ready:
		if err != nil {
			return false, err
		}
		return true, nil
	case <-p.running:
		p.running = nil
		return false, nil
	}
}

// drain lets the last command finish; reads it makes after input ran out
// are canceled so it sees end of file.
func (p *pipe) drain() error {
	for p.running != nil {
		reading, err := p.awaitTurn()
		if err != nil {
			return err
		}
		if reading {
			p.ctrl.CancelPendingInput()
		}
	}
	return nil
}
