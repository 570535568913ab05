// Package toyinterp is a tiny line interpreter that talks through ordinary
// readers and writers. It stands in for a real language runtime when
// driving the console.
package toyinterp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned for a command the interpreter does not know.
var ErrUnknownCommand = errors.New("unknown command")

type command struct {
	usage string
	run   func(it *Interpreter, args []string) error
}

var commands map[string]command

// Filled in init because help and sum refer back to the table.
func init() {
	commands = map[string]command{
		"echo": {"echo <text>   print text", (*Interpreter).echo},
		"read": {"read [prompt] read one line from stdin", (*Interpreter).read},
		"sum":  {"sum <n>       read n integers and print their total", (*Interpreter).sum},
		"help": {"help          list commands", (*Interpreter).help},
	}
}

// Interpreter evaluates one command line at a time. Reads share a single
// buffered reader so no input is lost between commands.
type Interpreter struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// New creates an interpreter reading from in.
func New(in io.Reader, out, errOut io.Writer) *Interpreter {
	return &Interpreter{in: bufio.NewReader(in), out: out, errOut: errOut}
}

// Eval runs line. Blank lines do nothing.
func (it *Interpreter) Eval(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		fmt.Fprintf(it.errOut, "%s: command not found\n", fields[0])
		return fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	err := cmd.run(it, fields[1:])
	if err != nil {
		fmt.Fprintf(it.errOut, "%s: %v\n", fields[0], err)
	}
	return err
}

func (it *Interpreter) echo(args []string) error {
	_, err := fmt.Fprintln(it.out, strings.Join(args, " "))
	return err
}

func (it *Interpreter) readLine() (string, error) {
	line, err := it.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return "", io.EOF
		}
		if !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (it *Interpreter) read(args []string) error {
	if len(args) > 0 {
		fmt.Fprintf(it.out, "%s ", strings.Join(args, " "))
	}
	line, err := it.readLine()
	if err != nil {
		return fmt.Errorf("read interrupted: %w", err)
	}
	_, err = fmt.Fprintf(it.out, "read: %s\n", line)
	return err
}

func (it *Interpreter) sum(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", commands["sum"].usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid count %q", args[0])
	}

	total := 0
	for i := 0; i < n; i++ {
		line, err := it.readLine()
		if err != nil {
			return fmt.Errorf("read interrupted after %d of %d: %w", i, n, err)
		}
		v, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return fmt.Errorf("not an integer: %q", line)
		}
		total += v
	}
	_, err = fmt.Fprintf(it.out, "%d\n", total)
	return err
}

func (it *Interpreter) help([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(it.out, commands[name].usage)
	}
	return nil
}
