package cli

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"
)

func stderrOf(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func stdinOf(c *cli.Command) io.Reader {
	if r := c.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && readline.IsTerminal(int(f.Fd()))
}

// waitFor runs fn while a spinner is shown on an interactive stderr
func waitFor[T any](c *cli.Command, suffix string, fn func() (T, error)) (T, error) {
	w := stderrOf(c)
	if !isTerminal(w) {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()

	return fn()
}

// lineReader reads one line of user input. io.EOF ends the session.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

type scanReader struct {
	scanner *bufio.Scanner
	prompt  string
	out     io.Writer
}

func (r *scanReader) Readline() (string, error) {
	if r.prompt != "" {
		_, _ = io.WriteString(r.out, r.prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// newLineReader uses readline on a terminal and plain line scanning otherwise
func newLineReader(c *cli.Command, prompt string) (lineReader, error) {
	in := stdinOf(c)
	out := c.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	if !isTerminal(in) {
		return &scanReader{scanner: bufio.NewScanner(in), prompt: prompt, out: out}, nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
		Stdout:          out,
		Stderr:          stderrOf(c),
	})
	if err != nil {
		return nil, err
	}
	return rl, nil
}
