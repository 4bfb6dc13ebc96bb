package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/usecase/studio"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Commands:
  /save [n]    save the n-th latest reply to history (default 1)
  /model <m>   switch the text model
  /help        show this help
  /exit        quit`

func chatCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive text conversation",
		Flags: allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			uc, closeFn, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := uc.SetTab(ctx, model.KindText); err != nil {
				logging.From(ctx).Warn("failed to switch tab", "error", err)
			}

			rl, err := newLineReader(c, "> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			s := &chatSession{uc: uc, cmd: c, model: cfg.textModel}
			fmt.Fprintf(c.Root().Writer, "Chat session started. Type /help for commands.\n")

			for {
				line, err := rl.Readline()
				if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				if done := s.handle(ctx, strings.TrimSpace(line)); done {
					break
				}
			}

			fmt.Fprintf(c.Root().Writer, "Chat session completed\n")
			return nil
		},
	}
}

type chatSession struct {
	uc    *studio.UseCase
	cmd   *cli.Command
	model string
}

// handle processes one line and reports whether the session should end
func (s *chatSession) handle(ctx context.Context, line string) bool {
	w := s.cmd.Root().Writer

	switch {
	case line == "":
		return false

	case line == "/exit" || line == "/quit":
		return true

	case line == "/help":
		fmt.Fprintln(w, chatHelp)

	case line == "/model" || strings.HasPrefix(line, "/model "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/model"))
		if name == "" {
			fmt.Fprintf(w, "usage: /model <name>\n")
			return false
		}
		s.model = name
		fmt.Fprintf(w, "Model: %s\n", name)

	case line == "/save" || strings.HasPrefix(line, "/save "):
		s.save(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/save")))

	case strings.HasPrefix(line, "/"):
		fmt.Fprintf(w, "unknown command %s\n", line)

	default:
		msg, err := waitFor(s.cmd, "thinking", func() (*model.Message, error) {
			return s.uc.GenerateText(ctx, line, s.model)
		})
		if err != nil {
			logging.From(ctx).Debug("text generation failed", "error", err)
		}
		switch {
		case msg != nil:
			fmt.Fprintln(w, msg.Content)
		case err != nil:
			fmt.Fprintf(w, "failed to generate: %v\n", err)
		}
	}

	return false
}

func (s *chatSession) save(ctx context.Context, arg string) {
	w := s.cmd.Root().Writer

	n := 1
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 {
			fmt.Fprintf(w, "usage: /save [n]\n")
			return
		}
		n = v
	}

	var replies []model.Message
	for _, m := range s.uc.Messages() {
		if m.Role == model.RoleAssistant && !strings.HasPrefix(m.Content, "Error: ") {
			replies = append(replies, m)
		}
	}
	if n > len(replies) {
		fmt.Fprintf(w, "no reply to save\n")
		return
	}

	rec, err := s.uc.SaveMessage(ctx, replies[len(replies)-n].Content, s.model)
	if err != nil {
		fmt.Fprintf(w, "failed to save: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Saved: %s\n", rec.ID)
}
