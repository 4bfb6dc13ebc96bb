package cli

import (
	"context"

	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

var version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := newRootCommand()

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "pollen",
		Usage:   "Text and image generation studio for the Pollinations API",
		Version: version,
		Commands: []*cli.Command{
			textCommand(),
			chatCommand(),
			imageCommand(),
			historyCommand(),
			showCommand(),
			openCommand(),
			clearCommand(),
			statsCommand(),
			tabCommand(),
			audioCommand(),
			mcpCommand(),
		},
	}
}
