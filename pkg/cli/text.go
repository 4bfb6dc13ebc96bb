package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/urfave/cli/v3"
)

func textCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "text",
		Usage:     "Generate text for a prompt",
		ArgsUsage: "<prompt...>",
		Flags:     allFlags(&cfg),
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

			prompt := strings.Join(c.Args().Slice(), " ")
			msg, err := waitFor(c, "generating text", func() (*model.Message, error) {
				return uc.GenerateText(ctx, prompt, "")
			})
			if msg != nil {
				fmt.Fprintln(c.Root().Writer, msg.Content)
			}
			return err
		},
	}
}
