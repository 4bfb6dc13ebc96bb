package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/urfave/cli/v3"
)

func tabCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "tab",
		Usage:     "Print or switch the current tab",
		ArgsUsage: "[text|image|audio]",
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

			if c.Args().Present() {
				if err := uc.SetTab(ctx, model.Kind(c.Args().First())); err != nil {
					return err
				}
			}

			fmt.Fprintln(c.Root().Writer, uc.Tab())
			return nil
		},
	}
}

func audioCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "audio",
		Usage: "List the experimental audio library",
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

			w := c.Root().Writer
			items := uc.AudioLibrary(ctx)
			if len(items) == 0 {
				fmt.Fprintln(w, "No audio")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.Title, item.URL)
			}
			return nil
		},
	}
}
