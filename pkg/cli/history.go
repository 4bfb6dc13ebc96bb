package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/usecase/history"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg    config
		kind   string
		offset int64
		limit  int64
		asJSON bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "kind",
			Aliases:     []string{"k"},
			Usage:       "Only show records of this kind (text, image, audio)",
			Destination: &kind,
		},
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Number of newest records to skip",
			Value:       0,
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of records to list",
			Value:       20,
			Sources:     cli.EnvVars("POLLEN_HISTORY_LIMIT"),
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print records as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:    "history",
		Aliases: []string{"ls"},
		Usage:   "List stored generations, newest first",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			opts := history.ListOptions{
				Kind:   model.Kind(kind),
				Offset: int(offset),
				Limit:  int(limit),
			}
			if opts.Kind != "" {
				if err := opts.Kind.Validate(); err != nil {
					return err
				}
			}

			uc, closeFn, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			records := history.List(uc.History(), opts)
			if asJSON {
				return printJSON(c.Root().Writer, records)
			}

			if len(records) == 0 {
				fmt.Fprintln(c.Root().Writer, "No history")
				return nil
			}
			printHistory(c.Root().Writer, records)
			return nil
		},
	}
}

func showCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show one stored generation",
		ArgsUsage: "<record-id>",
		Flags:     allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			id := c.Args().First()
			if id == "" {
				return goerr.New("record ID is required")
			}

			uc, closeFn, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := uc.Find(model.RecordID(id))
			if err != nil {
				return err
			}

			return printJSON(c.Root().Writer, rec)
		},
	}
}

func openCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "open",
		Usage:     "Reopen a stored generation in its tab and print its prompt",
		ArgsUsage: "<record-id>",
		Flags:     allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			id := c.Args().First()
			if id == "" {
				return goerr.New("record ID is required")
			}

			uc, closeFn, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := uc.Reopen(ctx, model.RecordID(id))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "Tab: %s\n", rec.Kind)
			fmt.Fprintf(w, "Prompt: %s\n", rec.Prompt)
			if rec.Kind == model.KindImage && rec.Seed != "" {
				fmt.Fprintf(w, "Seed: %s\n", rec.Seed)
			}
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	var (
		cfg config
		yes bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "Do not ask for confirmation",
			Destination: &yes,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete all stored generations",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if !yes {
				fmt.Fprint(w, "Clear all history? [y/N] ")
				answer, _ := bufio.NewReader(stdinOf(c)).ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(answer)) {
				case "y", "yes":
				default:
					fmt.Fprintln(w, "Canceled")
					return nil
				}
			}

			uc, closeFn, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := uc.ClearHistory(ctx); err != nil {
				return err
			}

			fmt.Fprintln(w, "History cleared")
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "stats",
		Usage: "Count stored generations per kind",
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

			stats := uc.Stats()
			total := 0
			w := c.Root().Writer
			for _, k := range model.Kinds {
				fmt.Fprintf(w, "%-6s %d\n", k, stats[k])
				total += stats[k]
			}
			fmt.Fprintf(w, "%-6s %d\n", "total", total)
			return nil
		},
	}
}
