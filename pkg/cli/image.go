package cli

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/request"
	"github.com/m-mizutani/pollen/pkg/usecase/studio"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func imageCommand() *cli.Command {
	var (
		cfg         config
		seed        string
		randomSeed  bool
		demo        bool
		noProbe     bool
		pruneFailed bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "width",
			Usage:       "Image width in pixels",
			Value:       request.DefaultWidth,
			Sources:     cli.EnvVars("POLLEN_IMAGE_WIDTH"),
			Destination: &cfg.imageWidth,
		},
		&cli.IntFlag{
			Name:        "height",
			Usage:       "Image height in pixels",
			Value:       request.DefaultHeight,
			Sources:     cli.EnvVars("POLLEN_IMAGE_HEIGHT"),
			Destination: &cfg.imageHeight,
		},
		&cli.StringFlag{
			Name:        "seed",
			Usage:       "Seed for reproducible images",
			Destination: &seed,
		},
		&cli.BoolFlag{
			Name:        "random-seed",
			Usage:       "Pick a random seed",
			Destination: &randomSeed,
		},
		&cli.BoolFlag{
			Name:        "demo",
			Usage:       "Use the demo prompt when none is given",
			Destination: &demo,
		},
		&cli.BoolFlag{
			Name:        "no-probe",
			Usage:       "Do not check that the image URL loads",
			Destination: &noProbe,
		},
		&cli.BoolFlag{
			Name:        "prune-failed",
			Usage:       "Remove the record again when the image does not load",
			Sources:     cli.EnvVars("POLLEN_PRUNE_FAILED"),
			Destination: &pruneFailed,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:      "image",
		Usage:     "Generate an image URL for a prompt",
		ArgsUsage: "<prompt...>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c)
			if err != nil {
				return err
			}

			prompt := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(prompt) == "" && demo {
				prompt = request.DemoImagePrompt
			}

			if randomSeed {
				if seed != "" {
					return goerr.New("--seed and --random-seed are exclusive")
				}
				seed = request.RandomSeed(rand.New(rand.NewSource(time.Now().UnixNano())))
			}

			uc, closeFn, err := cfg.newStudio(ctx, studio.WithPruneFailedImages(pruneFailed))
			if err != nil {
				return err
			}
			defer closeFn()

			if err := uc.SetTab(ctx, model.KindImage); err != nil {
				logging.From(ctx).Warn("failed to switch tab", "error", err)
			}

			rec, err := waitFor(c, "drawing", func() (*model.Record, error) {
				return uc.GenerateImage(ctx, studio.ImageInput{
					Prompt:    prompt,
					Width:     int(cfg.imageWidth),
					Height:    int(cfg.imageHeight),
					Seed:      seed,
					SkipProbe: noProbe,
				})
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "%s\n%s\n", rec.ID, rec.Result)
			return nil
		},
	}
}
