package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/service/mcp"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg    config
		listen string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "http",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("POLLEN_MCP_HTTP"),
			Destination: &listen,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve studio operations as MCP tools",
		Flags: flags,
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

			srv, err := mcp.NewServer(uc, mcp.WithVersion(version))
			if err != nil {
				return err
			}

			if listen == "" {
				return srv.RunStdio(ctx)
			}

			httpServer := &http.Server{
				Addr:              listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				_ = httpServer.Close()
			}()

			logging.From(ctx).Info("serving MCP over HTTP", "addr", listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "MCP HTTP server failed", goerr.V("addr", listen))
			}
			return nil
		},
	}
}
