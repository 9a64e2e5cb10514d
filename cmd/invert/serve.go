package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-invert/server"
)

// shutdownTimeout bounds graceful shutdown of the HTTP bridge.
const shutdownTimeout = 10 * time.Second

func serveCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("invert serve", flag.ContinueOnError)
	var (
		common commonFlags
		listen string
		stdio  bool
	)
	common.register(fs)
	fs.StringVar(&listen, "listen", "", "HTTP listen address (default from config)")
	fs.BoolVar(&stdio, "mcp", false, "Serve MCP tools over stdin/stdout instead of HTTP")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, logger, err := common.load()
	if err != nil {
		return fail("%v", err)
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}

	srv := server.New(server.Config{
		Pipeline:     cfg.PipelineConfig(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       logger,
	})

	if stdio {
		logger.Info("serving MCP over stdio")
		if err := srv.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return fail("mcp: %v", err)
		}
		return 0
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http bridge listening", "addr", cfg.Server.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http bridge")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(httpServer.Shutdown(shutdownCtx), "shutdown")
	})
	if err := g.Wait(); err != nil {
		return fail("%v", err)
	}
	return 0
}
