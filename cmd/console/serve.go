package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/redsteadz/agentic-interviewer/internal/httpapi"
	"github.com/redsteadz/agentic-interviewer/pkg/logger"
)

// cmdServe runs the console as an HTTP service over the same core the CLI
// commands use. The poller keeps running between requests, so /v1/calls/current
// stays warm while a call is live.
func (a *app) cmdServe(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", a.cfg.HTTPAddr(), "listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := newRouter(slog.Default(), httpapi.Handlers{
		Calls:   a.client,
		Poller:  a.poller,
		Sched:   a.sched,
		Reports: a.reports,
		Base:    ctx,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("console listening", "addr", srv.Addr, "env", a.cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		fmt.Fprintln(stderr, "http server failed:", err)
		return 1
	case <-ctx.Done():
	}

	slog.Info("shutdown initiated")
	a.poller.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintln(stderr, "http shutdown failed:", err)
		return 1
	}
	return 0
}

// newRouter wires HTTP routes to handlers. Keep this file free of business
// logic; handlers delegate to internal modules.
func newRouter(log *slog.Logger, h httpapi.Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/calls", h.MakeCall)
		v1.GET("/calls", h.ListCalls)
		v1.GET("/calls/current", h.CurrentCall)
		v1.GET("/calls/:id", h.GetCall)

		v1.GET("/transcripts", h.SearchTranscripts)

		v1.GET("/scheduled", h.ListScheduled)
		v1.POST("/scheduled", h.CreateScheduled)
		v1.DELETE("/scheduled/:id", h.CancelScheduled)

		v1.GET("/stats", h.CallStats)
	}
	return r
}
