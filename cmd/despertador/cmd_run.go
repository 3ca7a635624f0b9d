package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bsid.es/despertador/api"
	"bsid.es/despertador/mem"
	"github.com/gin-gonic/gin"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// newRunCmd creates the run subcommand for foreground execution
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler",
		Long: `Run the scheduler until interrupted. Alarms are checked at every
scheduler.interval boundary and the HTTP API is served when http.addr is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !service.Interactive() {
				// Started by the service manager.
				svc, err := newService(false)
				if err != nil {
					return err
				}
				return svc.Run()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			return serve(ctx, e)
		},
	}
}

// serve runs the minute ticker and, if configured, the HTTP API until ctx is
// done or one of them fails.
func serve(ctx context.Context, e *env) error {
	m := e.manager
	m.RegisterFunc(mem.NewRingLogger(e.log).Ring)

	ticker := mem.NewTicker(m.PeriodicCheck)
	ticker.Interval = e.cfg.Scheduler.Interval
	ticker.Logger = e.log

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ticker.Run(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		ticker.Interrupt()
		<-ticker.Done()
		return nil
	})

	if addr := e.cfg.HTTP.Addr; addr != "" {
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewHandler(api.NewRouter(m), e.cfg.HTTP.AllowedOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			e.log.Info("http api listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	count, _ := m.Count()
	e.log.Info("scheduler running",
		"version", version,
		"alarms", count,
		"interval", ticker.Interval,
		"storage", e.cfg.Storage.Driver,
	)
	err := g.Wait()
	e.log.Info("scheduler stopped")
	return err
}
