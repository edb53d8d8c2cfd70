package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	deps "github.com/bwise1/gunaso/internal/debs"
	api "github.com/bwise1/gunaso/internal/http/rest"
	smtp "github.com/bwise1/gunaso/util/email"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const allowConnectionsAfterShutdown = 1 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), migrateOnStart)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServe(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dependencies := deps.New(cfg)
	defer dependencies.Close()

	if migrate {
		if err := dependencies.DB.Migrate(ctx); err != nil {
			return err
		}
	}

	mailer := smtp.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	if !mailer.Enabled() {
		logger.Warn("SMTP_HOST not set, emails will not be sent")
	}

	a := &api.API{
		Config: cfg,
		Deps:   dependencies,
		Mailer: mailer,
	}
	a.Init()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go dependencies.WebSocket.Run(hubCtx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.Int("port", cfg.Port))
		serveErr <- a.Serve()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("request to shutdown server", zap.Duration("grace", allowConnectionsAfterShutdown))
	time.Sleep(allowConnectionsAfterShutdown)

	logger.Info("shutting down server")
	if err := a.Shutdown(); err != nil {
		return err
	}
	stopHub()
	return nil
}
