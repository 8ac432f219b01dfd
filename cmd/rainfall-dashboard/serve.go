package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/rainfall-dashboard/internal/api/http"
	"github.com/i474232898/rainfall-dashboard/internal/logger"
	"github.com/i474232898/rainfall-dashboard/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the harvest schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := setup(ctx)
		if err != nil {
			return err
		}
		defer c.close()

		service, err := c.newService()
		if err != nil {
			return err
		}
		defer service.Close()

		if c.cfg.Harvest.Enabled {
			h := c.newHarvester()
			sched, err := scheduler.New(scheduler.Config{
				Cron:     c.cfg.Harvest.Cron,
				Timezone: c.cfg.Harvest.Timezone,
				Timeout:  c.cfg.Harvest.Timeout,
			}, scheduler.JobFunc(func(ctx context.Context) error {
				_, err := h.Run(ctx)
				return err
			}), c.log.Named("scheduler"))
			if err != nil {
				return err
			}
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()
			c.log.Info("harvest scheduled", zap.Time("next_run", sched.NextRun()))
		}

		app := fiber.New(fiber.Config{
			AppName:               "rainfall-dashboard",
			DisableStartupMessage: true,
			ReadTimeout:           c.cfg.Server.ReadTimeout,
			WriteTimeout:          c.cfg.Server.WriteTimeout,
			ErrorHandler:          httpapi.ErrorHandler,
		})

		// Global middleware
		app.Use(requestid.New(requestid.Config{ContextKey: logger.RequestIDKey}))
		app.Use(requestLogger(c.log))
		app.Use(recover.New())

		app.Get("/health", func(fc *fiber.Ctx) error {
			return fc.JSON(fiber.Map{
				"status":  "ok",
				"service": "rainfall-dashboard",
			})
		})

		httpapi.RegisterRoutes(app, service, c.store)

		errCh := make(chan error, 1)
		go func() {
			c.log.Info("starting server", zap.String("port", c.cfg.Server.Port))
			errCh <- app.Listen(":" + c.cfg.Server.Port)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		c.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	},
}

// requestLogger logs each request with its request id.
func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		l := logger.WithRequestID(log, c)
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if err != nil {
			l.Error("request error", append(fields, zap.Error(err))...)
			return err
		}
		l.Info("request", fields...)
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
