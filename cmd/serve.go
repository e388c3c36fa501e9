package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	_ "seatrotation/docs"

	"seatrotation/config"
	"seatrotation/internal/adapters/auth"
	httpdelivery "seatrotation/internal/delivery/http"
	"seatrotation/internal/delivery/http/controllers"
	"seatrotation/internal/delivery/http/middleware"
	"seatrotation/internal/migrate"
	"seatrotation/internal/scheduler"
	"seatrotation/internal/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the session seeding job",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if migrateUp && st.db != nil {
				applied, err := migrate.Up(ctx, st.db)
				if err != nil {
					return err
				}
				logger.Info("migrations applied", "count", len(applied), "files", applied)
			}

			cal, err := newCalendar(cfg)
			if err != nil {
				return err
			}
			publisher, closePublisher := newPublisher(cfg, logger)
			defer func() { _ = closePublisher() }()

			authService := services.NewAuthService(st.users, auth.NewBcryptHasher(0), auth.NewJWTIssuer(cfg.JWTSecret), cfg.JWTExpiry)
			sessionService := services.NewSessionService(st.sessions, cal, logger, cfg.RequestTimeout)
			bookingService := services.NewBookingService(st.sessions, st.users, cal, publisher, logger, cfg.BookingMaxAttempts, cfg.RequestTimeout)

			var rdb *redis.Client
			if cfg.RedisAddr != "" {
				rdb = redis.NewClient(&redis.Options{
					Addr:     cfg.RedisAddr,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				})
				defer rdb.Close()
				if err := rdb.Ping(ctx).Err(); err != nil {
					logger.Warn("redis ping failed, rate limiter fails open until it recovers", "addr", cfg.RedisAddr, "err", err)
				}
			} else if cfg.RateLimit.Enabled {
				logger.Warn("REDIS_ADDR not set, booking rate limit disabled")
			}

			var store controllers.Pinger
			if st.db != nil {
				store = st.db
			}
			mux := httpdelivery.NewRouter(
				httpdelivery.Controllers{
					Auth:     controllers.NewAuthController(logger, authService, cfg.JWTExpiry),
					Sessions: controllers.NewSessionController(logger, sessionService, cal),
					Bookings: controllers.NewBookingController(logger, bookingService),
					Health:   controllers.NewHealthController(logger, store),
				},
				middleware.RequireAuth(auth.NewJWTVerifier(cfg.JWTSecret), logger),
				middleware.RateLimit(cfg.RateLimit, rdb, logger),
			)

			if cfg.SeedEnabled {
				seeder, err := scheduler.NewSessionSeeder(sessionService, cal, cfg.SeedHorizonDays, logger)
				if err != nil {
					return err
				}
				if _, err := seeder.RunOnce(ctx); err != nil {
					logger.Error("initial session seeding failed", "err", err)
				}
				if err := seeder.Start(ctx); err != nil {
					return err
				}
				defer func() {
					if err := seeder.Stop(); err != nil {
						logger.Error("stop session seeder", "err", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           httpdelivery.NewHandler(mux, logger, cfg.CORSAllowedOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment, "store", cfg.StoreDriver, "tz", cfg.FacilityTZ)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup (postgres store only)")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
