package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"interview-scheduler/internal/app"
	"interview-scheduler/internal/config"
	"interview-scheduler/internal/db"
	"interview-scheduler/internal/logger"
	"interview-scheduler/internal/otel"
	"interview-scheduler/internal/server"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "interview-scheduler",
		Short:         "Interview scheduling and booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newTokenCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the invitation expiry sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, !skipMigrations)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on start")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Setup(cfg)

			database, err := db.New(ctx, dbConfig(cfg))
			if err != nil {
				return err
			}
			defer database.Close()
			return database.Migrate(ctx)
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		userID    string
		role      string
		profileID string
		secret    string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_HMAC_SECRET is required")
			}
			tok, err := app.IssueToken([]byte(secret), app.Principal{
				UserID:    userID,
				Role:      app.Role(role),
				ProfileID: profileID,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Subject user id")
	cmd.Flags().StringVar(&role, "role", string(app.RoleRecruiter), "recruiter or candidate")
	cmd.Flags().StringVar(&profileID, "profile", "", "Candidate profile id")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_HMAC_SECRET"), "HMAC signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("initializing otel: %w", err)
	}
	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}
	slog.InfoContext(ctx, "interview scheduler starting", "env", cfg.Env, "timezone", cfg.Schedule.Timezone)

	database, err := db.New(ctx, dbConfig(cfg))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	if migrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	events := app.NopPublisher()
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		events = app.NewRedisPublisher(client, cfg.Redis.Stream, slog.Default())
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.Stream)
	}
	defer events.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := app.NewMetrics(registry)

	store := app.NewPgStore(database)

	var cal *app.GoogleCalendar
	if cfg.Google.Enabled() {
		cal = app.NewGoogleCalendar(app.GoogleCalendarConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			StateSecret:  []byte(cfg.JWT.Secret),
		}, store.CalendarTokens())
	}

	a := app.New(store, app.SystemClock(), app.Options{
		Location:      cfg.Location(),
		InvitationTTL: cfg.Schedule.InvitationTTL,
		Events:        events,
		Metrics:       metrics,
		Calendar:      cal,
	})

	sweeper, err := app.NewExpirySweeper(cfg.Schedule.SweepCron, a.Invitations)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	routerCfg := server.RouterConfig{
		JWTSecret: []byte(cfg.JWT.Secret),
		Metrics:   registry,
	}
	if cfg.OTel.Enabled() {
		routerCfg.TracingService = cfg.OTel.ServiceName
	}

	if err := server.Run(ctx, server.NewRouter(a, routerCfg), ":"+cfg.Port); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "shutdown complete")
	return nil
}

func dbConfig(cfg config.Config) db.Config {
	return db.Config{
		DSN:              cfg.DB.DSN,
		MaxConns:         cfg.DB.MaxConns,
		MinConns:         cfg.DB.MinConns,
		StatementTimeout: cfg.DB.StatementTimeout,
	}
}
