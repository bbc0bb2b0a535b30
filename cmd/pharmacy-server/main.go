package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careone/pharmacy/internal/config"
	"github.com/careone/pharmacy/internal/domain/billing"
	"github.com/careone/pharmacy/internal/domain/catalog"
	"github.com/careone/pharmacy/internal/domain/inventory"
	"github.com/careone/pharmacy/internal/domain/patient"
	"github.com/careone/pharmacy/internal/domain/prescription"
	"github.com/careone/pharmacy/internal/domain/stage"
	"github.com/careone/pharmacy/internal/platform/auth"
	"github.com/careone/pharmacy/internal/platform/db"
	"github.com/careone/pharmacy/internal/platform/middleware"
	"github.com/careone/pharmacy/internal/platform/webhook"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pharmacy-server",
		Short: "Pharmacy dispensing and billing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the pharmacy API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			return nil
		},
	})

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			userStr, _ := cmd.Flags().GetString("user")
			scope, _ := cmd.Flags().GetString("scope")
			days, _ := cmd.Flags().GetInt("expires-in-days")

			if name == "" {
				return fmt.Errorf("--name is required")
			}
			userID, err := uuid.Parse(userStr)
			if err != nil {
				return fmt.Errorf("--user must be a valid uuid")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			raw, hash, err := auth.GenerateToken()
			if err != nil {
				return err
			}

			t := &auth.APIToken{
				Name:      name,
				UserID:    userID,
				TokenHash: hash,
				Scope:     scope,
				Active:    true,
			}
			if days > 0 {
				exp := time.Now().AddDate(0, 0, days)
				t.ExpiryDate = &exp
			}

			store := auth.NewTokenStorePG(pool)
			if err := store.Create(ctx, t); err != nil {
				return err
			}

			fmt.Printf("Token created: %s\n", t.ID)
			fmt.Printf("Secret (shown once, store it now): %s\n", raw)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Token label")
	createCmd.Flags().String("user", "", "Owning user id (uuid)")
	createCmd.Flags().String("scope", auth.ScopeReadWrite, "Token scope: read, write, read_write or admin")
	createCmd.Flags().Int("expires-in-days", 0, "Days until expiry (0 = never)")
	cmd.AddCommand(createCmd)

	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "Deactivate an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			idStr, _ := cmd.Flags().GetString("id")
			id, err := uuid.Parse(idStr)
			if err != nil {
				return fmt.Errorf("--id must be a valid uuid")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := auth.NewTokenStorePG(pool)
			t, err := store.GetByID(ctx, id)
			if err != nil {
				return err
			}
			t.Active = false
			if err := store.Update(ctx, t); err != nil {
				return err
			}
			fmt.Println("Token revoked.")
			return nil
		},
	}
	revokeCmd.Flags().String("id", "", "Token id (uuid)")
	cmd.AddCommand(revokeCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Token"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevMiddleware())
	} else {
		issuer := auth.NewSessionIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
		verifier := auth.NewVerifier(auth.NewTokenStorePG(pool))
		e.Use(auth.Middleware(issuer, verifier))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Stage catalog
	stageRepo := stage.NewRepoPG(pool)
	stageSvc := stage.NewService(stageRepo)
	stage.NewHandler(stageSvc).RegisterRoutes(apiV1)

	// Drug catalog
	catalogSvc := catalog.NewService(
		catalog.NewDrugRepoPG(pool),
		catalog.NewCategoryRepoPG(pool),
		catalog.NewInteractionRepoPG(pool),
	)
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)

	// Billing
	billingSvc := billing.NewService(billing.NewOrderRepoPG(pool), billing.NewInvoiceRepoPG(pool))
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	// Prescription workflow. The billing bridge and catalog adapter close
	// the loop without the prescription package importing either.
	prescriptionSvc := prescription.NewService(
		prescription.NewRepoPG(pool),
		prescription.NewLineRepoPG(pool),
		stageSvc,
		catalogSvc,
		billing.NewBridge(billingSvc),
		db.NewRunner(pool),
		logger,
	)
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(apiV1)

	// Webhooks: workflow events fan out to registered endpoints.
	webhookManager := webhook.NewManager(webhook.NewPGStore(pool), logger)
	prescriptionSvc.SetEvents(webhook.NewPublisher(webhookManager, logger))
	webhookGroup := apiV1.Group("/webhooks", auth.RequireRole("admin"), auth.RequireWriteScope())
	webhook.NewHandler(webhookManager).RegisterRoutes(webhookGroup)

	// Patients
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	// Inventory
	inventorySvc := inventory.NewService(inventory.NewRepoPG(pool), logger)
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
