package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sregle/vtubot/internal/api"
	"github.com/sregle/vtubot/internal/catalog"
	"github.com/sregle/vtubot/internal/config"
	"github.com/sregle/vtubot/internal/engine"
	"github.com/sregle/vtubot/internal/lockfile"
	"github.com/sregle/vtubot/internal/messaging"
	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/store"
	"github.com/sregle/vtubot/internal/users"
	"github.com/sregle/vtubot/internal/vprest"
)

func main() {
	cfg := loadConfiguration()
	initializeLogger(cfg.Debug)
	parseCommandLineFlags(cfg)

	if err := ensureDirectoriesExist(cfg); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.Acquire(cfg.StateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	srv, err := buildServer(cfg, st)
	if err != nil {
		slog.Error("Failed to build server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping vtubot", "addr", cfg.Server.Addr, "state_dir", cfg.StateDir)
	if err := srv.Run(ctx); err != nil {
		slog.Error("vtubot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("vtubot exited successfully")
}

// loadConfiguration reads the .env file (when present) and the environment.
func loadConfiguration() *config.Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// initializeLogger sets up structured logging.
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// parseCommandLineFlags lets flags override the environment configuration.
func parseCommandLineFlags(cfg *config.Config) {
	apiAddr := flag.String("api-addr", cfg.Server.Addr, "API server address (overrides $API_ADDR)")
	stateDir := flag.String("state-dir", cfg.StateDir, "state directory for vtubot data (overrides $VTUBOT_STATE_DIR)")
	dbDSN := flag.String("db-dsn", cfg.DatabaseURL, "database DSN (overrides $DATABASE_URL)")
	baseURL := flag.String("vprest-base-url", cfg.Provider.BaseURL, "wallet provider base URL (overrides $VPREST_BASE_URL)")
	flag.Parse()

	// A state-dir override moves the default SQLite file along with it.
	if *stateDir != cfg.StateDir && *dbDSN == filepath.Join(cfg.StateDir, config.DefaultDBFileName) {
		*dbDSN = filepath.Join(*stateDir, config.DefaultDBFileName)
	}
	cfg.Server.Addr = *apiAddr
	cfg.StateDir = *stateDir
	cfg.DatabaseURL = *dbDSN
	cfg.Provider.BaseURL = *baseURL

	slog.Debug("flags parsed", "api_addr", cfg.Server.Addr, "state_dir", cfg.StateDir, "dsn_set", cfg.DatabaseURL != "")
}

// ensureDirectoriesExist creates the state directory for file-based storage.
func ensureDirectoriesExist(cfg *config.Config) error {
	if store.DetectDSNType(cfg.DatabaseURL) == "postgres" {
		return nil
	}
	dir := filepath.Dir(cfg.DatabaseURL)
	return os.MkdirAll(dir, 0o755)
}

// openStore selects a SQLite or PostgreSQL backend from the DSN.
func openStore(cfg *config.Config) (store.Store, error) {
	if store.DetectDSNType(cfg.DatabaseURL) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(cfg.DatabaseURL))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", cfg.DatabaseURL)
	return store.NewSQLiteStore(store.WithSQLiteDSN(cfg.DatabaseURL))
}

// buildServer wires the module graph: provider client, user directory,
// catalog, purchase executor, dialogue engine, and the HTTP server.
func buildServer(cfg *config.Config, st store.Store) (*api.Server, error) {
	client, err := vprest.NewClient(
		vprest.WithBaseURL(cfg.Provider.BaseURL),
		vprest.WithTimeout(cfg.Provider.Timeout),
	)
	if err != nil {
		return nil, err
	}

	directory := users.NewDirectory(st)

	var catalogOpts []catalog.Option
	if cfg.Provider.AdminID != "" && cfg.Provider.AdminAPIKey != "" {
		catalogOpts = append(catalogOpts, catalog.WithAdminCredential(models.Credential{
			ExternalID: cfg.Provider.AdminID,
			APIKey:     cfg.Provider.AdminAPIKey,
		}))
	}
	if cfg.PlanOverrides != "" {
		catalogOpts = append(catalogOpts, catalog.WithOverridesFile(cfg.PlanOverrides))
	}
	cat := catalog.NewProvider(st, client, catalogOpts...)

	executor := vprest.NewExecutor(client, directory)

	notifier := buildNotifier(cfg)
	eng := engine.New(st, directory, cat, executor,
		engine.WithCommandPrefix(cfg.Bot.CommandPrefix),
		engine.WithBrandName(cfg.Bot.BrandName),
		engine.WithNotifier(notifier),
	)

	return api.NewServer(eng, st, cat,
		api.WithAddr(cfg.Server.Addr),
		api.WithWebhookKey(cfg.Server.WebhookKey),
		api.WithAdminKey(cfg.Server.AdminKey),
		api.WithSessionTTL(cfg.Server.SessionTTL),
	), nil
}

// buildNotifier returns the Twilio receipt notifier when configured, the
// no-op notifier otherwise.
func buildNotifier(cfg *config.Config) messaging.Notifier {
	if !cfg.TwilioEnabled() {
		slog.Debug("Twilio not configured, receipt notifications disabled")
		return messaging.NoopNotifier{}
	}
	notifier, err := messaging.NewTwilioNotifier(
		messaging.WithAccountSID(cfg.Twilio.AccountSID),
		messaging.WithAuthToken(cfg.Twilio.AuthToken),
		messaging.WithFromWhats(cfg.Twilio.FromNumber),
	)
	if err != nil {
		slog.Warn("Twilio notifier unavailable, receipts disabled", "error", err)
		return messaging.NoopNotifier{}
	}
	return notifier
}
