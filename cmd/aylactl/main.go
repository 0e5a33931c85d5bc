// aylactl - command line client for the Ayla cloud
//
// aylactl uses the same configuration file and local database as aylad, so a
// session signed in with "aylactl login" is picked up by the daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "github.com/yuvaraj-ayla/Etisalat-sub001/migrations"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cache"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/config"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/database"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/logging"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/message"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/rules"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/schedule"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/session"
)

// Version information - set at build time via ldflags
var version = "dev"

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "AYLA_CONFIG"
)

// Global flags
var (
	configPath   string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "aylactl",
	Short: "Command line client for the Ayla IoT cloud",
	Long: `aylactl signs in to the Ayla cloud and manages devices, properties,
rules, notification destinations and schedules.

Sign in once with 'aylactl login'; the session is stored in the local
database and refreshed automatically.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $AYLA_CONFIG or configs/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json or pretty")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log SDK activity to stderr")

	rootCmd.AddCommand(loginCmd, logoutCmd, tokenCmd)
	rootCmd.AddCommand(devicesCmd, propertiesCmd, setCmd, datapointsCmd, uploadCmd, downloadCmd)
	rootCmd.AddCommand(rulesCmd, destinationsCmd, schedulesCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is everything a command needs, opened from the config file.
type app struct {
	cfg    *config.Config
	db     *database.DB
	log    *logging.Logger
	client *cloud.Client

	tokens    session.TokenRepository
	session   *session.Manager
	cache     *cache.Cache
	devices   *device.Manager
	rules     *rules.Service
	messages  *message.Service
	schedules *schedule.Service

	out *printer
}

// resolveConfigPath picks the --config flag, then AYLA_CONFIG, then the default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// openApp loads the config, opens and migrates the database and builds the
// SDK services. It does not sign in.
func openApp(ctx context.Context, stdout io.Writer) (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := cfg.Logging
	logCfg.Format = "text"
	if !verbose {
		logCfg.Level = "error"
	}
	log := logging.NewWithWriter(logCfg, version, os.Stderr)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	settings, err := cloud.SettingsFromConfig(cfg.Ayla)
	if err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("cloud settings: %w", err)
	}
	client := cloud.New(settings)
	client.SetLogger(log.Component("cloud"))

	a := newApp(cfg, client, stdout)
	a.db = db
	a.log = log
	a.tokens = session.NewSQLiteTokenRepository(db.DB)
	a.session = session.NewManager(cfg.Ayla.SessionName, client, a.tokens)
	a.session.SetLogger(log.Component("session"))
	a.cache = cache.New(cfg.Ayla.SessionName, client, cache.NewSQLiteStore(db.DB), cfg.CacheTTL())
	if !cfg.Cache.Enabled {
		a.cache.Disable()
	}
	a.session.SetCache(a.cache)
	a.devices.SetLogger(log.Component("device"))
	return a, nil
}

// newApp builds the cloud services around an existing client.
func newApp(cfg *config.Config, client *cloud.Client, stdout io.Writer) *app {
	r := rules.New(client)
	return &app{
		cfg:       cfg,
		client:    client,
		devices:   device.NewManager(client),
		rules:     r,
		messages:  r.Messages(),
		schedules: schedule.New(client),
		out:       newPrinter(stdout, outputFormat),
	}
}

// restore signs in from the stored session.
func (a *app) restore(ctx context.Context) error {
	_, err := a.session.SignIn(ctx, session.CachedAuthProvider{Repo: a.tokens, SessionName: a.cfg.Ayla.SessionName})
	if cloud.KindOf(err) == cloud.KindPrecondition {
		return fmt.Errorf("not signed in; run 'aylactl login' first")
	}
	return err
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// commandFunc is a command body that runs against an open app.
type commandFunc func(ctx context.Context, a *app, args []string) error

// appRunner can be replaced in tests to run commands against a fake cloud.
var appRunner = func(cmd *cobra.Command, signIn bool, fn commandFunc, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read-mostly database

	if signIn {
		if err := a.restore(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a, args)
}

// signedIn wraps a command that needs a cloud session.
func signedIn(fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return appRunner(cmd, true, fn, args)
	}
}

// local wraps a command that only needs the config and database.
func local(fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return appRunner(cmd, false, fn, args)
	}
}
