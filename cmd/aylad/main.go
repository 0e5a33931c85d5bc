// aylad - Ayla cloud bridge daemon
//
// aylad signs in to the Ayla cloud, keeps the account's devices and
// properties mirrored in a local registry, and republishes them over MQTT,
// InfluxDB and a local REST/WebSocket API. Live values arrive over the
// datastream service when it is enabled; polling covers the rest.
//
// For configuration details, see: configs/config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/yuvaraj-ayla/Etisalat-sub001/migrations"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/api"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/bridge"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cache"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/datastream"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/config"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/database"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/influxdb"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/logging"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/mqtt"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/rules"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "AYLA_CONFIG"
	healthTimeout     = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the daemon, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting aylad",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// A .env file is optional; a missing one is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("ignoring unreadable .env file", "error", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"service_type", cfg.Ayla.ServiceType,
		"service_location", cfg.Ayla.ServiceLocation,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Cloud client and session
	settings, err := cloud.SettingsFromConfig(cfg.Ayla)
	if err != nil {
		return fmt.Errorf("cloud settings: %w", err)
	}
	client := cloud.New(settings)
	client.SetLogger(log.Component("cloud"))

	tokens := session.NewSQLiteTokenRepository(db.DB)
	sess := session.NewManager(cfg.Ayla.SessionName, client, tokens)
	sess.SetLogger(log.Component("session"))
	sess.AddListener(func(event session.Event, _ *session.Authorization) {
		if event == session.EventExpired {
			log.Error("session expired; sign in again with aylactl login")
		}
	})

	sdkCache := cache.New(cfg.Ayla.SessionName, client, cache.NewSQLiteStore(db.DB), cfg.CacheTTL())
	sdkCache.SetLogger(log.Component("cache"))
	if !cfg.Cache.Enabled {
		sdkCache.Disable()
	}
	sess.SetCache(sdkCache)

	if signErr := signIn(ctx, sess, cfg.Ayla, tokens); signErr != nil {
		return signErr
	}
	sess.Start(ctx)
	defer sess.Close()

	// Device layer
	registry := device.NewRegistry(device.NewCacheStore(sdkCache))
	registry.SetLogger(log.Component("registry"))
	devices := device.NewManager(client)
	devices.SetLogger(log.Component("device"))

	opts := bridge.Options{
		Devices:      devices,
		Registry:     registry,
		PollInterval: cfg.PollInterval(),
		DSNs:         cfg.Bridge.DSNs,
		Logger:       log.Component("bridge"),
	}
	checks := map[string]api.HealthChecker{"database": db}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		opts.Publisher = mqttClient
		opts.Topics = mqttClient.Topics()
		opts.QoS = mqttClient.QoS()
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		opts.History = influxClient
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// The stream handler needs the bridge, which needs the stream.
	var b *bridge.Bridge
	if cfg.Ayla.AllowDSS {
		stream := datastream.NewStream(datastream.New(client), datastream.NewSQLiteStore(db.DB), datastream.Options{
			SessionName: cfg.Ayla.SessionName,
			DSNs:        cfg.Bridge.DSNs,
			Types:       cfg.Ayla.DSSSubscriptionTypes,
		}, func(ctx context.Context, ev *datastream.Event) {
			b.HandleEvent(ctx, ev)
		})
		stream.SetLogger(log.Component("datastream"))
		stream.OnConnectionChange(func(connected bool) {
			log.Info("datastream connection changed", "connected", connected)
		})
		opts.Stream = stream
	} else {
		log.Info("datastream disabled; polling only")
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(log.Component("api"))
		opts.Notifier = hub
	}
	b, err = bridge.New(opts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Registry: registry,
			Bridge:   b,
			Rules:    rules.New(client),
			Checks:   checks,
			Version:  version,
			Hub:      hub,
		}
		if influxClient != nil {
			deps.History = influxClient
		}
		server, serverErr := api.New(deps)
		if serverErr != nil {
			return fmt.Errorf("creating API server: %w", serverErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if healthErr := healthCheck(ctx, checks); healthErr != nil {
		return fmt.Errorf("health check failed: %w", healthErr)
	}
	log.Info("aylad started", "devices_filter", len(cfg.Bridge.DSNs), "poll_interval", cfg.PollInterval())

	if runErr := b.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("bridge: %w", runErr)
	}

	log.Info("shutdown signal received, stopping")
	return nil
}

// signIn restores the stored session, falling back to the configured
// credentials when nothing usable is stored.
func signIn(ctx context.Context, sess *session.Manager, cfg config.AylaConfig, repo session.TokenRepository) error {
	_, err := sess.SignIn(ctx, session.CachedAuthProvider{Repo: repo, SessionName: cfg.SessionName})
	if err == nil {
		return nil
	}
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("signing in: no stored session and no credentials configured: %w", err)
	}
	if _, err = sess.SignIn(ctx, session.UsernameAuthProvider{Email: cfg.Email, Password: cfg.Password}); err != nil {
		return fmt.Errorf("signing in as %s: %w", cfg.Email, err)
	}
	return nil
}

// getConfigPath returns the config path from AYLA_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every component check once at startup.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
