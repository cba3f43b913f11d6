// PAS client core.
//
// Loads the OPC UA client settings and the device topology of the
// configured panel positions from the mapping database, then keeps the
// topology announced on MQTT, recorded in InfluxDB and served over HTTP
// until shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/pas-client-core/migrations"

	"github.com/nerrad567/pas-client-core/internal/api"
	"github.com/nerrad567/pas-client-core/internal/clientconfig"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/config"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/database"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/logging"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/pas-client-core/internal/inventory"
	"github.com/nerrad567/pas-client-core/internal/topology"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting PAS client",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"telescope", cfg.Telescope.ID,
		"positions", cfg.Telescope.Positions,
		"sim_mode", cfg.Panels.SimMode,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		ReadOnly:    cfg.Database.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("mapping database opened", "path", db.Path(), "read_only", db.ReadOnly())

	if cfg.Database.Migrate {
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		applied, _, statusErr := db.GetMigrationStatus(ctx)
		if statusErr != nil {
			return fmt.Errorf("reading migration status: %w", statusErr)
		}
		schemaVersion := ""
		if len(applied) > 0 {
			schemaVersion = applied[len(applied)-1].Version
		}
		log.Info("database migrations complete", "applied", len(applied), "schema_version", schemaVersion)
	}

	loader := topology.NewLoader(topology.NewSQLRowSource(db.DB), panelAddressing(cfg.Panels))
	loader.SetLogger(log.With("component", "topology"))

	simHost := ""
	if cfg.Panels.SimMode {
		simHost = cfg.Panels.SimHost
	}
	client := clientconfig.New(loader, simHost)
	client.SetLogger(log)

	if loadErr := client.LoadConnectionConfiguration(cfg.Client.SettingsFile); loadErr != nil {
		return loadErr
	}

	if cfg.Client.SetupSecurity {
		hostname, hostErr := os.Hostname()
		if hostErr != nil {
			return fmt.Errorf("resolving hostname: %w", hostErr)
		}
		if _, secErr := client.SetupSecurity(hostname); secErr != nil {
			return secErr
		}
	}

	var announcer *inventory.Announcer
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		announcer = inventory.NewAnnouncer(mqttClient, mqttClient.Topics(), cfg.Telescope.ID)
		announcer.SetLogger(log)
	} else {
		log.Info("MQTT disabled")
	}

	var recorder *inventory.Recorder
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		recorder = inventory.NewRecorder(influxClient, cfg.Telescope.ID)
	} else {
		log.Info("InfluxDB disabled")
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Topology: client,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
	} else {
		log.Info("API disabled")
	}

	client.OnTopologyLoaded(publishTopology(log, announcer, recorder, apiServer))

	if loadErr := client.LoadDeviceConfiguration(ctx, cfg.Telescope.Positions); loadErr != nil {
		return loadErr
	}
	log.Info("device configuration loaded",
		"load_id", client.LoadID(),
		"servers", client.GetServers(),
	)

	if announcer != nil {
		if serveErr := announcer.ServeReload(ctx, client); serveErr != nil {
			return fmt.Errorf("subscribing to reload commands: %w", serveErr)
		}
	}

	if apiServer != nil {
		if startErr := apiServer.Start(ctx); startErr != nil {
			return startErr
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("PAS client stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("PASCLIENT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func panelAddressing(cfg config.PanelsConfig) topology.PanelAddressing {
	return topology.PanelAddressing{
		Scheme:  cfg.Scheme,
		Port:    cfg.Port,
		SimMode: cfg.SimMode,
		SimHost: cfg.SimHost,
	}
}

// publishTopology returns the load callback that announces, records and
// serves every new topology. Any sink may be nil.
func publishTopology(log *logging.Logger, announcer *inventory.Announcer, recorder *inventory.Recorder, apiServer *api.Server) func(*topology.LoadResult) {
	return func(result *topology.LoadResult) {
		snap, err := inventory.Take(result)
		if err != nil {
			log.Warn("unresolved parents in topology", "load_id", result.ID, "error", err)
		}
		if announcer != nil {
			if err := announcer.Announce(snap); err != nil {
				log.Error("announcing topology", "load_id", result.ID, "error", err)
			}
		}
		if recorder != nil {
			recorder.Record(snap)
		}
		if apiServer != nil {
			apiServer.Publish(snap)
		}
	}
}

func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
