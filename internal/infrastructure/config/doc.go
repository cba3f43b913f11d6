// Package config loads and validates the PAS client configuration.
//
// Values come from defaults, then the YAML file, then PASCLIENT_*
// environment variables. Credentials (MQTT password, InfluxDB token) are
// best set through the environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Telescope.Positions)
//
// The OPC UA client settings (certificate locations, namespace array,
// node lists) live in a separate file read by the settings package;
// Client.SettingsFile points at it.
package config
