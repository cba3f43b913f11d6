// Package database provides the SQLite connection behind the device
// topology loader.
//
// The mapping database holds the panel, actuator and sensor assignment
// tables (Opt_MPMMapping, Opt_ActuatorMapping, Opt_MPESMapping). In
// production the client opens it read-only; development and test setups
// open it writable and apply the embedded schema with Migrate.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, ReadOnly: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// Migrations are registered by the migrations package and applied in
// version order, one transaction each.
package database
