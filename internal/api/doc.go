// Package api provides a read-only HTTP view of the loaded device topology.
//
// Listings are served from the inventory snapshot of the last successful
// load; parent, position and port lookups resolve against the live index
// store. POST /api/v1/topology/reload repeats the last load.
//
//	server, err := api.New(api.Deps{Config: cfg.API, Logger: log, Topology: client})
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
