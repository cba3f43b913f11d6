// Package influxdb records the PAS client's topology inventory in
// InfluxDB using the influxdb-client-go v2 non-blocking write API.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("topology_inventory",
//	    map[string]string{"telescope": "p2pas", "device_type": "Panel"},
//	    map[string]any{"count": 2})
//
// Writes are batched per the batch_size and flush_interval settings.
// Asynchronous write failures are delivered through SetOnError.
package influxdb
