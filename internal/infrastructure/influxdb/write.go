package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues a point stamped with the current time. Points written
// while disconnected are dropped.
//
//	client.WritePoint("topology_inventory",
//	    map[string]string{"telescope": "p2pas", "device_type": "ACT"},
//	    map[string]any{"count": 18})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime queues a point with an explicit timestamp. Points
// without a measurement or fields are reported to the error callback as
// ErrInvalidPoint and dropped.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if measurement == "" || len(fields) == 0 {
		c.reportError(fmt.Errorf("%w: measurement %q with %d fields", ErrInvalidPoint, measurement, len(fields)))
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
