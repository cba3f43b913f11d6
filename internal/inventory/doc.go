// Package inventory publishes the loaded device topology to the outside
// world: retained MQTT topics describing each device and its parents, and
// InfluxDB points counting devices per type. It also turns MQTT reload
// commands into topology reloads.
package inventory
