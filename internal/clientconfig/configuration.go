package clientconfig

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gopcua/opcua/ua"

	"github.com/nerrad567/pas-client-core/internal/infrastructure/pki"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/settings"
	"github.com/nerrad567/pas-client-core/internal/topology"
)

// Logger defines the logging interface used by Configuration.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TopologyLoader builds a device index store for a set of panel positions.
// *topology.Loader implements it.
type TopologyLoader interface {
	Load(ctx context.Context, positions []string) (*topology.LoadResult, error)
}

// Configuration is the client's shared configuration: connection settings
// from the settings file and the device topology from the mapping database.
//
// All methods are safe for concurrent use. Reloading the topology swaps in
// a fully built store; readers see either the old or the new one. Loads
// are serialised, so load callbacks run in the order stores are swapped in
// and the last callback always describes the live store.
type Configuration struct {
	loader  TopologyLoader
	simHost string
	logger  Logger

	// loadMu is held across load, swap and callbacks.
	loadMu sync.Mutex

	mu         sync.RWMutex
	conn       *Connection
	store      *topology.Store
	loadID     string
	positions  []string
	onReloaded []func(*topology.LoadResult)
}

// New creates a Configuration whose topology is loaded by loader.
// simHost, when set, replaces the deployed discovery host default.
func New(loader TopologyLoader, simHost string) *Configuration {
	return &Configuration{
		loader:  loader,
		simHost: simHost,
		logger:  noopLogger{},
		conn:    &Connection{AutomaticReconnect: true},
		store:   topology.NewStore(),
	}
}

// SetLogger sets the logger for the configuration.
func (c *Configuration) SetLogger(logger Logger) {
	c.logger = logger
}

// OnTopologyLoaded registers a callback run after every successful
// topology load, outside the lock.
func (c *Configuration) OnTopologyLoaded(fn func(*topology.LoadResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReloaded = append(c.onReloaded, fn)
}

// LoadConnectionConfiguration reads the UaClientConfig group of the
// settings file at path.
func (c *Configuration) LoadConnectionConfiguration(path string) error {
	f, err := settings.Load(path)
	if err != nil {
		return fmt.Errorf("loading connection configuration: %w", err)
	}
	return c.ApplySettings(f)
}

// ApplySettings replaces the connection settings with those in f.
func (c *Configuration) ApplySettings(f *settings.File) error {
	conn, err := ParseConnection(f, c.simHost, func(i int, err error) {
		c.logger.Warn("write value not converted", "index", i, "error", err)
	})
	if err != nil {
		return fmt.Errorf("loading connection configuration: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("connection configuration loaded",
		"application", conn.ApplicationName,
		"namespaces", len(conn.NamespaceArray),
		"nodes_to_read", len(conn.NodesToRead),
		"nodes_to_write", len(conn.NodesToWrite),
		"nodes_to_monitor", len(conn.NodesToMonitor),
	)
	return nil
}

// Connection returns a copy of the connection settings. Node ids and
// variants are copied so callers may modify them.
func (c *Configuration) Connection() Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := *c.conn
	out.NamespaceArray = append([]string(nil), c.conn.NamespaceArray...)
	out.NodesToRead = cloneNodes(c.conn.NodesToRead)
	out.NodesToWrite = cloneNodes(c.conn.NodesToWrite)
	out.NodesToMonitor = cloneNodes(c.conn.NodesToMonitor)
	out.WriteValues = append([]*ua.Variant(nil), c.conn.WriteValues...)
	return out
}

// NamespaceArray returns the cached namespace URIs.
func (c *Configuration) NamespaceArray() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.conn.NamespaceArray...)
}

// NodesToRead returns copies of the nodes read on connect.
func (c *Configuration) NodesToRead() []*ua.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneNodes(c.conn.NodesToRead)
}

// NodesToWrite returns copies of the nodes written on connect.
func (c *Configuration) NodesToWrite() []*ua.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneNodes(c.conn.NodesToWrite)
}

// NodesToMonitor returns copies of the monitored nodes.
func (c *Configuration) NodesToMonitor() []*ua.NodeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneNodes(c.conn.NodesToMonitor)
}

// WriteValues returns the values paired with NodesToWrite, nil where the
// configured value could not be converted.
func (c *Configuration) WriteValues() []*ua.Variant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*ua.Variant(nil), c.conn.WriteValues...)
}

func cloneNodes(in []*ua.NodeID) []*ua.NodeID {
	if in == nil {
		return nil
	}
	out := make([]*ua.NodeID, len(in))
	for i, n := range in {
		if n == nil {
			continue
		}
		cp := *n
		out[i] = &cp
	}
	return out
}

// UpdateNamespaceIndexes re-targets the cached node ids after the server's
// namespace table changed, typically on reconnect.
//
// Each local namespace index maps to the first server index holding the
// same URI; URIs the server does not know keep their index. The cached
// namespace array is then replaced by the server's, so repeating the call
// with the same array changes nothing.
func (c *Configuration) UpdateNamespaceIndexes(server []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := make([]uint16, len(c.conn.NamespaceArray))
	for i, uri := range c.conn.NamespaceArray {
		table[i] = uint16(i)
		for j, s := range server {
			if s == uri {
				table[i] = uint16(j)
				break
			}
		}
	}

	var errs []error
	for _, list := range [][]*ua.NodeID{c.conn.NodesToRead, c.conn.NodesToWrite, c.conn.NodesToMonitor} {
		for _, n := range list {
			if n == nil {
				continue
			}
			ns := int(n.Namespace())
			if ns >= len(table) || table[ns] == n.Namespace() {
				continue
			}
			if err := n.SetNamespace(table[ns]); err != nil {
				errs = append(errs, fmt.Errorf("node %s: %w", n, err))
			}
		}
	}

	c.conn.NamespaceArray = append([]string(nil), server...)
	return errors.Join(errs...)
}

// LoadDeviceConfiguration loads the topology for positions and publishes
// it. On failure the previously loaded topology stays in place.
//
// Load callbacks run before it returns; they must not start another load.
func (c *Configuration) LoadDeviceConfiguration(ctx context.Context, positions []string) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.load(ctx, positions)
}

// Reload repeats the last successful device load.
func (c *Configuration) Reload(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.RLock()
	positions := slices.Clone(c.positions)
	c.mu.RUnlock()

	return c.load(ctx, positions)
}

// load runs with loadMu held.
func (c *Configuration) load(ctx context.Context, positions []string) error {
	result, err := c.loader.Load(ctx, positions)
	if err != nil {
		return fmt.Errorf("loading device configuration: %w", err)
	}
	if result.Store == nil || !result.Store.Sealed() {
		return fmt.Errorf("loading device configuration: load %s returned no sealed store", result.ID)
	}

	c.mu.Lock()
	c.store = result.Store
	c.loadID = result.ID
	c.positions = slices.Clone(positions)
	callbacks := slices.Clone(c.onReloaded)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(result)
	}
	return nil
}

// Store returns the current device index store.
func (c *Configuration) Store() *topology.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// LoadID returns the id of the load that produced the current store, or
// the empty string before the first load.
func (c *Configuration) LoadID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadID
}

// GetParents resolves the parents of a device in the current topology.
func (c *Configuration) GetParents(t topology.DeviceType, id topology.Identity) ([]topology.Parent, error) {
	return c.Store().Parents(t, id)
}

// GetDeviceSerial returns the serial of the device on a panel port.
func (c *Configuration) GetDeviceSerial(t topology.DeviceType, panelAddress string, port int) (int, error) {
	return c.Store().DeviceSerial(t, panelAddress, port)
}

// GetDevicePosition returns the position of a device by serial.
func (c *Configuration) GetDevicePosition(t topology.DeviceType, serial int) (int, error) {
	return c.Store().DevicePosition(t, serial)
}

// SetupSecurity prepares the certificate store named by the connection
// settings for hostname.
func (c *Configuration) SetupSecurity(hostname string) (*pki.Result, error) {
	c.mu.RLock()
	loc := c.conn.Certificates
	c.mu.RUnlock()

	result, err := pki.Setup(loc, hostname)
	if err != nil {
		return nil, fmt.Errorf("setting up security: %w", err)
	}
	if result.Created {
		c.logger.Info("client certificate created",
			"certificate", loc.ClientCertificate,
			"application_uri", result.ApplicationURI,
		)
	}
	return result, nil
}

// GetServers returns the number of panel servers in the current topology.
func (c *Configuration) GetServers() int {
	return c.Store().Count(topology.DeviceTypePanel)
}
