package topology

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Loader.
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

// PanelRow is one active row of the panel mapping.
type PanelRow struct {
	Serial    int
	IPAddress string
}

// ActuatorRow is one active row of the actuator mapping.
type ActuatorRow struct {
	Serial   int
	Position int
	Port     int
}

// SensorRow is one active row of the sensor mapping, keyed by its w-panel.
type SensorRow struct {
	Serial    int
	WPosition int
	Port      int
	LPanel    int
}

// RowSource supplies the device mapping rows the Loader indexes.
// Only rows without an end date are returned.
type RowSource interface {
	PanelRows(ctx context.Context, position int) ([]PanelRow, error)
	ActuatorRows(ctx context.Context, panelPosition int) ([]ActuatorRow, error)
	SensorRows(ctx context.Context, panelPosition int) ([]SensorRow, error)
}

// PanelAddressing describes how panel endpoint URLs are built.
type PanelAddressing struct {
	Scheme string
	Port   int

	// SimMode addresses every panel on SimHost, using the panel position as
	// the port. Used with locally simulated panel servers.
	SimMode bool
	SimHost string
}

// DefaultPanelAddressing is the addressing of the deployed panel controllers.
func DefaultPanelAddressing() PanelAddressing {
	return PanelAddressing{Scheme: "opc.tcp", Port: 4840}
}

// Address returns the endpoint URL of a panel.
func (a PanelAddressing) Address(position int, ip string) string {
	if a.SimMode {
		return fmt.Sprintf("%s://%s:%d", a.Scheme, a.SimHost, position)
	}
	return fmt.Sprintf("%s://%s:%d", a.Scheme, strings.TrimSpace(ip), a.Port)
}

// LoadResult summarises one successful load.
type LoadResult struct {
	ID      string
	Store   *Store
	Skipped []string
}

// Loader builds device index stores from a RowSource.
type Loader struct {
	source     RowSource
	addressing PanelAddressing
	logger     Logger
}

// NewLoader creates a loader reading from source.
func NewLoader(source RowSource, addressing PanelAddressing) *Loader {
	return &Loader{
		source:     source,
		addressing: addressing,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the loader.
func (l *Loader) SetLogger(logger Logger) {
	l.logger = logger
}

// Load indexes the panels at the given positions together with the actuators
// and sensors attached to them.
//
// Positions are processed in order. A position without an active panel row
// is skipped and reported in LoadResult.Skipped. Any row source failure
// abandons the whole load and wraps ErrDatabase; nothing built so far is
// returned. On success the returned store is sealed.
func (l *Loader) Load(ctx context.Context, positions []string) (*LoadResult, error) {
	result := &LoadResult{
		ID:    uuid.NewString(),
		Store: newStore(),
	}
	log := l.logger

	for _, raw := range positions {
		position, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPosition, raw)
		}

		found, err := l.loadPanel(ctx, result.Store, position)
		if err != nil {
			log.Error("topology load aborted", "load_id", result.ID, "position", position, "error", err)
			return nil, err
		}
		if !found {
			log.Warn("no active panel at position", "load_id", result.ID, "position", position)
			result.Skipped = append(result.Skipped, raw)
		}
	}

	result.Store.seal()
	log.Info("topology loaded",
		"load_id", result.ID,
		"panels", result.Store.Count(DeviceTypePanel),
		"actuators", result.Store.Count(DeviceTypeActuator),
		"sensors", result.Store.Count(DeviceTypeSensor),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (l *Loader) loadPanel(ctx context.Context, store *Store, position int) (bool, error) {
	rows, err := l.source.PanelRows(ctx, position)
	if err != nil {
		return false, fmt.Errorf("%w: panel %d: %w", ErrDatabase, position, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	if len(rows) > 1 {
		l.logger.Warn("multiple active panel rows, using the last", "position", position, "rows", len(rows))
	}

	row := rows[len(rows)-1]
	panel := Identity{
		SerialNumber: row.Serial,
		Position:     position,
		Address:      l.addressing.Address(position, row.IPAddress),
		Name:         panelName(position),
	}
	if err := store.addPanel(panel); err != nil {
		return false, err
	}
	l.logger.Debug("panel indexed", "panel", panel.String())

	actuators, err := l.source.ActuatorRows(ctx, position)
	if err != nil {
		return false, fmt.Errorf("%w: actuators of panel %d: %w", ErrDatabase, position, err)
	}
	for _, a := range actuators {
		id := Identity{SerialNumber: a.Serial, Position: a.Position, Name: actuatorName(a.Serial)}
		if err := store.addAttached(DeviceTypeActuator, id, panel.Address, a.Port, MountLink(position)); err != nil {
			return false, err
		}
	}

	sensors, err := l.source.SensorRows(ctx, position)
	if err != nil {
		return false, fmt.Errorf("%w: sensors of panel %d: %w", ErrDatabase, position, err)
	}
	for _, s := range sensors {
		id := Identity{SerialNumber: s.Serial, Position: s.WPosition, Name: sensorName(s.Serial)}
		if err := store.addAttached(DeviceTypeSensor, id, panel.Address, s.Port, SensorLink(position, s.LPanel)); err != nil {
			return false, err
		}
	}

	l.logger.Debug("panel devices indexed",
		"position", position,
		"actuators", len(actuators),
		"sensors", len(sensors),
	)
	return true, nil
}
