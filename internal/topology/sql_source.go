package topology

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLRowSource implements RowSource over the device mapping tables.
type SQLRowSource struct {
	db *sql.DB
}

// NewSQLRowSource creates a row source backed by db.
func NewSQLRowSource(db *sql.DB) *SQLRowSource {
	return &SQLRowSource{db: db}
}

// PanelRows returns the active panel rows at a position.
func (r *SQLRowSource) PanelRows(ctx context.Context, position int) ([]PanelRow, error) {
	const query = `SELECT serial_number, mpcb_ip_address FROM Opt_MPMMapping
		WHERE end_date IS NULL AND position = ?`
	rows, err := r.db.QueryContext(ctx, query, position)
	if err != nil {
		return nil, fmt.Errorf("querying panels: %w", err)
	}
	defer rows.Close()

	var out []PanelRow
	for rows.Next() {
		var (
			row PanelRow
			ip  sql.NullString
		)
		if err := rows.Scan(&row.Serial, &ip); err != nil {
			return nil, fmt.Errorf("scanning panel: %w", err)
		}
		row.IPAddress = ip.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating panels: %w", err)
	}
	return out, nil
}

// ActuatorRows returns the active actuators mounted on a panel.
func (r *SQLRowSource) ActuatorRows(ctx context.Context, panelPosition int) ([]ActuatorRow, error) {
	const query = `SELECT serial_number, position, port FROM Opt_ActuatorMapping
		WHERE end_date IS NULL AND panel = ?`
	rows, err := r.db.QueryContext(ctx, query, panelPosition)
	if err != nil {
		return nil, fmt.Errorf("querying actuators: %w", err)
	}
	defer rows.Close()

	var out []ActuatorRow
	for rows.Next() {
		var row ActuatorRow
		if err := rows.Scan(&row.Serial, &row.Position, &row.Port); err != nil {
			return nil, fmt.Errorf("scanning actuator: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actuators: %w", err)
	}
	return out, nil
}

// SensorRows returns the active sensors whose w-panel is the given panel.
func (r *SQLRowSource) SensorRows(ctx context.Context, panelPosition int) ([]SensorRow, error) {
	const query = `SELECT serial_number, w_position, port, l_panel FROM Opt_MPESMapping
		WHERE end_date IS NULL AND w_panel = ?`
	rows, err := r.db.QueryContext(ctx, query, panelPosition)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var out []SensorRow
	for rows.Next() {
		var row SensorRow
		if err := rows.Scan(&row.Serial, &row.WPosition, &row.Port, &row.LPanel); err != nil {
			return nil, fmt.Errorf("scanning sensor: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}
	return out, nil
}
