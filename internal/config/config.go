package config

import "time"

// DaemonConfig holds configuration for the tickschedd daemon.
type DaemonConfig struct {
	Addr      string // Listen address (default ":8090")
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: text, json
	DBPath    string // SQLite journal path (default ~/.ticksched/journal.db, ":memory:" for testing)
	PlanPath  string // YAML plan loaded at startup

	ModbusEndpoint   string // host:port of the status-export target; empty disables export
	ModbusUnitID     byte   // Modbus unit (slave) id
	ModbusBaseAddr   uint16 // first holding register of the status block
	ExportIntervalMs int    // how often the status task writes the block

	Duration time.Duration // stop after this long; 0 runs until interrupted
}

// DefaultDaemonConfig returns sensible defaults.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		Addr:             ":8090",
		LogLevel:         "info",
		LogFormat:        "text",
		ModbusUnitID:     1,
		ExportIntervalMs: 1000,
	}
}

// ExportEnabled reports whether Modbus status export is configured.
func (c DaemonConfig) ExportEnabled() bool {
	return c.ModbusEndpoint != ""
}

// ExportInterval returns the export period as a duration.
func (c DaemonConfig) ExportInterval() time.Duration {
	return time.Duration(c.ExportIntervalMs) * time.Millisecond
}
