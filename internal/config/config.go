// internal/config/config.go
package config

type Config struct {
	Rig RigConfig `yaml:"rig"`
}

type RigConfig struct {
	Transport   string              `yaml:"transport"` // "ble" or "sim"
	Geometry    GeometryConfig      `yaml:"geometry"`
	Calibration CalibrationConfig   `yaml:"calibration"`
	Policy      PolicyConfig        `yaml:"policy"`
	Winches     []WinchConfig       `yaml:"winches"`
	Export      *StatusExportConfig `yaml:"status_export"`
}

// ---- GEOMETRY ----

// All lengths in centimeters.
type GeometryConfig struct {
	Width         float64 `yaml:"width"`
	Length        float64 `yaml:"length"`
	Height        float64 `yaml:"height"`
	FloorMargin   float64 `yaml:"floor_margin"`
	CeilingMargin float64 `yaml:"ceiling_margin"`
	MaxAngleDeg   float64 `yaml:"max_angle_deg"`
}

// ---- CALIBRATION ----

// Cable length (cm) = slope * position (ticks) + intercept.
type CalibrationConfig struct {
	Slope     float64 `yaml:"slope"`
	Intercept float64 `yaml:"intercept"`
}

// ---- POLICY ----

type PolicyConfig struct {
	SoftLimitAbortsMove bool `yaml:"soft_limit_aborts_move"`
	PollIntervalMs      int  `yaml:"poll_interval_ms"`
	DeadbandTicks       int  `yaml:"deadband_ticks"`
}

// ---- WINCH ----

type WinchConfig struct {
	ID      int    `yaml:"id"`      // anchor id, 1..4
	Address string `yaml:"address"` // BLE MAC
	Passkey string `yaml:"passkey"` // hex, empty => pair on first connect

	// Per-winch calibration override (optional)
	Calibration *CalibrationConfig `yaml:"calibration"`
}

// ---- STATUS EXPORT (OPT-IN) ----

type StatusExportConfig struct {
	Endpoint    string `yaml:"endpoint"`
	UnitID      uint8  `yaml:"unit_id"`
	BaseAddress uint16 `yaml:"base_address"`
	IntervalMs  int    `yaml:"interval_ms"`
}
