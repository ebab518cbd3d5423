// internal/config/validate_test.go
package config

import (
	"os"
	"strings"
	"testing"
)

// helper to build a valid config quickly
func valid() *Config {
	return &Config{
		Rig: RigConfig{
			Geometry: GeometryConfig{
				Width: 400, Length: 400, Height: 300,
				FloorMargin: 20, CeilingMargin: 50, MaxAngleDeg: 60,
			},
			Calibration: CalibrationConfig{Slope: 0.0375, Intercept: 20},
			Winches: []WinchConfig{
				{ID: 1, Address: "aa:bb:cc:dd:ee:01", Passkey: "0102030405"},
				{ID: 2, Address: "aa:bb:cc:dd:ee:02"},
				{ID: 3, Address: "aa:bb:cc:dd:ee:03"},
				{ID: 4, Address: "aa:bb:cc:dd:ee:04"},
			},
		},
	}
}

// ---- tests ----

func TestValidate_AcceptsFullRig(t *testing.T) {
	if err := Validate(valid()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsDuplicateID(t *testing.T) {
	cfg := valid()
	cfg.Rig.Winches[1].ID = 1

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestValidate_RejectsIDOutOfRange(t *testing.T) {
	cfg := valid()
	cfg.Rig.Winches[0].ID = 5

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for winch id 5")
	}
}

func TestValidate_RejectsBadMAC(t *testing.T) {
	cfg := valid()
	cfg.Rig.Winches[0].Address = "not-a-mac"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for malformed address")
	}
}

func TestValidate_SimTransportSkipsMACCheck(t *testing.T) {
	cfg := valid()
	cfg.Rig.Transport = "sim"
	cfg.Rig.Winches[0].Address = "sim-1"

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsNonHexPasskey(t *testing.T) {
	cfg := valid()
	cfg.Rig.Winches[0].Passkey = "zz99"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for non-hex passkey")
	}
}

func TestValidate_RejectsZeroSlope(t *testing.T) {
	cfg := valid()
	cfg.Rig.Calibration.Slope = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for zero slope")
	}
}

func TestValidate_RejectsMarginsSwallowingHeight(t *testing.T) {
	cfg := valid()
	cfg.Rig.Geometry.FloorMargin = 150
	cfg.Rig.Geometry.CeilingMargin = 150

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for margins >= height")
	}
}

func TestValidate_RejectsBadExportEndpoint(t *testing.T) {
	cfg := valid()
	cfg.Rig.Export = &StatusExportConfig{Endpoint: "no-port"}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for endpoint without port")
	}
}

func TestNormalize_FillsDefaultsAndCalibration(t *testing.T) {
	cfg := valid()
	cfg.Rig.Export = &StatusExportConfig{Endpoint: "127.0.0.1:1502"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Normalize(cfg)

	if cfg.Rig.Transport != "ble" {
		t.Fatalf("transport %q, want ble default", cfg.Rig.Transport)
	}
	if cfg.Rig.Policy.PollIntervalMs != 100 || cfg.Rig.Policy.DeadbandTicks != 200 {
		t.Fatalf("policy defaults not applied: %+v", cfg.Rig.Policy)
	}
	if cfg.Rig.Export.IntervalMs != 1000 {
		t.Fatalf("export interval %d, want 1000 default", cfg.Rig.Export.IntervalMs)
	}
	for _, w := range cfg.Rig.Winches {
		if w.Calibration == nil || w.Calibration.Slope != 0.0375 {
			t.Fatalf("winch %d calibration not filled from global", w.ID)
		}
	}
}

func TestNormalize_KeepsPerWinchOverride(t *testing.T) {
	cfg := valid()
	cfg.Rig.Winches[0].Calibration = &CalibrationConfig{Slope: 0.04, Intercept: 25}

	Normalize(cfg)

	if cfg.Rig.Winches[0].Calibration.Slope != 0.04 {
		t.Fatal("per-winch calibration override was overwritten")
	}
}

func TestPasskeyBytes(t *testing.T) {
	w := WinchConfig{Passkey: "0102030405"}
	raw := w.PasskeyBytes()
	if len(raw) != 5 || raw[0] != 0x01 || raw[4] != 0x05 {
		t.Fatalf("passkey bytes %x", raw)
	}

	if (WinchConfig{}).PasskeyBytes() != nil {
		t.Fatal("empty passkey must decode to nil")
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/rig.yaml"
	doc := `
rig:
  transport: sim
  geometry:
    width: 400
    length: 400
    height: 300
    floor_margin: 20
    ceiling_margin: 50
    max_angle_deg: 60
  calibration:
    slope: 0.0375
    intercept: 20
  policy:
    soft_limit_aborts_move: true
  winches:
    - id: 1
      address: sim-1
      passkey: "0102030405"
  status_export:
    endpoint: 127.0.0.1:1502
    unit_id: 1
    base_address: 100
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rig.Transport != "sim" {
		t.Fatalf("transport %q", cfg.Rig.Transport)
	}
	if !cfg.Rig.Policy.SoftLimitAbortsMove {
		t.Fatal("policy flag not parsed")
	}
	if len(cfg.Rig.Winches) != 1 || cfg.Rig.Winches[0].Address != "sim-1" {
		t.Fatalf("winches %+v", cfg.Rig.Winches)
	}
	if cfg.Rig.Export == nil || cfg.Rig.Export.BaseAddress != 100 {
		t.Fatalf("export %+v", cfg.Rig.Export)
	}
}
