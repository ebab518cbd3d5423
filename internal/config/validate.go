// internal/config/validate.go
package config

import (
	"encoding/hex"
	"fmt"
	"net"
)

const (
	minWinchID = 1
	maxWinchID = 4
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	r := &cfg.Rig

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	switch r.Transport {
	case "", "ble", "sim":
	default:
		return fmt.Errorf("transport %q: must be \"ble\" or \"sim\"", r.Transport)
	}

	// ------------------------------------------------------------
	// GEOMETRY
	// ------------------------------------------------------------

	g := r.Geometry
	if g.Width <= 0 || g.Length <= 0 || g.Height <= 0 {
		return fmt.Errorf("geometry: width, length and height must be positive")
	}
	if g.FloorMargin < 0 || g.CeilingMargin < 0 {
		return fmt.Errorf("geometry: margins must not be negative")
	}
	if g.FloorMargin+g.CeilingMargin >= g.Height {
		return fmt.Errorf(
			"geometry: margins %.1f+%.1f leave no room in height %.1f",
			g.FloorMargin, g.CeilingMargin, g.Height,
		)
	}
	if g.MaxAngleDeg <= 0 || g.MaxAngleDeg >= 90 {
		return fmt.Errorf("geometry: max_angle_deg %.1f must be in (0, 90)", g.MaxAngleDeg)
	}

	// ------------------------------------------------------------
	// CALIBRATION
	// ------------------------------------------------------------

	if r.Calibration.Slope == 0 {
		return fmt.Errorf("calibration: slope must not be zero")
	}

	// ------------------------------------------------------------
	// POLICY
	// ------------------------------------------------------------

	if r.Policy.PollIntervalMs < 0 {
		return fmt.Errorf("policy: poll_interval_ms must not be negative")
	}
	if r.Policy.DeadbandTicks < 0 {
		return fmt.Errorf("policy: deadband_ticks must not be negative")
	}

	// ------------------------------------------------------------
	// WINCHES
	// ------------------------------------------------------------

	if len(r.Winches) == 0 {
		return fmt.Errorf("winches: at least one winch required")
	}

	seenID := make(map[int]bool)
	seenAddr := make(map[string]bool)

	for _, w := range r.Winches {
		if w.ID < minWinchID || w.ID > maxWinchID {
			return fmt.Errorf("winch id %d: must be in %d..%d", w.ID, minWinchID, maxWinchID)
		}
		if seenID[w.ID] {
			return fmt.Errorf("winch id %d: duplicate", w.ID)
		}
		seenID[w.ID] = true

		if w.Address == "" {
			return fmt.Errorf("winch %d: address required", w.ID)
		}
		if r.Transport != "sim" {
			if _, err := net.ParseMAC(w.Address); err != nil {
				return fmt.Errorf("winch %d: address %q is not a MAC", w.ID, w.Address)
			}
		}
		if seenAddr[w.Address] {
			return fmt.Errorf("winch %d: address %q already in use", w.ID, w.Address)
		}
		seenAddr[w.Address] = true

		if w.Passkey != "" {
			if _, err := hex.DecodeString(w.Passkey); err != nil {
				return fmt.Errorf("winch %d: passkey is not hex: %v", w.ID, err)
			}
		}

		if w.Calibration != nil && w.Calibration.Slope == 0 {
			return fmt.Errorf("winch %d: calibration slope must not be zero", w.ID)
		}
	}

	// ------------------------------------------------------------
	// STATUS EXPORT (OPT-IN)
	// ------------------------------------------------------------

	if r.Export != nil {
		if r.Export.Endpoint == "" {
			return fmt.Errorf("status_export: endpoint required")
		}
		if _, _, err := net.SplitHostPort(r.Export.Endpoint); err != nil {
			return fmt.Errorf("status_export: endpoint %q: %v", r.Export.Endpoint, err)
		}
		if r.Export.IntervalMs < 0 {
			return fmt.Errorf("status_export: interval_ms must not be negative")
		}
	}

	return nil
}

// PasskeyBytes decodes the hex passkey. Empty means no stored key.
// Call only after Validate().
func (w WinchConfig) PasskeyBytes() []byte {
	if w.Passkey == "" {
		return nil
	}
	raw, err := hex.DecodeString(w.Passkey)
	if err != nil {
		return nil
	}
	return raw
}
