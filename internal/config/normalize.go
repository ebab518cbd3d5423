// internal/config/normalize.go
package config

const (
	defaultPollIntervalMs   = 100
	defaultDeadbandTicks    = 200
	defaultExportIntervalMs = 1000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	r := &cfg.Rig

	if r.Transport == "" {
		r.Transport = "ble"
	}

	if r.Policy.PollIntervalMs == 0 {
		r.Policy.PollIntervalMs = defaultPollIntervalMs
	}
	if r.Policy.DeadbandTicks == 0 {
		r.Policy.DeadbandTicks = defaultDeadbandTicks
	}

	// ------------------------------------------------------------
	// PER-WINCH CALIBRATION (FILL FROM GLOBAL)
	// ------------------------------------------------------------

	for i := range r.Winches {
		w := &r.Winches[i]
		if w.Calibration == nil {
			cal := r.Calibration
			w.Calibration = &cal
		}
	}

	if r.Export != nil && r.Export.IntervalMs == 0 {
		r.Export.IntervalMs = defaultExportIntervalMs
	}
}
