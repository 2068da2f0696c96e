package config

// Overrides carries command line values that take priority over the
// config file.
type Overrides struct {
	ConfigPath string   // Explicit config file; skips the search
	Debug      bool     // Forces debug logging
	LogFile    string   // Replaces logging.log_file
	GRFPaths   []string // Appended after data.grf_paths
}

// apply applies command line overrides to the config.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	cfg.Data.GRFPaths = append(cfg.Data.GRFPaths, o.GRFPaths...)
}
