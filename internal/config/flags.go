package config

import "flag"

var (
	flagConfig      = new(string)
	flagDebug       = new(bool)
	flagOutput      = new(string)
	flagWorkers     = new(int)
	flagPolicy      = new(string)
	flagPlacement   = new(string)
	flagMaxDepth    = intPtr(-1)
	flagMetricsAddr = new(string)
	flagVerify      = new(bool)
)

func intPtr(v int) *int { return &v }

// RegisterFlags adds the override flags to fs. Call it before fs.Parse.
func RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(flagConfig, "config", "", "Path to config file")
	fs.BoolVar(flagDebug, "debug", false, "Enable debug logging")
	fs.StringVar(flagOutput, "o", "", "Output directory")
	fs.IntVar(flagWorkers, "workers", 0, "Parallel tile workers (0 = config value)")
	fs.StringVar(flagPolicy, "policy", "", "Decimation policy: shortest_edge or quadric")
	fs.StringVar(flagPlacement, "placement", "", "Vertex placement: keep_start, midpoint or optimal")
	fs.IntVar(flagMaxDepth, "depth", -1, "Maximum octree depth (-1 = config value)")
	fs.StringVar(flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.BoolVar(flagVerify, "verify", false, "Check mesh integrity after every collapse")
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagOutput != "" {
		cfg.Pipeline.OutputDir = *flagOutput
	}
	if *flagWorkers > 0 {
		cfg.Pipeline.Workers = *flagWorkers
	}
	if *flagPolicy != "" {
		cfg.Decimation.Policy = *flagPolicy
	}
	if *flagPlacement != "" {
		cfg.Decimation.Placement = *flagPlacement
	}
	if *flagMaxDepth >= 0 {
		cfg.Octree.MaxDepth = uint32(*flagMaxDepth)
	}
	if *flagMetricsAddr != "" {
		cfg.Metrics.Addr = *flagMetricsAddr
	}
	if *flagVerify {
		cfg.Decimation.Verify = true
	}
}
