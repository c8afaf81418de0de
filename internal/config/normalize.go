// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultTimeoutMs   = 1000
	DefaultIntervalMs  = 20
	DefaultReconnectMs = 1000
	DefaultWorkers     = 4
	DefaultIdleWaitMs  = 100
	DefaultLogLevel    = "info"
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	src := &cfg.Reader.Source
	if src.Driver == "" {
		src.Driver = DriverModbus
	}
	if src.TimeoutMs == 0 {
		src.TimeoutMs = DefaultTimeoutMs
	}
	if src.Area == "" {
		src.Area = AreaHolding
	}

	p := &cfg.Reader.Poll
	if p.Strategy == "" {
		p.Strategy = StrategyPerBlock
	}
	if p.IntervalMs == 0 {
		p.IntervalMs = DefaultIntervalMs
	}
	if p.ReconnectMs == 0 {
		p.ReconnectMs = DefaultReconnectMs
	}
	if p.Workers == 0 {
		p.Workers = DefaultWorkers
	}
	if p.IdleWaitMs == 0 {
		p.IdleWaitMs = DefaultIdleWaitMs
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
